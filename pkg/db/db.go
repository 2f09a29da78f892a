package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects gorm to postgres (production) or sqlite (local runs and tests).
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case DriverPostgres, "":
		gdb, err = gorm.Open(postgres.Open(dsn), cfg)
	case DriverSQLite:
		gdb, err = gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// sqlite has a single writer
		sqlDB.SetMaxOpenConns(1)
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return gdb, nil
}

// SQLDialect is the sqlx driver name matching a gorm driver, used for bind vars.
func SQLDialect(driver string) string {
	if driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}
