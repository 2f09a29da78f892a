package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App holds settings shared by every service. Service specific keys live in
// each service's own Cfg struct next to its main.
type App struct {
	// JWT
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`

	// DB
	DBDriver string `envconfig:"DB_DRIVER" default:"postgres"`

	// MQ
	RabbitURL string `envconfig:"RABBIT_URL" default:""`

	// Runtime
	Timezone    string `envconfig:"APP_TIMEZONE" default:"UTC"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	OtelEnabled bool   `envconfig:"OTEL_ENABLED" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (App, error) {
	_ = godotenv.Load(".env")
	var c App
	err := envconfig.Process("", &c)
	return c, err
}

// Process fills a service specific config struct the same way Load does.
func Process(cfg any) error {
	_ = godotenv.Load(".env")
	return envconfig.Process("", cfg)
}

func (a App) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

func (a App) TokenTTL() time.Duration {
	return time.Duration(a.JWTExpireMin) * time.Minute
}

// NewLogger builds the JSON slog logger every service injects into its layers.
func (a App) NewLogger(service string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(a.LogLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("service", service)
}
