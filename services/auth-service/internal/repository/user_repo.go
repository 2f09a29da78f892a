package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.User{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// Create inserts u, failing with ErrEmailTaken when the email exists.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrEmailTaken
		}
		return tx.Create(u).Error
	})
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) (*domain.User, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.ByID(ctx, id)
}

// List pages users newest first. query matches email or name case-insensitively.
func (r *UserRepo) List(ctx context.Context, page, size int, query, role string) ([]domain.User, int64, error) {
	if size <= 0 || size > 100 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.User{})
	if role != "" {
		qb = qb.Where("role = ?", role)
	}
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		qb = qb.Where("(LOWER(email) LIKE ? OR LOWER(name) LIKE ?)", "%"+q+"%", "%"+q+"%")
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	if err := qb.Order("created_at DESC").Limit(size).Offset(page * size).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
