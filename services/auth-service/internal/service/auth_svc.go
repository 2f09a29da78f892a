package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/auth-service/internal/repository"
)

const minPasswordLen = 8

type AuthSvc struct {
	repo   *repository.UserRepo
	signer *auth.Signer
	ttl    time.Duration
	log    *slog.Logger
}

func NewAuthSvc(r *repository.UserRepo, signer *auth.Signer, ttl time.Duration, log *slog.Logger) *AuthSvc {
	return &AuthSvc{repo: r, signer: signer, ttl: ttl, log: log}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

// Register creates a client or service agent account. Admins are never
// self-registered.
func (s *AuthSvc) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	role := in.Role
	if role == "" {
		role = auth.RoleClient
	}
	if role != auth.RoleClient && role != auth.RoleServiceAgent {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, in.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login checks the password and issues an access token.
func (s *AuthSvc) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.repo.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log.WarnContext(ctx, "login rejected", "user_id", u.ID)
		return nil, "", domain.ErrInvalidCredentials
	}
	tok, err := s.signer.CreateAccessToken(u.ID, u.Role, u.Email, s.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return u, tok, nil
}

func (s *AuthSvc) Me(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.ByID(ctx, id)
}

// UpdateProfile changes name and phone; empty values are left as they are.
func (s *AuthSvc) UpdateProfile(ctx context.Context, id, name, phone string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrForbidden
	}
	fields := map[string]any{}
	if v := strings.TrimSpace(name); v != "" {
		fields["name"] = v
	}
	if v := strings.TrimSpace(phone); v != "" {
		fields["phone"] = v
	}
	if len(fields) == 0 {
		return s.repo.ByID(ctx, id)
	}
	return s.repo.UpdateFields(ctx, id, fields)
}

// SetRole is the only way to promote an account, admin included.
func (s *AuthSvc) SetRole(ctx context.Context, actorRole, id, role string) (*domain.User, error) {
	if actorRole != auth.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, role)
	}
	u, err := s.repo.UpdateFields(ctx, id, map[string]any{"role": role})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "role changed", "user_id", id, "role", role)
	return u, nil
}

func (s *AuthSvc) List(ctx context.Context, actorRole string, page, size int, query, role string) ([]domain.User, int64, error) {
	if actorRole != auth.RoleAdmin {
		return nil, 0, domain.ErrForbidden
	}
	return s.repo.List(ctx, page, size, query, role)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *AuthSvc) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.repo.ByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{Email: email, PasswordHash: string(hash), Name: "admin", Role: auth.RoleAdmin}
	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "bootstrap admin created", "user_id", u.ID)
	return nil
}
