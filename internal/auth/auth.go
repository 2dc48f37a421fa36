// Package auth guards catalog mutations. Administrators log in with a
// bcrypt-checked password and receive an HS256 JWT that the bearer
// middleware verifies on every protected request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/services"
)

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "admin"

// ErrMissingSecret is returned by NewService when no signing secret is set.
var ErrMissingSecret = errors.New("auth: jwt secret is required")

// Config controls token issuance.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Service authenticates users and issues and verifies tokens.
type Service struct {
	users  services.UserRepository
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. A zero TokenTTL defaults to 24 hours.
func NewService(users services.UserRepository, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		logger: logger.Named("auth"),
		now:    time.Now,
	}, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks credentials and issues a token. Unknown users, wrong
// passwords and disabled accounts all yield the same INVALID_CREDENTIALS
// error.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	invalid := apperr.Unauthorized(apperr.CodeInvalidCredentials, "invalid username or password")

	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, services.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil || u.Disabled {
		s.logger.Info("login rejected", zap.String("username", u.Username))
		return nil, invalid
	}

	tok, err := s.Issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", u.ID), zap.Error(err))
	}
	return tok, nil
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password, role string) (*services.User, error) {
	return CreateUser(ctx, s.users, username, password, role)
}

// CreateUser validates and stores a new user. It does not need a signing
// secret, so the CLI can use it directly.
func CreateUser(ctx context.Context, users services.UserRepository, username, password, role string) (*services.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.FieldError("username", "username is required")
	}
	if len(password) < 8 {
		return nil, apperr.FieldError("password", "password must be at least 8 characters")
	}
	if role == "" {
		role = DefaultRole
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &services.User{Username: username, PasswordHash: hash, Role: role}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, services.ErrAlreadyExists) {
			return nil, apperr.Conflict(apperr.CodeDuplicateName, fmt.Sprintf("user %q already exists", username))
		}
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap administrator when the users table is
// empty and a password is configured. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if password == "" {
		s.logger.Warn("no users exist and auth.admin_password is not set; mutating routes are unreachable")
		return false, nil
	}
	if _, err := s.Register(ctx, username, password, DefaultRole); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap administrator created", zap.String("username", username))
	return true, nil
}
