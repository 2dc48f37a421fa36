package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/services"
)

// Token is the login response.
type Token struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// Claims are the JWT claims Grandline issues.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Issue signs a token for u.
func (s *Service) Issue(u *services.User) (*Token, error) {
	now := s.now()
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Token: signed, ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Verify parses and validates a signed token.
func (s *Service) Verify(raw string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, apperr.Unauthorized(apperr.CodeUnauthorized, msg)
	}
	if claims.Subject == "" {
		return nil, apperr.Unauthorized(apperr.CodeUnauthorized, "invalid token")
	}
	return &Identity{UserID: claims.Subject, Username: claims.Username, Role: claims.Role}, nil
}

// Authenticate verifies raw and re-reads its subject, so tokens of accounts
// that were disabled or removed after issue stop working immediately.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	id, err := s.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id.UserID)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return nil, apperr.Unauthorized(apperr.CodeUnauthorized, "account no longer exists")
	case err != nil:
		return nil, apperr.Internal(err)
	case u.Disabled:
		return nil, apperr.Unauthorized(apperr.CodeUnauthorized, "account disabled")
	}
	id.Username, id.Role = u.Username, u.Role
	return id, nil
}
