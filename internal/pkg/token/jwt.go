// Package token issues and validates the HS256 bearer tokens of the
// development API.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the custom claims for the JWT.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a shared secret.
type Manager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewManager creates a Manager. Tokens expire after expiry.
func NewManager(secret string, expiry time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("token expiry must be positive, got %s", expiry)
	}
	return &Manager{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

// Generate creates a new JWT for username.
func (m *Manager) Generate(username string) (string, error) {
	now := m.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// Validate parses and validates a JWT string and returns the username it
// was issued for. It satisfies middleware.TokenValidator.
func (m *Manager) Validate(_ context.Context, tokenString string) (string, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}

	if !t.Valid || claims.Username == "" {
		return "", jwt.ErrSignatureInvalid
	}

	return claims.Username, nil
}
