package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/session"
)

// ErrSignInRequired is returned when registration succeeds without issuing
// a credential.
var ErrSignInRequired = errors.New("account created, sign in to continue")

// AuthGate moves the session between Loading, Unauthenticated,
// Authenticating and Authenticated. A credential is only trusted after the
// identity endpoint confirms it.
type AuthGate struct {
	store  *session.Store
	api    domain.AuthAPI
	logger *slog.Logger
}

// NewAuthGate creates a new AuthGate.
func NewAuthGate(store *session.Store, api domain.AuthAPI, logger *slog.Logger) *AuthGate {
	return &AuthGate{
		store:  store,
		api:    api,
		logger: logger.With("component", "auth_gate"),
	}
}

// Startup restores a persisted credential and verifies it. Without one the
// session goes straight to Unauthenticated.
func (g *AuthGate) Startup(ctx context.Context) (domain.Session, error) {
	token, err := g.store.Restore(ctx)
	if err != nil {
		g.logger.Warn("failed to restore credential, starting signed out", "error", err)
	}
	if token == "" {
		g.store.SignOut(ctx)
		return g.store.Snapshot(), nil
	}
	return g.verify(ctx, token)
}

// Login exchanges credentials for a token, then verifies the token before
// declaring the session authenticated.
func (g *AuthGate) Login(ctx context.Context, username, password string) (domain.Session, error) {
	g.store.BeginAuthentication()

	resp, err := g.api.Login(ctx, domain.LoginRequest{Username: username, Password: password})
	if err != nil {
		g.store.SignOut(ctx)
		return g.store.Snapshot(), fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		g.store.SignOut(ctx)
		return g.store.Snapshot(), domain.ErrNoToken
	}

	g.store.SetToken(ctx, resp.Token)
	return g.verify(ctx, resp.Token)
}

// Register creates an account. When the API issues a credential it is
// verified like a login; otherwise the session stays Unauthenticated and
// ErrSignInRequired is returned.
func (g *AuthGate) Register(ctx context.Context, req domain.RegisterRequest) (domain.Session, error) {
	g.store.BeginAuthentication()

	resp, err := g.api.Register(ctx, req)
	if err != nil {
		g.store.SignOut(ctx)
		return g.store.Snapshot(), fmt.Errorf("register: %w", err)
	}
	if resp.Token == "" {
		g.store.SignOut(ctx)
		return g.store.Snapshot(), ErrSignInRequired
	}

	g.store.SetToken(ctx, resp.Token)
	return g.verify(ctx, resp.Token)
}

// Logout discards the credential regardless of anything in flight.
func (g *AuthGate) Logout(ctx context.Context) domain.Session {
	g.store.SignOut(ctx)
	g.logger.Info("signed out")
	return g.store.Snapshot()
}

func (g *AuthGate) verify(ctx context.Context, token string) (domain.Session, error) {
	id, err := g.api.Me(ctx)
	if err != nil {
		g.store.Discard(ctx, token)
		g.logger.Warn("credential failed identity verification", "error", err)
		return g.store.Snapshot(), fmt.Errorf("verify identity: %w", err)
	}

	if !g.store.Verified(token, id) {
		// Signed out or replaced while the check was in flight.
		return g.store.Snapshot(), fmt.Errorf("verify identity: %w", domain.ErrSessionInvalid)
	}

	g.logger.Info("session authenticated", "user", id.DisplayName())
	return g.store.Snapshot(), nil
}
