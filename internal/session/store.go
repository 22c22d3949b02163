// Package session holds the process-wide bearer credential and the
// authentication state derived from it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/adapter/metrics"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// Store is the single owner of the current credential. Readers call Token
// before every request; only the auth gate, sign-out, and the transport's
// session guard (through Invalidate) change it.
type Store struct {
	repo    domain.CredentialRepository
	logger  *slog.Logger
	metrics *metrics.ClientMetrics

	mu        sync.RWMutex
	token     string
	status    domain.SessionStatus
	identity  *domain.Identity
	listeners []func()
}

// NewStore creates a store in the Loading state.
func NewStore(repo domain.CredentialRepository, logger *slog.Logger, m *metrics.ClientMetrics) *Store {
	return &Store{
		repo:    repo,
		logger:  logger.With("component", "session_store"),
		metrics: m,
		status:  domain.StatusLoading,
	}
}

// Token returns the current credential, or "" when there is none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns a copy of the session state.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := domain.Session{Token: s.token, Status: s.status}
	if s.identity != nil {
		id := *s.identity
		sess.Identity = &id
	}
	return sess
}

// OnInvalidate registers fn to run after Invalidate discards a credential.
// fn runs on the goroutine that observed the rejection.
func (s *Store) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Restore loads a persisted credential into memory without changing the
// status. It returns "" when nothing is stored.
func (s *Store) Restore(ctx context.Context) (string, error) {
	token, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredential) {
			return "", nil
		}
		return "", err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

// BeginAuthentication moves the session into Authenticating.
func (s *Store) BeginAuthentication() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = domain.StatusAuthenticating
	s.identity = nil
}

// SetToken installs and persists a freshly issued credential. A failure to
// persist is logged; the credential still serves the current run.
func (s *Store) SetToken(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.identity = nil
	if s.status == domain.StatusAuthenticated {
		s.status = domain.StatusAuthenticating
	}
	s.mu.Unlock()

	if err := s.repo.Save(ctx, token); err != nil {
		s.logger.Warn("failed to persist credential, keeping it in memory only", "error", err)
	}
}

// Verified marks the session Authenticated if token is still the current
// credential. It returns false when the credential changed meanwhile.
func (s *Store) Verified(token string, identity *domain.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.token != token {
		return false
	}
	if identity == nil {
		identity = &domain.Identity{}
	}
	id := *identity
	s.identity = &id
	s.status = domain.StatusAuthenticated
	return true
}

// Discard clears token if it is still current. It does not notify
// listeners; the caller is already handling the failure.
func (s *Store) Discard(ctx context.Context, token string) bool {
	if !s.compareAndClear(token) {
		return false
	}
	s.deletePersisted(ctx)
	return true
}

// Invalidate clears token if it is still current and notifies listeners.
// It is the response to a credential rejected by the identity layer.
func (s *Store) Invalidate(ctx context.Context, token string) bool {
	if !s.compareAndClear(token) {
		return false
	}
	s.deletePersisted(ctx)

	if s.metrics != nil {
		s.metrics.SessionInvalidations.Inc()
	}
	s.logger.Warn("credential rejected, session discarded")

	s.mu.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
	return true
}

// SignOut unconditionally clears the credential.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.status = domain.StatusUnauthenticated
	s.mu.Unlock()

	s.deletePersisted(ctx)
}

func (s *Store) compareAndClear(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.token != token {
		return false
	}
	s.token = ""
	s.identity = nil
	s.status = domain.StatusUnauthenticated
	return true
}

func (s *Store) deletePersisted(ctx context.Context) {
	if err := s.repo.Delete(ctx); err != nil {
		s.logger.Error("failed to delete persisted credential", "error", err)
	}
}
