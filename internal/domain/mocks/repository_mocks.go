package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// MockCredentialRepository is an in-memory domain.CredentialRepository for testing.
type MockCredentialRepository struct {
	mu      sync.Mutex
	Token   string
	Saves   []string
	Deletes int
	LoadErr error
	SaveErr error
}

func (m *MockCredentialRepository) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return "", m.LoadErr
	}
	if m.Token == "" {
		return "", domain.ErrNoCredential
	}
	return m.Token, nil
}

func (m *MockCredentialRepository) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Token = token
	m.Saves = append(m.Saves, token)
	return nil
}

func (m *MockCredentialRepository) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = ""
	m.Deletes++
	return nil
}

// Stored returns the currently persisted token.
func (m *MockCredentialRepository) Stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Token
}
