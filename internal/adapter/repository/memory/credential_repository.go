// Package memory holds in-process repositories: a credential store that
// lives only as long as the process, and the account and log stores
// behind the development API.
package memory

import (
	"context"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// CredentialRepository implements domain.CredentialRepository without
// persistence. The credential is lost when the process exits.
type CredentialRepository struct {
	mu    sync.Mutex
	token string
}

// NewCredentialRepository creates an empty in-memory credential repository.
func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{}
}

func (r *CredentialRepository) Load(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == "" {
		return "", domain.ErrNoCredential
	}
	return r.token, nil
}

func (r *CredentialRepository) Save(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""
	return nil
}
