package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// CredentialRepository implements domain.CredentialRepository with a single
// file readable only by the current user.
type CredentialRepository struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCredentialRepository creates a file-backed credential repository.
// The parent directory is created on first save.
func NewCredentialRepository(path string, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{
		path:   path,
		logger: logger.With("component", "file_credential_repository"),
	}
}

// Load reads the stored token.
func (r *CredentialRepository) Load(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrNoCredential
		}
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", domain.ErrNoCredential
	}
	return token, nil
}

// Save writes the token, replacing any previous one atomically.
func (r *CredentialRepository) Save(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	r.logger.Debug("credential saved", "path", r.path)
	return nil
}

// Delete removes the credential file.
func (r *CredentialRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	r.logger.Debug("credential deleted", "path", r.path)
	return nil
}
