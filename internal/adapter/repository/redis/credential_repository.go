package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// CredentialRepository implements domain.CredentialRepository on a single
// Redis key, so several dashboard instances (e.g. a wall display and a
// laptop) can share one signed-in session.
type CredentialRepository struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewCredentialRepository creates a Redis-backed credential repository.
func NewCredentialRepository(client *redis.Client, key string, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{
		client: client,
		key:    key,
		logger: logger.With("component", "redis_credential_repository"),
	}
}

// Load returns the token stored under the configured key.
func (r *CredentialRepository) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNoCredential
		}
		return "", fmt.Errorf("failed to GET credential from redis: %w", err)
	}
	if token == "" {
		return "", domain.ErrNoCredential
	}
	return token, nil
}

// Save stores the token without expiry; the API decides when it lapses.
func (r *CredentialRepository) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET credential in redis: %w", err)
	}
	r.logger.Debug("credential saved", "key", r.key)
	return nil
}

// Delete removes the key.
func (r *CredentialRepository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to DEL credential in redis: %w", err)
	}
	r.logger.Debug("credential deleted", "key", r.key)
	return nil
}
