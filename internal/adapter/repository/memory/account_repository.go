package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// AccountRepository implements domain.AccountRepository with a map keyed
// by lower-cased username.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewAccountRepository creates an empty account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]domain.Account)}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	key := strings.ToLower(account.Username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[key]; ok {
		return domain.ErrAccountExists
	}
	account.Projects = append([]string(nil), account.Projects...)
	r.accounts[key] = account
	return nil
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[strings.ToLower(username)]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	account.Projects = append([]string(nil), account.Projects...)
	return account, nil
}
