package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// TokenIssuer creates bearer tokens for a username.
type TokenIssuer interface {
	Generate(username string) (string, error)
}

// AccountService implements the /auth endpoints of the development API.
type AccountService struct {
	accounts domain.AccountRepository
	tokens   TokenIssuer
	logger   *slog.Logger
	cost     int
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts domain.AccountRepository, tokens TokenIssuer, logger *slog.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger.With("component", "account_service"),
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates an account with no project grants and signs it in.
func (s *AccountService) Register(ctx context.Context, req domain.RegisterRequest) (string, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return "", fmt.Errorf("%w: username and password are required", domain.ErrInvalidQuery)
	}

	if err := s.Create(ctx, domain.Account{Username: req.Username, Email: req.Email}, req.Password); err != nil {
		return "", err
	}
	return s.tokens.Generate(req.Username)
}

// Create stores account with a hash of password.
func (s *AccountService) Create(ctx context.Context, account domain.Account, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = string(hash)
	account.CreatedAt = time.Now()

	if err := s.accounts.Create(ctx, account); err != nil {
		return err
	}
	s.logger.Info("account created", "username", account.Username, "projects", len(account.Projects))
	return nil
}

// Login checks the password and issues a token.
func (s *AccountService) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	account, err := s.accounts.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	return s.tokens.Generate(account.Username)
}

// Identity returns the public identity of username.
func (s *AccountService) Identity(ctx context.Context, username string) (domain.Identity, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Name: account.Name, Username: account.Username}, nil
}

// PermittedProjects returns the explicit project grants of username. An
// empty list means the account is unrestricted.
func (s *AccountService) PermittedProjects(ctx context.Context, username string) ([]string, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account.Projects == nil {
		return []string{}, nil
	}
	return account.Projects, nil
}
