package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAccountExists      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidQuery       = errors.New("invalid query")
)

// Account is a user of the development API. An empty Projects list grants
// access to every project.
type Account struct {
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Projects     []string
	CreatedAt    time.Time
}

// Unrestricted reports whether the account may query every project.
func (a Account) Unrestricted() bool {
	return len(a.Projects) == 0
}

// Permits reports whether the account may query project.
func (a Account) Permits(project string) bool {
	if a.Unrestricted() {
		return true
	}
	for _, p := range a.Projects {
		if p == project {
			return true
		}
	}
	return false
}

// LogQuery is a parsed log query. Projects, when non-nil, restricts the
// result to those projects in addition to ProjectName.
type LogQuery struct {
	ProjectName  string
	AppName      string
	Microservice string
	Level        string
	From         time.Time
	To           time.Time
	Projects     []string
}

// AccountRepository stores accounts of the development API.
type AccountRepository interface {
	// Create adds a new account, or returns ErrAccountExists.
	Create(ctx context.Context, account Account) error

	// FindByUsername returns the account, or ErrNotFound.
	FindByUsername(ctx context.Context, username string) (Account, error)
}

// LogRepository stores the records served by the development API.
type LogRepository interface {
	// Add stores a record and returns it with its ID and timestamp set.
	Add(ctx context.Context, record LogRecord) (LogRecord, error)

	// Query returns matching records, newest first.
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)

	// Distinct returns every value seen per filter dimension, sorted.
	Distinct(ctx context.Context) (FilterOptions, error)

	// CountByLevel returns the number of records per level.
	CountByLevel(ctx context.Context) (LevelCounts, error)
}
