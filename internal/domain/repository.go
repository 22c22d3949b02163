package domain

import (
	"context"
	"errors"
	"net/url"
)

// ErrNoCredential is returned by a CredentialRepository that holds nothing.
var ErrNoCredential = errors.New("no stored credential")

// CredentialRepository persists the bearer credential between runs.
// This abstracts away the specific storage (e.g., a local file, Redis).
type CredentialRepository interface {
	// Load returns the stored credential, or ErrNoCredential.
	Load(ctx context.Context) (string, error)

	// Save replaces the stored credential.
	Save(ctx context.Context, token string) error

	// Delete removes the stored credential. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}

// AuthAPI is the identity surface of the remote logging API.
type AuthAPI interface {
	// Me verifies the current credential and returns the caller.
	Me(ctx context.Context) (*Identity, error)

	// Login exchanges credentials for a token.
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)

	// Register creates an account. The token may be empty.
	Register(ctx context.Context, req RegisterRequest) (TokenResponse, error)

	// PermittedProjects lists the projects the caller may query. The list
	// may be empty.
	PermittedProjects(ctx context.Context) ([]string, error)
}

// LogAPI is the log retrieval surface of the remote logging API.
type LogAPI interface {
	// Logs returns the records matching params in server order.
	Logs(ctx context.Context, params url.Values) ([]LogRecord, error)

	// DistinctValues returns the global set of values per filter dimension.
	DistinctValues(ctx context.Context) (FilterOptions, error)

	// CountByLevel returns the number of records per level.
	CountByLevel(ctx context.Context) (LevelCounts, error)
}
