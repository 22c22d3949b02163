package domain

import "errors"

var (
	// ErrSessionInvalid means the credential was rejected at the identity
	// layer (HTTP 401). The session must be discarded.
	ErrSessionInvalid = errors.New("session is no longer valid")

	// ErrForbidden means a single request was refused for the criteria it
	// carried (HTTP 403). The session stays intact.
	ErrForbidden = errors.New("not permitted")

	// ErrTransient covers network failures, server errors and malformed
	// responses unrelated to authorization.
	ErrTransient = errors.New("request failed")

	// ErrNoToken is returned when a login succeeds without a credential.
	ErrNoToken = errors.New("signed in but no token returned")

	// ErrFetchInFlight is returned when an apply is attempted while a log
	// fetch is still pending.
	ErrFetchInFlight = errors.New("a fetch is already in progress")
)
