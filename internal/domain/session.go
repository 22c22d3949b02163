package domain

import (
	"encoding/json"
	"fmt"
)

// SessionStatus is the authentication state of the dashboard.
type SessionStatus int

const (
	StatusLoading SessionStatus = iota
	StatusUnauthenticated
	StatusAuthenticating
	StatusAuthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("SessionStatus(%d)", int(s))
}

// Identity is the caller as reported by GET /auth/me.
type Identity struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

// UnmarshalJSON accepts either an identity object or a bare string, which
// is taken to be the username.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var username string
	if err := json.Unmarshal(data, &username); err == nil {
		*i = Identity{Username: username}
		return nil
	}

	type plain Identity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Identity(p)
	return nil
}

// DisplayName returns the best human-readable name for the identity.
func (i *Identity) DisplayName() string {
	switch {
	case i == nil:
		return "You"
	case i.Name != "":
		return i.Name
	case i.Username != "":
		return i.Username
	}
	return "You"
}

// Session is a point-in-time view of the session state.
// Identity is non-nil exactly when Status is StatusAuthenticated.
type Session struct {
	Token    string
	Status   SessionStatus
	Identity *Identity
}

// Authenticated reports whether the session carries a verified identity.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by login and registration. Token may be empty
// for registration.
type TokenResponse struct {
	Token string `json:"token"`
}
