package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// Error represents a non-2xx response of the logging API.
type Error struct {
	Code    int
	Message string
	Body    []byte
}

// Error returns the string representation of the error.
func (e Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("code=%d", e.Code)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// Is maps the status code onto the domain error taxonomy, so callers can
// use errors.Is(err, domain.ErrForbidden) and friends.
func (e Error) Is(target error) bool {
	switch target {
	case domain.ErrSessionInvalid:
		return e.Code == http.StatusUnauthorized
	case domain.ErrForbidden:
		return e.Code == http.StatusForbidden
	case domain.ErrTransient:
		return e.Code != http.StatusUnauthorized && e.Code != http.StatusForbidden
	}
	return false
}

// Message extracts the most useful human-readable text from err: the API's
// own message when there is one, err.Error() otherwise.
func Message(err error) string {
	var apiErr Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

const maxErrorMessage = 200

func newError(code int, body []byte) Error {
	e := Error{Code: code, Body: body}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = payload.Error
		if e.Message == "" {
			e.Message = payload.Message
		}
		return e
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	e.Message = msg
	return e
}
