package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/middleware"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// AccountUseCase is the account logic behind AuthHandler.
type AccountUseCase interface {
	Register(ctx context.Context, req domain.RegisterRequest) (string, error)
	Login(ctx context.Context, req domain.LoginRequest) (string, error)
	Identity(ctx context.Context, username string) (domain.Identity, error)
	PermittedProjects(ctx context.Context, username string) ([]string, error)
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	uc     AccountUseCase
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(uc AccountUseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, logger: logger.With("component", "auth_handler")}
}

// Login exchanges credentials for a token.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.uc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, h.logger, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, domain.TokenResponse{Token: token})
}

// Register creates an account and signs it in.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.uc.Register(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, h.logger, http.StatusCreated, domain.TokenResponse{Token: token})
	case errors.Is(err, domain.ErrAccountExists):
		writeError(w, h.logger, http.StatusConflict, "username already taken")
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, h.logger, http.StatusBadRequest, "username and password are required")
	default:
		h.logger.Error("registration failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

// Me returns the caller's identity.
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.Subject(r.Context())

	id, err := h.uc.Identity(r.Context(), username)
	if err != nil {
		h.accountError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, id)
}

// Projects returns the caller's explicit project grants.
// GET /auth/projects
func (h *AuthHandler) Projects(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.Subject(r.Context())

	projects, err := h.uc.PermittedProjects(r.Context(), username)
	if err != nil {
		h.accountError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string][]string{"projects": projects})
}

// accountError maps a lookup failure for an authenticated caller. A token
// for an account that no longer exists is as good as an invalid one.
func (h *AuthHandler) accountError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, h.logger, http.StatusUnauthorized, "account no longer exists")
		return
	}
	h.logger.Error("account lookup failed", "error", err)
	writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
}
