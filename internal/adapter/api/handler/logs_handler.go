package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/middleware"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// LogUseCase is the log logic behind LogsHandler.
type LogUseCase interface {
	Search(ctx context.Context, subject string, c domain.FilterCriteria) ([]domain.LogRecord, error)
	Add(ctx context.Context, record domain.LogRecord) (domain.LogRecord, error)
	Distinct(ctx context.Context) (domain.FilterOptions, error)
	CountByLevel(ctx context.Context) (domain.LevelCounts, error)
}

// LogsHandler handles the /logs endpoints.
type LogsHandler struct {
	uc     LogUseCase
	rate   *RateBroker
	logger *slog.Logger
}

// NewLogsHandler creates a new LogsHandler. rate may be nil.
func NewLogsHandler(uc LogUseCase, rate *RateBroker, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{uc: uc, rate: rate, logger: logger.With("component", "logs_handler")}
}

// Search returns the records matching the query parameters.
// GET /logs?projectName=&appName=&microservice=&level=&fromTs=&toTs=
func (h *LogsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var c domain.FilterCriteria
	for _, f := range domain.FilterFields {
		c = c.With(f, q.Get(string(f)))
	}

	subject, _ := middleware.Subject(r.Context())
	records, err := h.uc.Search(r.Context(), subject, c)
	switch {
	case err == nil:
		writeJSON(w, h.logger, http.StatusOK, records)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, h.logger, http.StatusForbidden, "you do not have access to project "+c.ProjectName)
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, h.logger, http.StatusUnauthorized, "account no longer exists")
	default:
		h.logger.Error("log search failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

// Add stores one record.
// POST /logs
func (h *LogsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var rec domain.LogRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, err := h.uc.Add(r.Context(), rec)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to add log", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.rate != nil {
		h.rate.Record(stored)
	}
	writeJSON(w, h.logger, http.StatusCreated, stored)
}

// DistinctValues returns the global values per filter dimension.
// GET /logs/distinctValues
func (h *LogsHandler) DistinctValues(w http.ResponseWriter, r *http.Request) {
	opts, err := h.uc.Distinct(r.Context())
	if err != nil {
		h.logger.Error("failed to load distinct values", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, opts)
}

// CountByLevel returns the number of records per level.
// GET /logs/countByLevel
func (h *LogsHandler) CountByLevel(w http.ResponseWriter, r *http.Request) {
	counts, err := h.uc.CountByLevel(r.Context())
	if err != nil {
		h.logger.Error("failed to count levels", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, counts)
}
