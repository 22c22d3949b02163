// Package pii masks sensitive fields in structured log messages before
// they are stored.
package pii

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks configured fields of log messages that are JSON objects.
// Plain-text messages are left alone.
type Redactor struct {
	fields map[string]struct{}
	logger *slog.Logger
}

// NewRedactor creates a Redactor for fields. Field names match
// case-insensitively; blank names are ignored.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			set[f] = struct{}{}
		}
	}
	return &Redactor{
		fields: set,
		logger: logger.With("component", "pii_redactor"),
	}
}

// Redact masks the configured top-level fields of record.Message in place
// and reports whether anything was masked.
func (r *Redactor) Redact(record *domain.LogRecord) bool {
	if len(r.fields) == 0 {
		return false
	}
	msg := strings.TrimSpace(record.Message)
	if !strings.HasPrefix(msg, "{") {
		return false
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(msg), &payload); err != nil {
		r.logger.Debug("message looks like JSON but does not parse, leaving it as is", "error", err)
		return false
	}

	redacted := false
	for key := range payload {
		if _, ok := r.fields[strings.ToLower(key)]; ok {
			payload[key] = RedactedPlaceholder
			redacted = true
		}
	}
	if !redacted {
		return false
	}

	out, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal redacted message", "error", err, "record_id", record.ID)
		record.Message = RedactedPlaceholder
		return true
	}
	record.Message = string(out)
	return true
}
