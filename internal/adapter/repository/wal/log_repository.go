package wal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// LogRepository journals every record before handing it to the wrapped
// repository, and restores the journal into it on creation.
type LogRepository struct {
	inner   domain.LogRepository
	journal *Journal
	logger  *slog.Logger
	now     func() time.Time
}

// NewLogRepository replays journal into inner and returns the journaled
// repository.
func NewLogRepository(ctx context.Context, inner domain.LogRepository, journal *Journal, logger *slog.Logger) (*LogRepository, error) {
	r := &LogRepository{
		inner:   inner,
		journal: journal,
		logger:  logger.With("component", "wal_log_repository"),
		now:     time.Now,
	}

	err := journal.Replay(ctx, func(record domain.LogRecord) error {
		_, err := inner.Add(ctx, record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("restore journal: %w", err)
	}
	return r, nil
}

// Add assigns the record's identity, journals it and then stores it.
func (r *LogRepository) Add(ctx context.Context, record domain.LogRecord) (domain.LogRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = r.now()
	}

	if err := r.journal.Write(ctx, record); err != nil {
		r.logger.Error("failed to journal record", "record_id", record.ID, "error", err)
		return domain.LogRecord{}, fmt.Errorf("journal record: %w", err)
	}
	return r.inner.Add(ctx, record)
}

func (r *LogRepository) Query(ctx context.Context, q domain.LogQuery) ([]domain.LogRecord, error) {
	return r.inner.Query(ctx, q)
}

func (r *LogRepository) Distinct(ctx context.Context) (domain.FilterOptions, error) {
	return r.inner.Distinct(ctx)
}

func (r *LogRepository) CountByLevel(ctx context.Context) (domain.LevelCounts, error) {
	return r.inner.CountByLevel(ctx)
}
