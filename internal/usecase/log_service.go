package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// timestampLayouts are the accepted fromTs/toTs forms. Zone-less forms are
// read in the server's local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// MessageRedactor masks sensitive content of a record before it is stored.
type MessageRedactor interface {
	Redact(record *domain.LogRecord) bool
}

// LogService implements the /logs endpoints of the development API,
// including per-project access control.
type LogService struct {
	logs     domain.LogRepository
	accounts domain.AccountRepository
	redactor MessageRedactor
	logger   *slog.Logger
}

// NewLogService creates a new LogService.
func NewLogService(logs domain.LogRepository, accounts domain.AccountRepository, logger *slog.Logger) *LogService {
	return &LogService{
		logs:     logs,
		accounts: accounts,
		logger:   logger.With("component", "log_service"),
	}
}

// UseRedactor makes Add pass every record through r.
func (s *LogService) UseRedactor(r MessageRedactor) {
	s.redactor = r
}

// Search returns the records matching c for subject. An empty subject is
// an anonymous caller with public read access. A restricted account gets
// ErrForbidden for a project outside its grants and only sees its granted
// projects otherwise.
func (s *LogService) Search(ctx context.Context, subject string, c domain.FilterCriteria) ([]domain.LogRecord, error) {
	ctx, span := otel.Tracer("log-service").Start(ctx, "Search")
	defer span.End()

	q, err := ParseQuery(c)
	if err != nil {
		return nil, err
	}

	if subject != "" {
		account, err := s.accounts.FindByUsername(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("load account %q: %w", subject, err)
		}
		if !account.Unrestricted() {
			if q.ProjectName != "" && !account.Permits(q.ProjectName) {
				s.logger.Warn("project not permitted", "username", subject, "project", q.ProjectName)
				return nil, fmt.Errorf("%w: project %q", domain.ErrForbidden, q.ProjectName)
			}
			q.Projects = account.Projects
		}
	}

	return s.logs.Query(ctx, q)
}

// Add stores a record.
func (s *LogService) Add(ctx context.Context, record domain.LogRecord) (domain.LogRecord, error) {
	if strings.TrimSpace(record.Message) == "" {
		return domain.LogRecord{}, fmt.Errorf("%w: message is required", domain.ErrInvalidQuery)
	}
	if record.Level == "" {
		record.Level = "INFO"
	}
	record.Level = strings.ToUpper(record.Level)
	if s.redactor != nil && s.redactor.Redact(&record) {
		s.logger.Debug("redacted message fields", "project", record.ProjectName)
	}
	return s.logs.Add(ctx, record)
}

// Distinct returns the global distinct values. They are not filtered by
// access; enforcement happens in Search.
func (s *LogService) Distinct(ctx context.Context) (domain.FilterOptions, error) {
	return s.logs.Distinct(ctx)
}

// CountByLevel returns the global per-level counts.
func (s *LogService) CountByLevel(ctx context.Context) (domain.LevelCounts, error) {
	return s.logs.CountByLevel(ctx)
}

// ParseQuery converts wire criteria into a LogQuery.
func ParseQuery(c domain.FilterCriteria) (domain.LogQuery, error) {
	q := domain.LogQuery{
		ProjectName:  c.ProjectName,
		AppName:      c.AppName,
		Microservice: c.Microservice,
		Level:        c.Level,
	}

	var err error
	if q.From, err = parseTimestamp(c.FromTs); err != nil {
		return domain.LogQuery{}, fmt.Errorf("%w: fromTs: %w", domain.ErrInvalidQuery, err)
	}
	if q.To, err = parseTimestamp(c.ToTs); err != nil {
		return domain.LogQuery{}, fmt.Errorf("%w: toTs: %w", domain.ErrInvalidQuery, err)
	}
	return q, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
