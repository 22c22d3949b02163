package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/memory"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

type fakeIssuer struct{}

func (fakeIssuer) Generate(username string) (string, error) { return "token-" + username, nil }

func newAccountService(t *testing.T) (*AccountService, *memory.AccountRepository) {
	t.Helper()
	repo := memory.NewAccountRepository()
	svc := NewAccountService(repo, fakeIssuer{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAccountService(t)

	tok, err := svc.Register(ctx, domain.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tok != "token-ada" {
		t.Errorf("unexpected token %q", tok)
	}

	if _, err := svc.Register(ctx, domain.RegisterRequest{Username: "ada", Password: "pw"}); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("expected ErrAccountExists, got %v", err)
	}
	if _, err := svc.Register(ctx, domain.RegisterRequest{Username: " ", Password: "pw"}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "Valid", username: "ada", password: "pw"},
		{name: "Wrong Password", username: "ada", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "Unknown User", username: "bob", password: "pw", wantErr: domain.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, domain.LoginRequest{Username: tt.username, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	projects, err := svc.PermittedProjects(ctx, "ada")
	if err != nil || projects == nil || len(projects) != 0 {
		t.Errorf("expected an empty, non-nil grant list, got %v (%v)", projects, err)
	}

	id, err := svc.Identity(ctx, "ada")
	if err != nil || id.Username != "ada" {
		t.Errorf("unexpected identity %+v (%v)", id, err)
	}
}

func TestLogService_Search(t *testing.T) {
	ctx := context.Background()
	accounts, logs := memory.NewAccountRepository(), memory.NewLogRepository(100)
	_ = accounts.Create(ctx, domain.Account{Username: "admin"})
	_ = accounts.Create(ctx, domain.Account{Username: "alice", Projects: []string{"alpha"}})

	svc := NewLogService(logs, accounts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, p := range []string{"alpha", "beta"} {
		if _, err := svc.Add(ctx, domain.LogRecord{ProjectName: p, Level: "info", Message: "hello " + p}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	tests := []struct {
		name     string
		subject  string
		criteria domain.FilterCriteria
		wantLen  int
		wantErr  error
	}{
		{name: "Anonymous Sees Everything", subject: "", wantLen: 2},
		{name: "Unrestricted Account", subject: "admin", wantLen: 2},
		{name: "Restricted Account Limited To Grants", subject: "alice", wantLen: 1},
		{name: "Restricted Account Permitted Project", subject: "alice", criteria: domain.FilterCriteria{ProjectName: "alpha"}, wantLen: 1},
		{name: "Restricted Account Forbidden Project", subject: "alice", criteria: domain.FilterCriteria{ProjectName: "beta"}, wantErr: domain.ErrForbidden},
		{name: "Level Is Normalised On Add", subject: "", criteria: domain.FilterCriteria{Level: "INFO"}, wantLen: 2},
		{name: "Bad Timestamp", subject: "", criteria: domain.FilterCriteria{FromTs: "yesterday"}, wantErr: domain.ErrInvalidQuery},
		{name: "Unknown Subject", subject: "ghost", wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(ctx, tt.subject, tt.criteria)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("expected %d records, got %d", tt.wantLen, len(got))
			}
		})
	}

	if _, err := svc.Add(ctx, domain.LogRecord{Message: "  "}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for an empty message, got %v", err)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(domain.FilterCriteria{FromTs: "2024-01-01T10:00:00", ToTs: "2024-01-01T10:00"})
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	if !q.From.Equal(want) || !q.To.Equal(want) {
		t.Errorf("expected both bounds at %v, got %v and %v", want, q.From, q.To)
	}
}

type maskAll struct{ calls int }

func (m *maskAll) Redact(record *domain.LogRecord) bool {
	m.calls++
	record.Message = "[REDACTED]"
	return true
}

func TestLogService_Add(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewLogService(memory.NewLogRepository(10), memory.NewAccountRepository(), logger)

	if _, err := svc.Add(ctx, domain.LogRecord{Message: "  "}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for a blank message, got %v", err)
	}

	rec, err := svc.Add(ctx, domain.LogRecord{ProjectName: "alpha", Message: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Level != "INFO" || rec.ID == "" {
		t.Errorf("expected a defaulted level and an id, got %+v", rec)
	}

	redactor := &maskAll{}
	svc.UseRedactor(redactor)
	rec, err = svc.Add(ctx, domain.LogRecord{Level: "warn", Message: `{"password":"hunter2"}`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if redactor.calls != 1 || rec.Message != "[REDACTED]" || rec.Level != "WARN" {
		t.Errorf("expected the stored record to be redacted, got %+v", rec)
	}
}
