package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/memory"
	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

type stubIssuer struct{}

func (stubIssuer) Generate(username string) (string, error) { return "token-" + username, nil }

func TestSeed(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountRepo := memory.NewAccountRepository()
	accounts := usecase.NewAccountService(accountRepo, stubIssuer{}, logger)
	logs := usecase.NewLogService(memory.NewLogRepository(100), accountRepo, logger)

	if err := seed(ctx, accounts, logs, time.Now(), true); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := accounts.Login(ctx, domain.LoginRequest{Username: "alice", Password: "alice"}); err != nil {
		t.Errorf("expected alice to sign in, got %v", err)
	}

	all, err := logs.Search(ctx, "admin", domain.FilterCriteria{})
	if err != nil {
		t.Fatalf("Search as admin: %v", err)
	}
	if len(all) != len(seedRecords) {
		t.Errorf("expected %d records, got %d", len(seedRecords), len(all))
	}

	restricted, err := logs.Search(ctx, "alice", domain.FilterCriteria{})
	if err != nil {
		t.Fatalf("Search as alice: %v", err)
	}
	for _, rec := range restricted {
		if rec.ProjectName != "alpha" {
			t.Errorf("alice saw a record from %q", rec.ProjectName)
		}
	}
	if len(restricted) == 0 || !restricted[0].Timestamp.After(restricted[len(restricted)-1].Timestamp) {
		t.Error("expected alpha records newest first")
	}
}

func TestSeed_AccountsOnly(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountRepo := memory.NewAccountRepository()
	accounts := usecase.NewAccountService(accountRepo, stubIssuer{}, logger)
	logs := usecase.NewLogService(memory.NewLogRepository(100), accountRepo, logger)

	if err := seed(ctx, accounts, logs, time.Now(), false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	records, err := logs.Search(ctx, "", domain.FilterCriteria{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
