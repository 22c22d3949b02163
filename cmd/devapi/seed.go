package main

import (
	"context"
	"fmt"
	"time"

	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

type seedAccount struct {
	account  domain.Account
	password string
}

// admin has no grants and sees every project; alice only sees alpha.
var seedAccounts = []seedAccount{
	{account: domain.Account{Username: "admin", Name: "Administrator", Email: "admin@example.com"}, password: "admin"},
	{account: domain.Account{Username: "alice", Name: "Alice", Email: "alice@example.com", Projects: []string{"alpha"}}, password: "alice"},
}

var seedRecords = []domain.LogRecord{
	{ProjectName: "alpha", AppName: "checkout", Microservice: "api-gw", SourceApp: "nginx", Level: "INFO", Message: "GET /cart 200"},
	{ProjectName: "alpha", AppName: "checkout", Microservice: "payments", SourceApp: "payments-svc", Level: "ERROR", Message: "card declined: insufficient funds\norder=8841 attempt=2"},
	{ProjectName: "alpha", AppName: "checkout", Microservice: "payments", SourceApp: "payments-svc", Level: "WARN", Message: "provider latency above 800ms"},
	{ProjectName: "alpha", AppName: "search", Microservice: "indexer", SourceApp: "indexer", Level: "DEBUG", Message: "reindexed 1204 documents"},
	{ProjectName: "beta", AppName: "billing", Microservice: "invoices", SourceApp: "cron", Level: "INFO", Message: "monthly invoices generated"},
	{ProjectName: "beta", AppName: "billing", Microservice: "ledger", SourceApp: "ledger-svc", Level: "ERROR", Message: "ledger imbalance detected for account 4411"},
	{ProjectName: "gamma", AppName: "auth", Microservice: "sessions", SourceApp: "auth-svc", Level: "WARN", Message: "token refresh rate limited"},
	{ProjectName: "gamma", AppName: "auth", Microservice: "sessions", SourceApp: "auth-svc", Level: "INFO", Message: "user signed in"},
}

// seed creates the sample accounts and, when withRecords is set, the
// sample records spaced a few minutes apart ending at now. Accounts are
// not journaled, so they are created on every start.
func seed(ctx context.Context, accounts *usecase.AccountService, logs *usecase.LogService, now time.Time, withRecords bool) error {
	for _, a := range seedAccounts {
		if err := accounts.Create(ctx, a.account, a.password); err != nil {
			return fmt.Errorf("create account %q: %w", a.account.Username, err)
		}
	}
	if !withRecords {
		return nil
	}
	for i, rec := range seedRecords {
		rec.Timestamp = now.Add(-time.Duration(len(seedRecords)-i) * 7 * time.Minute)
		if _, err := logs.Add(ctx, rec); err != nil {
			return fmt.Errorf("add record %d: %w", i, err)
		}
	}
	return nil
}
