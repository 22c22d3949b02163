// Command devapi serves an in-memory logging API with the same contract as
// the hosted one, for running the dashboard locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api"
	"github.com/V4T54L/watch-tower-console/internal/adapter/api/handler"
	"github.com/V4T54L/watch-tower-console/internal/adapter/pii"
	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/memory"
	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/wal"
	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/pkg/config"
	"github.com/V4T54L/watch-tower-console/internal/pkg/logger"
	"github.com/V4T54L/watch-tower-console/internal/pkg/token"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("dev api failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, err := token.NewManager(cfg.DevAPIJWTSecret, cfg.DevAPITokenTTL)
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}

	// --- Repositories and Use Cases ---
	accountRepo := memory.NewAccountRepository()
	var logRepo domain.LogRepository = memory.NewLogRepository(cfg.DevAPICapacity)

	restored := false
	if cfg.DevAPIWALDir != "" {
		journal, err := wal.NewJournal(cfg.DevAPIWALDir, cfg.WALSegmentSize, cfg.WALMaxDiskSize, logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()

		journaled, err := wal.NewLogRepository(ctx, logRepo, journal, logger)
		if err != nil {
			return err
		}
		if counts, err := journaled.CountByLevel(ctx); err == nil && len(counts) > 0 {
			restored = true
		}
		logRepo = journaled
	}

	accounts := usecase.NewAccountService(accountRepo, tokens, logger)
	logs := usecase.NewLogService(logRepo, accountRepo, logger)
	logs.UseRedactor(pii.NewRedactor(cfg.DevAPIRedact, logger))

	if cfg.DevAPISeed {
		if err := seed(ctx, accounts, logs, time.Now(), !restored); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeded sample data", "accounts", len(seedAccounts), "with_records", !restored)
	}

	// --- HTTP Server ---
	rate := handler.NewRateBroker(ctx, 2*time.Second, logger)
	server := &http.Server{
		Addr:              cfg.DevAPIAddr,
		Handler:           api.NewRouter(accounts, logs, tokens, rate, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting dev api", "addr", server.Addr, "base_path", api.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down dev api...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("dev api shutdown failed", "error", err)
	}

	select {
	case err := <-serveErr:
		return err
	default:
	}
	logger.Info("dev api shut down gracefully")
	return nil
}
