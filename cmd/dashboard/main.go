package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/client"
	"github.com/V4T54L/watch-tower-console/internal/adapter/metrics"
	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/file"
	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/memory"
	redisrepo "github.com/V4T54L/watch-tower-console/internal/adapter/repository/redis"
	"github.com/V4T54L/watch-tower-console/internal/adapter/tui"
	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/pkg/config"
	"github.com/V4T54L/watch-tower-console/internal/pkg/logger"
	"github.com/V4T54L/watch-tower-console/internal/session"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "watch-tower:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := logger.New(cfg.LogLevel, logFile)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewClientMetrics(prometheus.DefaultRegisterer)

	// --- Metrics Server ---
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting metrics server", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	// --- Credential Storage ---
	repo, closeRepo, err := newCredentialRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	// --- Session, Transport and Use Cases ---
	store := session.NewStore(repo, logger, m)

	api, err := client.New(client.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.APITimeout,
		RateLimit: rate.Limit(cfg.APIRateLimit),
		RateBurst: cfg.APIRateBurst,
	}, store, logger, m)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	gate := usecase.NewAuthGate(store, api, logger)
	resolver := usecase.NewOptionResolver(api, api, logger, m)
	dashboard := usecase.NewDashboard(api, resolver, logger, m)

	// --- Terminal UI ---
	model := tui.New(ctx, gate, dashboard, store, logger)
	program := tui.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	logger.Info("starting dashboard", "api", cfg.APIURL, "credential_store", cfg.CredentialStore)
	_, runErr := program.Run()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", runErr)
	}
	logger.Info("dashboard stopped")
	return nil
}

func newCredentialRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.CredentialRepository, func(), error) {
	switch cfg.CredentialStore {
	case config.CredentialStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, the stored credential is unavailable", "error", err)
		}
		return redisrepo.NewCredentialRepository(rdb, cfg.CredentialKey, logger), func() { _ = rdb.Close() }, nil
	case config.CredentialStoreMemory:
		return memory.NewCredentialRepository(), func() {}, nil
	default:
		return file.NewCredentialRepository(cfg.CredentialFile, logger), func() {}, nil
	}
}
