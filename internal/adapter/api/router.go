package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/handler"
	"github.com/V4T54L/watch-tower-console/internal/adapter/api/middleware"
)

// BasePath is where the development API mounts its endpoints, matching the
// /api prefix of the hosted logging API.
const BasePath = "/api"

// NewRouter creates the HTTP router of the development API. rate may be
// nil, which disables the /logs/rate stream.
func NewRouter(
	accounts handler.AccountUseCase,
	logs handler.LogUseCase,
	tokens middleware.TokenValidator,
	rate *handler.RateBroker,
	logger *slog.Logger,
) http.Handler {
	authHandler := handler.NewAuthHandler(accounts, logger)
	logsHandler := handler.NewLogsHandler(logs, rate, logger)

	// Middleware
	requireAuth := middleware.Auth(tokens, logger, true)
	optionalAuth := middleware.Auth(tokens, logger, false)
	compress := func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) }

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route(BasePath, func(r chi.Router) {
		// The event stream must not be buffered by the compressor.
		if rate != nil {
			r.Get("/logs/rate", rate.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(compress)

			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/register", authHandler.Register)
			r.With(requireAuth).Get("/auth/me", authHandler.Me)
			r.With(requireAuth).Get("/auth/projects", authHandler.Projects)

			r.With(optionalAuth).Get("/logs", logsHandler.Search)
			r.With(requireAuth).Post("/logs", logsHandler.Add)
			r.With(optionalAuth).Get("/logs/distinctValues", logsHandler.DistinctValues)
			r.With(optionalAuth).Get("/logs/countByLevel", logsHandler.CountByLevel)
		})
	})

	return r
}
