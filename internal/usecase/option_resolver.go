package usecase

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/V4T54L/watch-tower-console/internal/adapter/metrics"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// ProjectSource says where the project dropdown gets its values.
type ProjectSource string

const (
	UsePermittedProjects ProjectSource = "permitted"
	UseGlobalFallback    ProjectSource = "global"
)

// FallbackReason explains a UseGlobalFallback outcome.
type FallbackReason string

const (
	ReasonNone                  FallbackReason = ""
	ReasonUnauthenticated       FallbackReason = "unauthenticated"
	ReasonPermittedLookupFailed FallbackReason = "permitted_lookup_failed"
	// ReasonNoExplicitGrants covers an empty permitted list. Whether that
	// means "unrestricted" or "nothing" is up to the API, which enforces
	// access on every query anyway.
	ReasonNoExplicitGrants FallbackReason = "no_explicit_grants"
)

// OptionPlan is the outcome of the project-source decision.
type OptionPlan struct {
	Source ProjectSource
	Reason FallbackReason
}

// PlanOptions decides the project source from the session state and the
// outcome of the permitted-project lookup. Apps, microservices and levels
// always come from the global distinct values.
//
//	authenticated | lookup             | projects from
//	--------------+--------------------+-------------------------------
//	no            | (not requested)    | global (unauthenticated)
//	yes           | error              | global (permitted_lookup_failed)
//	yes           | empty list         | global (no_explicit_grants)
//	yes           | non-empty list     | permitted list
func PlanOptions(authenticated bool, permitted []string, permittedErr error) OptionPlan {
	switch {
	case !authenticated:
		return OptionPlan{Source: UseGlobalFallback, Reason: ReasonUnauthenticated}
	case permittedErr != nil:
		return OptionPlan{Source: UseGlobalFallback, Reason: ReasonPermittedLookupFailed}
	case len(permitted) == 0:
		return OptionPlan{Source: UseGlobalFallback, Reason: ReasonNoExplicitGrants}
	default:
		return OptionPlan{Source: UsePermittedProjects, Reason: ReasonNone}
	}
}

// OptionResolver builds the FilterOptions the current user may pick from.
// It never enforces access itself.
type OptionResolver struct {
	auth    domain.AuthAPI
	logs    domain.LogAPI
	logger  *slog.Logger
	metrics *metrics.ClientMetrics
}

// NewOptionResolver creates a new OptionResolver. m may be nil.
func NewOptionResolver(auth domain.AuthAPI, logs domain.LogAPI, logger *slog.Logger, m *metrics.ClientMetrics) *OptionResolver {
	return &OptionResolver{
		auth:    auth,
		logs:    logs,
		logger:  logger.With("component", "option_resolver"),
		metrics: m,
	}
}

// Resolve returns a complete FilterOptions in every case. The error reports
// a distinct-values failure, which leaves the affected dimensions empty; a
// failed permitted-project lookup is not an error, it is a fallback.
func (r *OptionResolver) Resolve(ctx context.Context, authenticated bool) (domain.FilterOptions, OptionPlan, error) {
	ctx, span := otel.Tracer("option-resolver").Start(ctx, "Resolve")
	defer span.End()

	var (
		wg           sync.WaitGroup
		permitted    []string
		permittedErr error
		global       domain.FilterOptions
		globalErr    error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		global, globalErr = r.logs.DistinctValues(ctx)
	}()

	if authenticated {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permitted, permittedErr = r.auth.PermittedProjects(ctx)
		}()
	}

	wg.Wait()

	plan := PlanOptions(authenticated, permitted, permittedErr)
	if permittedErr != nil {
		r.logger.Warn("permitted project lookup failed, using global projects", "error", permittedErr)
	}
	if globalErr != nil {
		r.logger.Error("failed to load distinct values", "error", globalErr)
		global = domain.FilterOptions{}
	}

	opts := domain.FilterOptions{
		Projects:      nonNil(global.Projects),
		Apps:          nonNil(global.Apps),
		Microservices: nonNil(global.Microservices),
		Levels:        nonNil(global.Levels),
	}
	if plan.Source == UsePermittedProjects {
		opts.Projects = append([]string{}, permitted...)
	} else if r.metrics != nil {
		r.metrics.OptionFallbacksTotal.WithLabelValues(string(plan.Reason)).Inc()
	}

	r.logger.Debug("resolved filter options",
		"source", plan.Source,
		"reason", plan.Reason,
		"projects", len(opts.Projects),
		"apps", len(opts.Apps),
		"microservices", len(opts.Microservices),
		"levels", len(opts.Levels),
	)
	return opts, plan, globalErr
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
