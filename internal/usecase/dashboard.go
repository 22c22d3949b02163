package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/V4T54L/watch-tower-console/internal/adapter/metrics"
	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// Ticket tags an issued request. Only the result carrying the latest
// ticket of its kind is applied; older ones are dropped.
type Ticket uint64

// LogRequest is a log query ready to be dispatched.
type LogRequest struct {
	Ticket Ticket
	Params url.Values
}

// LogResult is the settled outcome of a LogRequest.
type LogResult struct {
	Ticket  Ticket
	Params  url.Values
	Records []domain.LogRecord
	Err     error
}

// OptionRequest asks for a fresh FilterOptions.
type OptionRequest struct {
	Ticket        Ticket
	Authenticated bool
}

// OptionResult is the settled outcome of an OptionRequest.
type OptionResult struct {
	Ticket  Ticket
	Options domain.FilterOptions
	Plan    OptionPlan
	Err     error
}

// CountRequest asks for the per-level summary.
type CountRequest struct {
	Ticket Ticket
}

// CountResult is the settled outcome of a CountRequest.
type CountResult struct {
	Ticket Ticket
	Counts domain.LevelCounts
	Err    error
}

// Activation is everything a newly shown dashboard must fetch: exactly one
// option resolution and one unfiltered log query, plus the level summary.
type Activation struct {
	Options OptionRequest
	Logs    LogRequest
	Counts  CountRequest
}

// Dashboard is the state behind the dashboard view: the filter form, the
// dropdown options, the current rows and which of them are expanded.
//
// The state methods are meant to be called from a single event loop. The
// Fetch*/Resolve* methods perform I/O only and may run on any goroutine;
// their results re-enter the loop through the matching Apply* method.
type Dashboard struct {
	logs     domain.LogAPI
	resolver *OptionResolver
	logger   *slog.Logger
	metrics  *metrics.ClientMetrics

	criteria domain.FilterCriteria
	options  domain.FilterOptions
	records  []domain.LogRecord
	expanded map[string]struct{}
	counts   domain.LevelCounts

	logTicket    Ticket
	optionTicket Ticket
	countTicket  Ticket

	logsPending    bool
	optionsPending bool

	notice        string
	optionsNotice string
}

// NewDashboard creates a new Dashboard. m may be nil.
func NewDashboard(logs domain.LogAPI, resolver *OptionResolver, logger *slog.Logger, m *metrics.ClientMetrics) *Dashboard {
	d := &Dashboard{
		logs:     logs,
		resolver: resolver,
		logger:   logger.With("component", "dashboard"),
		metrics:  m,
	}
	d.reset()
	return d
}

func (d *Dashboard) reset() {
	d.criteria = domain.FilterCriteria{}
	d.options = domain.FilterOptions{Projects: []string{}, Apps: []string{}, Microservices: []string{}, Levels: []string{}}
	d.records = []domain.LogRecord{}
	d.expanded = make(map[string]struct{})
	d.counts = nil
	d.logsPending = false
	d.optionsPending = false
	d.notice = ""
	d.optionsNotice = ""
}

// Activate resets the view for sess and returns the initial fetches.
func (d *Dashboard) Activate(sess domain.Session) Activation {
	d.reset()
	return Activation{
		Options: d.issueOptions(sess.Authenticated()),
		Logs:    d.issueLogs(url.Values{}),
		Counts:  d.issueCounts(),
	}
}

// Deactivate clears every row and option and orphans all in-flight
// requests, so nothing fetched under the previous session is shown.
func (d *Dashboard) Deactivate() {
	d.logTicket++
	d.optionTicket++
	d.countTicket++
	d.reset()
}

// Criteria returns the filter form.
func (d *Dashboard) Criteria() domain.FilterCriteria { return d.criteria }

// SetCriterion records user input for field f.
func (d *Dashboard) SetCriterion(f domain.FilterField, value string) {
	d.criteria = d.criteria.With(f, value)
}

// Apply issues a log query for the current criteria. It is refused while
// another log fetch is pending; applies are never queued.
func (d *Dashboard) Apply() (LogRequest, error) {
	if d.logsPending {
		return LogRequest{}, domain.ErrFetchInFlight
	}
	return d.issueLogs(BuildQuery(d.criteria)), nil
}

// Clear resets the criteria and issues an unfiltered query, superseding
// any pending one.
func (d *Dashboard) Clear() LogRequest {
	d.criteria = domain.FilterCriteria{}
	return d.issueLogs(url.Values{})
}

// RefreshOptions issues a new option resolution.
func (d *Dashboard) RefreshOptions(sess domain.Session) OptionRequest {
	return d.issueOptions(sess.Authenticated())
}

func (d *Dashboard) issueLogs(params url.Values) LogRequest {
	d.logTicket++
	d.logsPending = true
	return LogRequest{Ticket: d.logTicket, Params: params}
}

func (d *Dashboard) issueOptions(authenticated bool) OptionRequest {
	d.optionTicket++
	d.optionsPending = true
	return OptionRequest{Ticket: d.optionTicket, Authenticated: authenticated}
}

func (d *Dashboard) issueCounts() CountRequest {
	d.countTicket++
	return CountRequest{Ticket: d.countTicket}
}

// FetchLogs performs the query described by req.
func (d *Dashboard) FetchLogs(ctx context.Context, req LogRequest) LogResult {
	ctx, span := otel.Tracer("dashboard").Start(ctx, "FetchLogs")
	defer span.End()

	records, err := d.logs.Logs(ctx, req.Params)
	return LogResult{Ticket: req.Ticket, Params: req.Params, Records: records, Err: err}
}

// ResolveOptions performs the option resolution described by req.
func (d *Dashboard) ResolveOptions(ctx context.Context, req OptionRequest) OptionResult {
	opts, plan, err := d.resolver.Resolve(ctx, req.Authenticated)
	return OptionResult{Ticket: req.Ticket, Options: opts, Plan: plan, Err: err}
}

// FetchCounts loads the per-level summary.
func (d *Dashboard) FetchCounts(ctx context.Context, req CountRequest) CountResult {
	counts, err := d.logs.CountByLevel(ctx)
	return CountResult{Ticket: req.Ticket, Counts: counts, Err: err}
}

// ApplyLogs integrates a settled log fetch. It reports false when the
// result was superseded and dropped.
//
// A permission failure keeps the rows on screen and explains which
// constraint was refused. Any other failure empties the rows.
func (d *Dashboard) ApplyLogs(res LogResult) bool {
	if res.Ticket != d.logTicket {
		d.stale("logs")
		return false
	}
	d.logsPending = false

	switch {
	case res.Err == nil:
		d.records = res.Records
		if d.records == nil {
			d.records = []domain.LogRecord{}
		}
		d.notice = ""
	case errors.Is(res.Err, domain.ErrForbidden):
		d.notice = permissionNotice(res.Params)
		d.logger.Warn("log query refused", "params", res.Params.Encode())
	case errors.Is(res.Err, domain.ErrSessionInvalid):
		d.records = []domain.LogRecord{}
		d.notice = "Your session has expired. Sign in again."
	default:
		d.records = []domain.LogRecord{}
		d.notice = "Failed to load logs. Apply the filters again to retry."
		d.logger.Error("log query failed", "error", res.Err)
	}
	return true
}

// ApplyOptions replaces the options wholesale with a settled resolution.
func (d *Dashboard) ApplyOptions(res OptionResult) bool {
	if res.Ticket != d.optionTicket {
		d.stale("options")
		return false
	}
	d.optionsPending = false
	d.options = res.Options
	d.optionsNotice = ""
	if res.Err != nil {
		d.optionsNotice = "Some filter options could not be loaded."
	}
	return true
}

// ApplyCounts stores a settled level summary. Failures leave it empty.
func (d *Dashboard) ApplyCounts(res CountResult) bool {
	if res.Ticket != d.countTicket {
		d.stale("counts")
		return false
	}
	if res.Err != nil {
		d.logger.Warn("failed to load level counts", "error", res.Err)
		d.counts = nil
		return true
	}
	d.counts = res.Counts
	return true
}

func (d *Dashboard) stale(kind string) {
	if d.metrics != nil {
		d.metrics.StaleResponsesTotal.WithLabelValues(kind).Inc()
	}
	d.logger.Debug("dropped superseded response", "kind", kind)
}

// Toggle flips the expansion of the row with the given id. Ids that are
// not in the current rows are tracked too; they simply have no effect.
func (d *Dashboard) Toggle(id string) {
	if _, ok := d.expanded[id]; ok {
		delete(d.expanded, id)
		return
	}
	d.expanded[id] = struct{}{}
}

// Expanded reports whether the row with the given id is expanded.
func (d *Dashboard) Expanded(id string) bool {
	_, ok := d.expanded[id]
	return ok
}

// Busy reports whether a log fetch is pending; Apply is refused meanwhile.
func (d *Dashboard) Busy() bool { return d.logsPending }

// LoadingOptions reports whether an option resolution is pending.
func (d *Dashboard) LoadingOptions() bool { return d.optionsPending }

func (d *Dashboard) Records() []domain.LogRecord  { return d.records }
func (d *Dashboard) Options() domain.FilterOptions { return d.options }
func (d *Dashboard) Counts() domain.LevelCounts    { return d.counts }

// Notice is the user-facing message about the last log fetch, if any.
func (d *Dashboard) Notice() string { return d.notice }

// OptionsNotice is the user-facing message about the last option
// resolution, if any.
func (d *Dashboard) OptionsNotice() string { return d.optionsNotice }

// permissionNotice names the refused constraint: the project when one was
// sent, otherwise every constraint.
func permissionNotice(params url.Values) string {
	if p := params.Get(string(domain.FieldProjectName)); p != "" {
		return fmt.Sprintf("You are not permitted to view logs for project %q. Showing previous results.", p)
	}

	var parts []string
	for _, f := range domain.FilterFields {
		if v := params.Get(string(f)); v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", f, v))
		}
	}
	if len(parts) == 0 {
		return "You are not permitted to view these logs. Showing previous results."
	}
	return fmt.Sprintf("You are not permitted to query %s. Showing previous results.", strings.Join(parts, ", "))
}
