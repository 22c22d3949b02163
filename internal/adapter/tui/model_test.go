package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/domain/mocks"
	"github.com/V4T54L/watch-tower-console/internal/session"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

type fixture struct {
	m     *Model
	repo  *mocks.MockCredentialRepository
	auth  *mocks.MockAuthAPI
	logs  *mocks.MockLogAPI
	store *session.Store
}

func newFixture(token string) *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		repo: &mocks.MockCredentialRepository{Token: token},
		auth: &mocks.MockAuthAPI{
			MeFunc: func(ctx context.Context) (*domain.Identity, error) {
				return &domain.Identity{Name: "Ada Lovelace", Username: "ada"}, nil
			},
			PermittedProjectsFunc: func(ctx context.Context) ([]string, error) {
				return []string{"alpha", "beta"}, nil
			},
		},
		logs: &mocks.MockLogAPI{
			LogsResult: []domain.LogRecord{
				{ID: "r1", ProjectName: "alpha", Level: "ERROR", Timestamp: time.Now(), Message: "boom", SourceApp: "api-gw"},
				{ID: "r2", ProjectName: "alpha", Level: "INFO", Timestamp: time.Now(), Message: "ok"},
			},
			Distinct: domain.FilterOptions{
				Projects: []string{"alpha", "beta", "gamma"},
				Apps:     []string{"x"},
				Levels:   []string{"INFO", "ERROR"},
			},
			Counts: domain.LevelCounts{"ERROR": 1, "INFO": 1},
		},
	}
	f.store = session.NewStore(f.repo, logger, nil)
	gate := usecase.NewAuthGate(f.store, f.auth, logger)
	resolver := usecase.NewOptionResolver(f.auth, f.logs, logger, nil)
	dash := usecase.NewDashboard(f.logs, resolver, logger, nil)
	f.m = New(context.Background(), gate, dash, f.store, logger)
	return f
}

// run executes cmd and feeds every application message it produces back
// into the model, the way the program loop would. Cursor blinks and quit
// messages are dropped.
func (f *fixture) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			f.run(t, c)
		}
	case authMsg, logsMsg, optionsMsg, countsMsg, SessionExpiredMsg:
		_, next := f.m.Update(msg)
		f.run(t, next)
	}
}

func (f *fixture) press(t *testing.T, keys ...tea.KeyMsg) {
	t.Helper()
	for _, k := range keys {
		_, cmd := f.m.Update(k)
		f.run(t, cmd)
	}
}

func (f *fixture) typeText(s string) {
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyCtrlB = tea.KeyMsg{Type: tea.KeyCtrlB}
	keyCtrlL = tea.KeyMsg{Type: tea.KeyCtrlL}
	keyCtrlN = tea.KeyMsg{Type: tea.KeyCtrlN}
	keyCtrlR = tea.KeyMsg{Type: tea.KeyCtrlR}
)

func TestModel_StartupWithoutCredential(t *testing.T) {
	f := newFixture("")
	f.run(t, f.m.Init())

	if f.m.screen != screenLogin {
		t.Fatalf("expected the sign-in screen, got %v", f.m.screen)
	}
	if !strings.Contains(f.m.View(), "Sign in") {
		t.Error("expected the sign-in form to be rendered")
	}
	if len(f.logs.ReceivedParams) != 0 {
		t.Error("no logs should be fetched before a decision is made")
	}
}

func TestModel_StartupWithCredential(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	if f.m.screen != screenDashboard {
		t.Fatalf("expected the dashboard, got %v", f.m.screen)
	}
	if len(f.logs.ReceivedParams) != 1 || len(f.logs.ReceivedParams[0]) != 0 {
		t.Errorf("expected exactly one unfiltered query, got %v", f.logs.ReceivedParams)
	}
	if f.logs.DistinctCalls != 1 {
		t.Errorf("expected exactly one option resolution, got %d", f.logs.DistinctCalls)
	}
	if got := f.m.dash.Options().Projects; strings.Join(got, ",") != "alpha,beta" {
		t.Errorf("expected permitted projects, got %v", got)
	}

	view := f.m.View()
	for _, want := range []string{"Ada Lovelace", "boom", "ERROR 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestModel_StartupWithRejectedCredential(t *testing.T) {
	f := newFixture("T1")
	f.auth.MeFunc = func(ctx context.Context) (*domain.Identity, error) {
		return nil, domain.ErrSessionInvalid
	}
	f.run(t, f.m.Init())

	if f.m.screen != screenLogin {
		t.Fatalf("expected the sign-in screen, got %v", f.m.screen)
	}
	if f.m.authNotice == "" {
		t.Error("expected a notice explaining the expired session")
	}
	if f.repo.Stored() != "" {
		t.Error("expected the rejected credential to be removed")
	}
}

func TestModel_Login(t *testing.T) {
	f := newFixture("")
	f.auth.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error) {
		if req.Username != "ada" || req.Password != "secret" {
			return domain.TokenResponse{}, domain.ErrSessionInvalid
		}
		return domain.TokenResponse{Token: "T2"}, nil
	}
	f.run(t, f.m.Init())

	f.typeText("ada")
	f.press(t, keyEnter)
	f.typeText("secret")
	f.press(t, keyEnter)

	if f.m.screen != screenDashboard {
		t.Fatalf("expected the dashboard, got %v (error %q)", f.m.screen, f.m.authErr)
	}
	if f.repo.Stored() != "T2" {
		t.Errorf("expected the credential to be persisted, got %q", f.repo.Stored())
	}
}

func TestModel_LoginRejected(t *testing.T) {
	f := newFixture("")
	f.auth.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error) {
		return domain.TokenResponse{}, domain.ErrSessionInvalid
	}
	f.run(t, f.m.Init())

	f.typeText("ada")
	f.press(t, keyEnter)
	f.typeText("wrong")
	f.press(t, keyEnter)

	if f.m.screen != screenLogin {
		t.Fatalf("expected to stay on the sign-in screen, got %v", f.m.screen)
	}
	if f.m.authErr == "" || f.m.authBusy {
		t.Errorf("expected a settled error, got %q (busy %v)", f.m.authErr, f.m.authBusy)
	}
}

func TestModel_RegisterWithoutToken(t *testing.T) {
	f := newFixture("")
	f.run(t, f.m.Init())

	f.press(t, keyCtrlN)
	if f.m.screen != screenSignup {
		t.Fatalf("expected the sign-up screen, got %v", f.m.screen)
	}
	f.typeText("ada")
	f.press(t, keyEnter)
	f.typeText("ada@example.com")
	f.press(t, keyEnter)
	f.typeText("secret")
	f.press(t, keyEnter)

	if f.m.screen != screenLogin {
		t.Fatalf("expected the sign-in screen, got %v", f.m.screen)
	}
	if !strings.Contains(f.m.authNotice, "Sign in to continue") {
		t.Errorf("unexpected notice %q", f.m.authNotice)
	}
	if f.m.authInputs[0].Value() != "ada" {
		t.Errorf("expected the username to be kept, got %q", f.m.authInputs[0].Value())
	}
}

func TestModel_BrowseWithoutSigningIn(t *testing.T) {
	f := newFixture("")
	f.run(t, f.m.Init())

	f.press(t, keyCtrlB)

	if f.m.screen != screenDashboard {
		t.Fatalf("expected the dashboard, got %v", f.m.screen)
	}
	if f.auth.PermittedProjectsCalls != 0 {
		t.Error("permitted projects must not be requested without a session")
	}
	if got := f.m.dash.Options().Projects; len(got) != 3 {
		t.Errorf("expected global projects, got %v", got)
	}
	if !strings.Contains(f.m.View(), "Browsing without signing in") {
		t.Error("expected the anonymous banner")
	}
}

func TestModel_ApplyFilters(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	// Project is focused first; step to the first permitted project.
	f.press(t, keyRight)
	if got := f.m.dash.Criteria().ProjectName; got != "alpha" {
		t.Fatalf("expected alpha to be selected, got %q", got)
	}

	// Move to From and type a minute-precision timestamp.
	for i := 0; i < 4; i++ {
		f.press(t, keyTab)
	}
	f.typeText("2024-01-01T10:00")
	f.press(t, keyEnter)

	if len(f.logs.ReceivedParams) != 2 {
		t.Fatalf("expected a second query, got %d", len(f.logs.ReceivedParams))
	}
	params := f.logs.ReceivedParams[1]
	if params.Get("projectName") != "alpha" || params.Get("fromTs") != "2024-01-01T10:00:00" {
		t.Errorf("unexpected params %v", params)
	}
	if params.Has("appName") {
		t.Error("empty fields must be omitted")
	}

	f.press(t, keyCtrlR)
	if f.m.dash.Criteria() != (domain.FilterCriteria{}) {
		t.Errorf("expected cleared criteria, got %+v", f.m.dash.Criteria())
	}
	if last := f.logs.ReceivedParams[len(f.logs.ReceivedParams)-1]; len(last) != 0 {
		t.Errorf("expected an unfiltered query after clearing, got %v", last)
	}
}

func TestModel_ApplyWhileBusy(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	// Issue an apply but hold its result.
	_, pending := f.m.Update(keyEnter)
	if !f.m.dash.Busy() {
		t.Fatal("expected busy after apply")
	}

	_, cmd := f.m.Update(keyEnter)
	if cmd != nil {
		t.Error("a second apply must not issue a request")
	}
	if !strings.Contains(f.m.View(), "Loading logs") {
		t.Error("expected a busy indicator")
	}

	f.run(t, pending)
	if f.m.dash.Busy() {
		t.Error("expected the fetch to settle")
	}
}

func TestModel_ForbiddenKeepsRows(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	f.logs.LogsErr = domain.ErrForbidden
	f.m.dash.SetCriterion(domain.FieldProjectName, "gamma")
	f.press(t, keyEnter)

	if n := len(f.m.dash.Records()); n != 2 {
		t.Errorf("expected the previous rows to stay, got %d", n)
	}
	if !strings.Contains(f.m.dash.Notice(), "gamma") {
		t.Errorf("expected the notice to name the project, got %q", f.m.dash.Notice())
	}
	if f.store.Token() != "T1" || f.m.screen != screenDashboard {
		t.Error("a scoped refusal must not end the session")
	}
}

func TestModel_SessionExpired(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	f.store.Invalidate(context.Background(), "T1")
	f.run(t, func() tea.Msg { return SessionExpiredMsg{} })

	if f.m.screen != screenLogin {
		t.Fatalf("expected the sign-in screen, got %v", f.m.screen)
	}
	if !strings.Contains(f.m.authNotice, "expired") {
		t.Errorf("unexpected notice %q", f.m.authNotice)
	}
	if len(f.m.dash.Records()) != 0 {
		t.Error("expected no rows to survive the session")
	}
}

func TestModel_ExpandRow(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	for i := 0; i < len(domain.FilterFields); i++ {
		f.press(t, keyTab)
	}
	if f.m.focus != focusRows {
		t.Fatalf("expected the rows to be focused, got %d", f.m.focus)
	}

	f.press(t, keyEnter)
	if !f.m.dash.Expanded("r1") {
		t.Fatal("expected the first row to expand")
	}
	if !strings.Contains(f.m.View(), "api-gw") {
		t.Error("expected the expanded detail to be rendered")
	}

	f.press(t, keyEnter)
	if f.m.dash.Expanded("r1") {
		t.Error("expected the row to collapse")
	}
}

func TestModel_SignOut(t *testing.T) {
	f := newFixture("T1")
	f.run(t, f.m.Init())

	f.press(t, keyCtrlL)

	if f.m.screen != screenLogin {
		t.Fatalf("expected the sign-in screen, got %v", f.m.screen)
	}
	if f.store.Token() != "" || f.repo.Stored() != "" {
		t.Error("expected the credential to be discarded")
	}
	if f.m.sess.Status != domain.StatusUnauthenticated {
		t.Errorf("expected unauthenticated, got %s", f.m.sess.Status)
	}
}
