// Package tui renders the log dashboard in the terminal. Every network call
// runs as a tea.Cmd and its result re-enters the update loop as a message,
// so all dashboard state is only touched from that loop.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/session"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenSignup
	screenDashboard
)

type authOrigin int

const (
	originStartup authOrigin = iota
	originLogin
	originRegister
)

// authMsg carries the outcome of a startup check, login or registration.
type authMsg struct {
	origin authOrigin
	sess   domain.Session
	err    error
}

type (
	logsMsg    usecase.LogResult
	optionsMsg usecase.OptionResult
	countsMsg  usecase.CountResult
)

// SessionExpiredMsg tells the model that the transport discarded the
// credential after a 401.
type SessionExpiredMsg struct{}

// Model is the bubbletea model for the whole application.
type Model struct {
	ctx    context.Context
	gate   *usecase.AuthGate
	dash   *usecase.Dashboard
	store  *session.Store
	logger *slog.Logger
	styles styles

	screen screen
	sess   domain.Session

	// sign-in and sign-up form
	authInputs []textinput.Model
	authFocus  int
	authErr    string
	authNotice string
	authBusy   bool

	// dashboard
	timeInputs map[domain.FilterField]textinput.Model
	focus      int
	cursor     int
	hint       string
	width      int
	height     int
}

// New creates the application model. ctx bounds every request it issues.
func New(ctx context.Context, gate *usecase.AuthGate, dash *usecase.Dashboard, store *session.Store, logger *slog.Logger) *Model {
	m := &Model{
		ctx:    ctx,
		gate:   gate,
		dash:   dash,
		store:  store,
		logger: logger.With("component", "tui"),
		styles: newStyles(),
		screen: screenLoading,
	}
	m.resetTimeInputs()
	return m
}

// NewProgram creates the bubbletea program for m and routes session
// invalidations from the transport into its update loop.
func NewProgram(m *Model, opts ...tea.ProgramOption) *tea.Program {
	p := tea.NewProgram(m, opts...)
	m.store.OnInvalidate(func() {
		p.Send(SessionExpiredMsg{})
	})
	return p
}

func (m *Model) Init() tea.Cmd {
	return m.startup
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin, screenSignup:
			return m.updateAuth(msg)
		case screenDashboard:
			return m.updateDashboard(msg)
		}
		return m, nil

	case authMsg:
		return m.handleAuth(msg)

	case SessionExpiredMsg:
		return m.handleSessionExpired()

	case logsMsg:
		if m.dash.ApplyLogs(usecase.LogResult(msg)) {
			m.clampCursor()
		}
		return m, nil

	case optionsMsg:
		m.dash.ApplyOptions(usecase.OptionResult(msg))
		return m, nil

	case countsMsg:
		m.dash.ApplyCounts(usecase.CountResult(msg))
		return m, nil
	}

	return m.forwardToInput(msg)
}

func (m *Model) View() string {
	switch m.screen {
	case screenLoading:
		return m.styles.app.Render(m.styles.title.Render("Watch Tower") + "\n\n" + m.styles.help.Render("Checking session..."))
	case screenLogin, screenSignup:
		return m.viewAuth()
	default:
		return m.viewDashboard()
	}
}

// forwardToInput hands non-key messages such as cursor blinks to the
// focused text input.
func (m *Model) forwardToInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenLogin, screenSignup:
		if m.authFocus < len(m.authInputs) {
			m.authInputs[m.authFocus], cmd = m.authInputs[m.authFocus].Update(msg)
		}
	case screenDashboard:
		if f, ok := m.focusedField(); ok {
			if in, ok := m.timeInputs[f]; ok {
				m.timeInputs[f], cmd = in.Update(msg)
			}
		}
	}
	return m, cmd
}

func (m *Model) startup() tea.Msg {
	sess, err := m.gate.Startup(m.ctx)
	return authMsg{origin: originStartup, sess: sess, err: err}
}

// activate shows the dashboard for the current session and issues its
// initial fetches: one option resolution, one unfiltered query and the
// level summary.
func (m *Model) activate() tea.Cmd {
	m.screen = screenDashboard
	m.focus, m.cursor = 0, 0
	m.hint = ""
	m.resetTimeInputs()

	act := m.dash.Activate(m.sess)
	return tea.Batch(
		m.resolveOptions(act.Options),
		m.fetchLogs(act.Logs),
		m.fetchCounts(act.Counts),
	)
}

// deactivate leaves the dashboard. Nothing fetched before this point is
// shown afterwards.
func (m *Model) deactivate(notice string) {
	m.dash.Deactivate()
	m.sess = m.store.Snapshot()
	m.showAuth(screenLogin)
	m.authNotice = notice
}

func (m *Model) handleSessionExpired() (tea.Model, tea.Cmd) {
	if m.screen != screenDashboard || !m.sess.Authenticated() {
		// A rejected credential during sign-in is reported by the auth result.
		m.sess = m.store.Snapshot()
		return m, nil
	}
	m.deactivate("Your session has expired. Sign in again.")
	return m, textinput.Blink
}

func (m *Model) fetchLogs(req usecase.LogRequest) tea.Cmd {
	return func() tea.Msg {
		return logsMsg(m.dash.FetchLogs(m.ctx, req))
	}
}

func (m *Model) resolveOptions(req usecase.OptionRequest) tea.Cmd {
	return func() tea.Msg {
		return optionsMsg(m.dash.ResolveOptions(m.ctx, req))
	}
}

func (m *Model) fetchCounts(req usecase.CountRequest) tea.Cmd {
	return func() tea.Msg {
		return countsMsg(m.dash.FetchCounts(m.ctx, req))
	}
}
