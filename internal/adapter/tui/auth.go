package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/client"
	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

const inputWidth = 40

func newInput(placeholder string, password bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if password {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Width = inputWidth
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))
	return ti
}

// showAuth switches to the sign-in or sign-up form with empty inputs,
// keeping the username when moving between the two.
func (m *Model) showAuth(s screen) {
	username := ""
	if len(m.authInputs) > 0 {
		username = m.authInputs[0].Value()
	}

	m.screen = s
	m.authErr, m.authNotice = "", ""
	m.authFocus = 0
	if s == screenSignup {
		m.authInputs = []textinput.Model{
			newInput("Username", false),
			newInput("Email", false),
			newInput("Password", true),
		}
	} else {
		m.authInputs = []textinput.Model{
			newInput("Username", false),
			newInput("Password", true),
		}
	}
	m.authInputs[0].SetValue(username)
	m.authInputs[0].Focus()
}

func (m *Model) setAuthFocus(i int) {
	n := len(m.authInputs)
	m.authInputs[m.authFocus].Blur()
	m.authFocus = (i%n + n) % n
	m.authInputs[m.authFocus].Focus()
}

func (m *Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.setAuthFocus(m.authFocus + 1)
		return m, textinput.Blink
	case "shift+tab", "up":
		m.setAuthFocus(m.authFocus - 1)
		return m, textinput.Blink
	case "ctrl+n":
		if m.authBusy {
			return m, nil
		}
		if m.screen == screenLogin {
			m.showAuth(screenSignup)
		} else {
			m.showAuth(screenLogin)
		}
		return m, textinput.Blink
	case "ctrl+b":
		if m.authBusy {
			return m, nil
		}
		m.sess = m.store.Snapshot()
		return m, m.activate()
	case "enter":
		if m.authFocus < len(m.authInputs)-1 {
			m.setAuthFocus(m.authFocus + 1)
			return m, textinput.Blink
		}
		return m.submitAuth()
	}

	var cmd tea.Cmd
	m.authInputs[m.authFocus], cmd = m.authInputs[m.authFocus].Update(msg)
	return m, cmd
}

func (m *Model) submitAuth() (tea.Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}
	values := make([]string, len(m.authInputs))
	for i, in := range m.authInputs {
		values[i] = strings.TrimSpace(in.Value())
	}
	for _, v := range values {
		if v == "" {
			m.authErr = "All fields are required."
			return m, nil
		}
	}

	m.authBusy = true
	m.authErr, m.authNotice = "", ""

	if m.screen == screenSignup {
		req := domain.RegisterRequest{Username: values[0], Email: values[1], Password: values[2]}
		return m, func() tea.Msg {
			sess, err := m.gate.Register(m.ctx, req)
			return authMsg{origin: originRegister, sess: sess, err: err}
		}
	}

	username, password := values[0], values[1]
	return m, func() tea.Msg {
		sess, err := m.gate.Login(m.ctx, username, password)
		return authMsg{origin: originLogin, sess: sess, err: err}
	}
}

func (m *Model) handleAuth(msg authMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	m.sess = msg.sess

	if msg.sess.Authenticated() {
		m.logger.Info("entering dashboard", "user", msg.sess.Identity.DisplayName())
		return m, m.activate()
	}

	switch msg.origin {
	case originStartup:
		m.showAuth(screenLogin)
		if msg.err != nil {
			m.authNotice = "Your session has expired. Sign in again."
		}
	case originRegister:
		if errors.Is(msg.err, usecase.ErrSignInRequired) {
			m.showAuth(screenLogin)
			m.authNotice = "Account created. Sign in to continue."
			m.setAuthFocus(1)
			break
		}
		m.authErr = errorText(msg.err, "Registration failed.")
	default:
		m.authErr = errorText(msg.err, "Sign in failed.")
	}
	return m, textinput.Blink
}

// errorText turns err into something fit for the status line, preferring
// the API's own message.
func errorText(err error, fallback string) string {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, domain.ErrNoToken):
		return "Signed in, but no token was returned."
	case errors.Is(err, domain.ErrTransient):
		var apiErr client.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback + " The server could not be reached."
	}
	return client.Message(err)
}

func (m *Model) viewAuth() string {
	var content strings.Builder
	st := m.styles

	title := "Sign in"
	if m.screen == screenSignup {
		title = "Create an account"
	}
	content.WriteString(st.title.Render("Watch Tower · "+title) + "\n\n")

	labels := []string{"Username", "Password"}
	if m.screen == screenSignup {
		labels = []string{"Username", "Email", "Password"}
	}
	for i, in := range m.authInputs {
		label := st.label
		if i == m.authFocus {
			label = st.focused
		}
		content.WriteString(lipgloss.JoinVertical(lipgloss.Left, label.Render(labels[i]+":"), in.View()))
		content.WriteString("\n\n")
	}

	switch {
	case m.authBusy:
		content.WriteString(st.hint.Render("Please wait...") + "\n\n")
	case m.authErr != "":
		content.WriteString(st.error.Render("Error: "+m.authErr) + "\n\n")
	case m.authNotice != "":
		content.WriteString(st.notice.Render(m.authNotice) + "\n\n")
	}

	switchHint := "Ctrl+N → create an account"
	if m.screen == screenSignup {
		switchHint = "Ctrl+N → back to sign in"
	}
	content.WriteString(st.help.Render("Enter → next / submit | Tab → switch field | " + switchHint))
	content.WriteString("\n")
	content.WriteString(st.help.Render("Ctrl+B → browse without signing in | Ctrl+C/Esc → quit"))

	return st.app.Align(lipgloss.Left).Render(content.String())
}
