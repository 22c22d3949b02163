package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// focusRows follows the filter fields in the focus order.
var focusRows = len(domain.FilterFields)

var fieldLabels = map[domain.FilterField]string{
	domain.FieldProjectName:  "Project",
	domain.FieldAppName:      "App",
	domain.FieldMicroservice: "Microservice",
	domain.FieldLevel:        "Level",
	domain.FieldFromTs:       "From",
	domain.FieldToTs:         "To",
}

const (
	minVisibleRows  = 5
	chromeLines     = 22
	linePadding     = 8
	linePrefixWidth = 19 + 2 + 5 + 2 + 32 + 2
	minTruncate     = 10
	timeLayout      = "2006-01-02 15:04:05"
)

func (m *Model) resetTimeInputs() {
	m.timeInputs = map[domain.FilterField]textinput.Model{
		domain.FieldFromTs: newTimeInput(),
		domain.FieldToTs:   newTimeInput(),
	}
}

func newTimeInput() textinput.Model {
	ti := newInput("YYYY-MM-DDTHH:MM", false)
	ti.Width = 20
	ti.CharLimit = 32
	return ti
}

func (m *Model) focusedField() (domain.FilterField, bool) {
	if m.focus < 0 || m.focus >= len(domain.FilterFields) {
		return "", false
	}
	return domain.FilterFields[m.focus], true
}

func (m *Model) setFocus(i int) {
	n := len(domain.FilterFields) + 1
	if f, ok := m.focusedField(); ok {
		if in, ok := m.timeInputs[f]; ok {
			in.Blur()
			m.timeInputs[f] = in
		}
	}
	m.focus = (i%n + n) % n
	if f, ok := m.focusedField(); ok {
		if in, ok := m.timeInputs[f]; ok {
			in.Focus()
			m.timeInputs[f] = in
		}
	}
}

func (m *Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.hint = ""

	switch msg.String() {
	case "tab":
		m.setFocus(m.focus + 1)
		return m, textinput.Blink
	case "shift+tab":
		m.setFocus(m.focus - 1)
		return m, textinput.Blink
	case "ctrl+r":
		return m, m.clear()
	case "ctrl+o":
		return m, m.resolveOptions(m.dash.RefreshOptions(m.sess))
	case "ctrl+l":
		return m.signOut()
	case "enter":
		if m.focus == focusRows {
			m.toggleSelected()
			return m, nil
		}
		return m, m.apply()
	}

	if m.focus == focusRows {
		switch msg.String() {
		case "up", "k":
			m.cursor--
			m.clampCursor()
		case "down", "j":
			m.cursor++
			m.clampCursor()
		case " ":
			m.toggleSelected()
		case "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	f, _ := m.focusedField()
	if in, ok := m.timeInputs[f]; ok {
		var cmd tea.Cmd
		in, cmd = in.Update(msg)
		m.timeInputs[f] = in
		m.dash.SetCriterion(f, strings.TrimSpace(in.Value()))
		return m, cmd
	}

	switch msg.String() {
	case "right", "l", " ":
		m.cycleOption(f, 1)
	case "left", "h":
		m.cycleOption(f, -1)
	case "backspace", "delete":
		m.dash.SetCriterion(f, "")
	case "esc":
		return m, tea.Quit
	}
	return m, nil
}

// cycleOption steps field f through "any" followed by its option values.
func (m *Model) cycleOption(f domain.FilterField, step int) {
	choices := append([]string{""}, m.dash.Options().For(f)...)
	current := m.dash.Criteria().Get(f)

	idx := 0
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	n := len(choices)
	m.dash.SetCriterion(f, choices[((idx+step)%n+n)%n])
}

func (m *Model) apply() tea.Cmd {
	req, err := m.dash.Apply()
	if err != nil {
		if errors.Is(err, domain.ErrFetchInFlight) {
			m.hint = "Still loading, wait for the current results."
		}
		return nil
	}
	m.cursor = 0
	return m.fetchLogs(req)
}

func (m *Model) clear() tea.Cmd {
	m.resetTimeInputs()
	if m.focus != focusRows {
		m.setFocus(m.focus)
	}
	m.cursor = 0
	return m.fetchLogs(m.dash.Clear())
}

func (m *Model) signOut() (tea.Model, tea.Cmd) {
	if m.sess.Authenticated() {
		m.gate.Logout(m.ctx)
	}
	m.deactivate("")
	return m, textinput.Blink
}

func (m *Model) toggleSelected() {
	records := m.dash.Records()
	if m.cursor < 0 || m.cursor >= len(records) {
		return
	}
	m.dash.Toggle(records[m.cursor].ID)
}

func (m *Model) clampCursor() {
	n := len(m.dash.Records())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) viewDashboard() string {
	var content strings.Builder
	st := m.styles

	user := "Browsing without signing in"
	if m.sess.Authenticated() {
		user = "Signed in as " + m.sess.Identity.DisplayName()
	}
	content.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		st.title.Render("Watch Tower · Logs"),
		"   ",
		st.help.Render(user),
	))
	content.WriteString("\n")
	if summary := m.levelSummary(); summary != "" {
		content.WriteString(summary + "\n")
	}
	content.WriteString("\n")

	content.WriteString(m.viewFilters())
	content.WriteString("\n")

	switch {
	case m.dash.Busy():
		content.WriteString(st.hint.Render("Loading logs...") + "\n")
	case m.hint != "":
		content.WriteString(st.hint.Render(m.hint) + "\n")
	}
	if n := m.dash.Notice(); n != "" {
		content.WriteString(st.error.Render(n) + "\n")
	}
	if n := m.dash.OptionsNotice(); n != "" {
		content.WriteString(st.notice.Render(n) + "\n")
	}
	content.WriteString("\n")

	content.WriteString(m.viewRecords())
	content.WriteString("\n")

	signOut := "Ctrl+L → sign out"
	if !m.sess.Authenticated() {
		signOut = "Ctrl+L → sign in"
	}
	content.WriteString(st.help.Render("Tab → next field | ←/→ → pick value | Enter → apply / expand | Ctrl+R → clear"))
	content.WriteString("\n")
	content.WriteString(st.help.Render("Ctrl+O → reload options | " + signOut + " | Ctrl+C → quit"))

	return st.app.Align(lipgloss.Left).Render(content.String())
}

func (m *Model) viewFilters() string {
	st := m.styles
	criteria := m.dash.Criteria()
	cells := make([]string, 0, len(domain.FilterFields))

	for i, f := range domain.FilterFields {
		label := st.label
		if i == m.focus {
			label = st.focused
		}

		var value string
		if in, ok := m.timeInputs[f]; ok {
			value = in.View()
		} else {
			value = criteria.Get(f)
			if value == "" {
				value = "any"
				if m.dash.LoadingOptions() {
					value = "loading..."
				}
			}
			value = "‹ " + value + " ›"
		}

		cells = append(cells, lipgloss.NewStyle().MarginRight(3).Render(
			lipgloss.JoinVertical(lipgloss.Left, label.Render(fieldLabels[f]), value),
		))
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, cells[:4]...)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, cells[4:]...)
	return lipgloss.JoinVertical(lipgloss.Left, top, "", bottom) + "\n"
}

func (m *Model) levelSummary() string {
	counts := m.dash.Counts()
	if len(counts) == 0 {
		return ""
	}
	levels := make([]string, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		parts = append(parts, m.styles.level(level).Render(fmt.Sprintf("%s %d", level, counts[level])))
	}
	return strings.Join(parts, m.styles.help.Render(" · "))
}

func (m *Model) viewRecords() string {
	st := m.styles
	records := m.dash.Records()
	if len(records) == 0 {
		if m.dash.Busy() {
			return ""
		}
		return st.help.Render("No logs match the current filters.") + "\n"
	}

	start, end := m.visibleRange(len(records))
	var b strings.Builder
	for i := start; i < end; i++ {
		rec := records[i]
		marker := "  "
		line := m.recordLine(rec)
		if m.focus == focusRows && i == m.cursor {
			marker = st.selected.Render("› ")
		}
		b.WriteString(marker + line + "\n")
		if m.dash.Expanded(rec.ID) {
			b.WriteString(st.detail.Render(recordDetail(rec)) + "\n")
		}
	}
	b.WriteString(st.help.Render(fmt.Sprintf("%d–%d of %d", start+1, end, len(records))) + "\n")
	return b.String()
}

func (m *Model) visibleRange(n int) (int, int) {
	rows := minVisibleRows
	if m.height > chromeLines+minVisibleRows {
		rows = m.height - chromeLines
	}
	if n <= rows {
		return 0, n
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func (m *Model) recordLine(rec domain.LogRecord) string {
	ts := ""
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.Local().Format(timeLayout)
	}
	level := m.styles.level(rec.Level).Render(fmt.Sprintf("%-5s", rec.Level))
	origin := strings.Join(nonEmpty(rec.ProjectName, rec.AppName, rec.Microservice), "/")
	msg := firstLine(rec.Message)
	if m.width > 0 {
		msg = truncate(msg, m.width-linePadding-linePrefixWidth)
	}
	return fmt.Sprintf("%-19s  %s  %-32s  %s", ts, level, truncate(origin, 32), msg)
}

func recordDetail(rec domain.LogRecord) string {
	ts := ""
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.Format(time.RFC3339Nano)
	}
	rows := [][2]string{
		{"ID", rec.ID},
		{"Project", rec.ProjectName},
		{"App", rec.AppName},
		{"Microservice", rec.Microservice},
		{"Source", rec.SourceApp},
		{"Level", rec.Level},
		{"Timestamp", ts},
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-13s %s\n", r[0]+":", r[1])
	}
	b.WriteString("\n" + rec.Message)
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

// truncate shortens plain text s to at most n display cells.
func truncate(s string, n int) string {
	if n < minTruncate || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
