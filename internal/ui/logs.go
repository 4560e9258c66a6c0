package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/stockroom/internal/logtail"
)

type logLinesMsg struct {
	lines []string
	err   error
}

func readLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logLinesMsg{}
		}
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logErr = msg.err
	if msg.err != nil {
		return
	}
	m.logLines = msg.lines
	m.updateLogViewport()
}

// handleLogsKey processes keyboard input for the activity log.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logFollow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	// Manual scrolling stops following.
	if key.Matches(msg, m.keys.Up, m.keys.PageUp, m.keys.HalfPageUp) {
		m.logFollow = false
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	m.logViewport.Width = m.width
	m.logViewport.Height = m.contentHeight()

	styles := m.theme.Styles()
	rendered := make([]string, len(m.logLines))
	for i, line := range m.logLines {
		rendered[i] = renderLogLine(styles, line)
	}
	m.logViewport.SetContent(strings.Join(rendered, "\n"))
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}

// renderLogLine colors a zap JSON line by level. Other lines pass through.
func renderLogLine(styles Styles, line string) string {
	e, ok := logtail.Parse(line)
	if !ok {
		return styles.MutedText.Render(line)
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(e.Time.Format("15:04:05")))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		b.WriteString(styles.LevelStyle(e.Level).Render(padRight(e.Level, 5)))
		b.WriteByte(' ')
	}
	rest := logtail.Entry{Message: e.Message, Fields: e.Fields}
	b.WriteString(styles.Text.Render(rest.String()))
	return b.String()
}

// renderLogs renders the activity log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if m.logErr != nil {
		return placeOverlay(m.width, height, m.theme, styles.DangerText.Render("Cannot read log: "+m.logErr.Error()))
	}
	if len(m.logLines) == 0 {
		msg := "No activity yet"
		if m.logFile == "" {
			msg = "Logging to a file is disabled"
		}
		return placeOverlay(m.width, height, m.theme, styles.MutedText.Render(msg))
	}
	return m.logViewport.View()
}
