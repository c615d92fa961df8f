package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/team"
)

var (
	dashboardHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7C3AED")).
				Bold(true).
				Padding(0, 1)

	dashboardEventStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	dashboardErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	dashboardFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
)

type dashboardEventMsg broadcast.Event

type dashboardModel struct {
	sessionID string
	te        *team.TeamEngine
	events    <-chan broadcast.Event

	viewport viewport.Model
	lines    []string
	width    int
	height   int
	ready    bool
}

func newDashboardModel(te *team.TeamEngine, ch <-chan broadcast.Event, sessionID string) *dashboardModel {
	return &dashboardModel{sessionID: sessionID, te: te, events: ch}
}

func (m *dashboardModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *dashboardModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return nil
		}
		return dashboardEventMsg(event)
	}
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(strings.Join(m.lines, "\n"))

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case dashboardEventMsg:
		m.lines = append(m.lines, formatDashboardLine(broadcast.Event(msg)))
		if len(m.lines) > 500 {
			m.lines = m.lines[len(m.lines)-500:]
		}
		if m.ready {
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
		}
		if broadcast.Event(msg).Type == broadcast.TypeSessionEnd {
			return m, tea.Quit
		}
		return m, m.waitForEvent()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *dashboardModel) View() string {
	if !m.ready {
		return "initializing…"
	}
	header := dashboardHeaderStyle.Render(fmt.Sprintf("teamkit session %s — %s", m.sessionID, m.taskSummary()))
	footer := dashboardFooterStyle.Render("q to quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}

func (m *dashboardModel) taskSummary() string {
	tasks, err := m.te.Tasks()
	if err != nil {
		return "tasks: unavailable"
	}
	outstanding := 0
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			outstanding++
		}
	}
	return fmt.Sprintf("%d task(s), %d outstanding", len(tasks), outstanding)
}

func formatDashboardLine(event broadcast.Event) string {
	ts := event.Timestamp.Format("15:04:05")
	style := dashboardEventStyle
	if event.Type == broadcast.TypeError {
		style = dashboardErrorStyle
	}
	label := string(event.Type)
	if event.Agent != "" {
		label = fmt.Sprintf("%s[%s]", label, event.Agent)
	}
	return style.Render(fmt.Sprintf("%s  %-28s  %v", ts, label, event.Data))
}

func runDashboard(ctx context.Context, te *team.TeamEngine, events *broadcast.Broadcaster, sessionID string) error {
	ch, unsubscribe := events.Subscribe(sessionID)
	defer unsubscribe()

	model := newDashboardModel(te, ch, sessionID)
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		program.Send(tea.QuitMsg{})
	}()

	_, err := program.Run()
	return err
}
