// Package tui is the terminal dashboard: a session list with output on the
// left, scheduler stats on the right, fed by the event bus and periodic
// scheduler snapshots.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/conductor/internal/events"
	"github.com/aristath/conductor/internal/scheduler"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneSessions PaneID = iota
	PaneStats
)

const statsInterval = time.Second

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	sessionsPane SessionsPaneModel
	statsPane    StatsPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	sched        scheduler.Scheduler
	width        int
	height       int
	quitting     bool
}

// Subscribe attaches a wildcard handler to the bus and returns a channel of
// its events. The handler never blocks a publish; events beyond the buffer
// are dropped, which for a display is the right trade.
func Subscribe(bus *events.Bus, buffer int) <-chan events.Event {
	sub := make(chan events.Event, buffer)
	bus.Subscribe(events.Wildcard, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		select {
		case sub <- event:
		default:
		}
		return nil
	}))
	return sub
}

// New creates a new TUI model reading events from sub and scheduler state
// from sched.
func New(sub <-chan events.Event, sched scheduler.Scheduler) Model {
	return Model{
		sessionsPane: NewSessionsPaneModel(),
		statsPane:    NewStatsPaneModel(),
		focusedPane:  PaneSessions,
		eventSub:     sub,
		sched:        sched,
	}
}

// Init initializes the model and returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), m.pollStats())
}

// waitForEvent returns a command that waits for the next bus event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// pollStats returns a command that samples scheduler stats after a tick.
func (m Model) pollStats() tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg {
		return statsMsg{stats: m.sched.Stats()}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab, KeyShiftTab:
			if m.focusedPane == PaneSessions {
				m.focusedPane = PaneStats
			} else {
				m.focusedPane = PaneSessions
			}
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneSessions
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneStats
			m.updateFocusStates()

		case KeyKill:
			if id := m.sessionsPane.SelectedSessionID(); id != "" {
				m.sched.Terminate(id)
			}

		default:
			if m.focusedPane == PaneSessions {
				var cmd tea.Cmd
				m.sessionsPane, cmd = m.sessionsPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case events.Event:
		switch msg.Type {
		case events.TypeSessionCompleted, events.TypeSessionFailed, events.TypeSessionCancelled:
			m.statsPane.CountOutcome(msg.PayloadString("status"))
		}
		var cmd tea.Cmd
		m.sessionsPane, cmd = m.sessionsPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case statsMsg:
		var cmd tea.Cmd
		m.statsPane, cmd = m.statsPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, m.pollStats())
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.sessionsPane.View(),
		m.statsPane.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 65) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1

	m.sessionsPane.SetSize(leftWidth, availableHeight)
	m.statsPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.sessionsPane.SetFocused(m.focusedPane == PaneSessions)
	m.statsPane.SetFocused(m.focusedPane == PaneStats)
}
