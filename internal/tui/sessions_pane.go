package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/conductor/internal/events"
)

// SessionState is the pane's view of one scheduler session.
type SessionState struct {
	SessionID string
	Role      string
	Engine    string
	Status    string // "running", "completed", "failed", "cancelled"
	Output    []string
	StartTime time.Time
	Duration  time.Duration
}

// SessionsPaneModel shows the session list and the selected session's
// output.
type SessionsPaneModel struct {
	sessions     map[string]*SessionState // session ID -> state
	sessionOrder []string                 // insertion order for display
	selectedIdx  int
	viewport     viewport.Model
	width        int
	height       int
	focused      bool
}

// NewSessionsPaneModel creates a new sessions pane model.
func NewSessionsPaneModel() SessionsPaneModel {
	vp := viewport.New(0, 0)
	return SessionsPaneModel{
		sessions: make(map[string]*SessionState),
		viewport: vp,
	}
}

// Update handles messages for the sessions pane.
func (m SessionsPaneModel) Update(msg tea.Msg) (SessionsPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.sessionOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.Event:
		m.applyEvent(msg)
	}

	return m, cmd
}

// applyEvent folds one session lifecycle event into the pane state.
func (m *SessionsPaneModel) applyEvent(event events.Event) {
	id := event.PayloadString("session_id")
	if id == "" {
		return
	}

	switch event.Type {
	case events.TypeSessionStarted:
		if _, exists := m.sessions[id]; exists {
			return
		}
		m.sessions[id] = &SessionState{
			SessionID: id,
			Role:      event.PayloadString("role"),
			Engine:    event.PayloadString("engine"),
			Status:    "running",
			StartTime: event.Timestamp,
		}
		m.sessionOrder = append(m.sessionOrder, id)
		if len(m.sessionOrder) == 1 {
			m.selectedIdx = 0
			m.updateViewportContent()
		}

	case events.TypeSessionCompleted:
		if s, exists := m.sessions[id]; exists {
			s.Status = "completed"
			s.Duration = event.Timestamp.Sub(s.StartTime)
			if out := event.PayloadString("output"); out != "" {
				s.Output = append(s.Output, strings.Split(out, "\n")...)
			}
			s.Output = append(s.Output, fmt.Sprintf("[Completed in %v]", s.Duration.Round(time.Millisecond)))
			m.refreshIfSelected(id)
		}

	case events.TypeSessionFailed:
		if s, exists := m.sessions[id]; exists {
			s.Status = "failed"
			s.Duration = event.Timestamp.Sub(s.StartTime)
			s.Output = append(s.Output, fmt.Sprintf("[Failed: %s]", event.PayloadString("error")))
			m.refreshIfSelected(id)
		}

	case events.TypeSessionCancelled:
		if s, exists := m.sessions[id]; exists {
			s.Status = "cancelled"
			s.Output = append(s.Output, "[Cancelled]")
			m.refreshIfSelected(id)
		}
	}
}

func (m *SessionsPaneModel) refreshIfSelected(id string) {
	if m.SelectedSessionID() == id {
		m.updateViewportContent()
	}
}

// View renders the sessions pane.
func (m SessionsPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 28
	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderSessionList(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderSessionList renders the session list column.
func (m SessionsPaneModel) renderSessionList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Sessions")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", minInt(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.sessionOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, id := range m.sessionOrder {
			s := m.sessions[id]
			label := s.Role
			if label == "" {
				label = shortID(id)
			}
			if len(label) > width-6 {
				label = label[:width-9] + "..."
			}

			line := fmt.Sprintf("%s %s", statusIcon(s.Status), label)
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// statusIcon returns a styled status indicator.
func statusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "completed":
		return StyleStatusComplete.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	case "cancelled":
		return StyleStatusCancelled.Render("⊘")
	default:
		return StyleStatusPending.Render("○")
	}
}

// SelectedSessionID returns the ID of the selected session, or empty.
func (m SessionsPaneModel) SelectedSessionID() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.sessionOrder) {
		return m.sessionOrder[m.selectedIdx]
	}
	return ""
}

// updateViewportContent fills the viewport with the selected session's
// output.
func (m *SessionsPaneModel) updateViewportContent() {
	id := m.SelectedSessionID()
	if id == "" {
		m.viewport.SetContent("Waiting for sessions...")
		return
	}
	s, exists := m.sessions[id]
	if !exists {
		m.viewport.SetContent("Waiting for sessions...")
		return
	}

	header := fmt.Sprintf("%s via %s\n%s\n\n", s.Role, s.Engine, shortID(s.SessionID))
	m.viewport.SetContent(header + strings.Join(s.Output, "\n"))
	m.viewport.GotoBottom()
}

// resizeViewport resizes the viewport based on pane dimensions.
func (m *SessionsPaneModel) resizeViewport() {
	listWidth := 28
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *SessionsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *SessionsPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

// shortID truncates a session UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
