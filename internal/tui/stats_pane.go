package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/conductor/internal/scheduler"
)

// statsMsg carries a fresh scheduler snapshot into the TUI.
type statsMsg struct {
	stats scheduler.Stats
}

// StatsPaneModel shows the scheduler's concurrency bookkeeping and per-run
// outcome counts.
type StatsPaneModel struct {
	stats     scheduler.Stats
	completed int
	failed    int
	cancelled int
	width     int
	height    int
	focused   bool
}

// NewStatsPaneModel creates a new stats pane model.
func NewStatsPaneModel() StatsPaneModel {
	return StatsPaneModel{}
}

// Update handles messages for the stats pane.
func (m StatsPaneModel) Update(msg tea.Msg) (StatsPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case statsMsg:
		m.stats = msg.stats
	}

	return m, nil
}

// CountOutcome bumps the terminal-status counters.
func (m *StatsPaneModel) CountOutcome(status string) {
	switch status {
	case "completed":
		m.completed++
	case "failed":
		m.failed++
	case "cancelled":
		m.cancelled++
	}
}

// View renders the stats pane.
func (m StatsPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Scheduler")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Total:     %d\n", m.stats.TotalSessions))
	b.WriteString(fmt.Sprintf("Active:    %s\n", StyleStatusRunning.Render(fmt.Sprintf("%d", m.stats.ActiveSessions))))
	b.WriteString(fmt.Sprintf("Completed: %s\n", StyleStatusComplete.Render(fmt.Sprintf("%d", m.completed))))
	b.WriteString(fmt.Sprintf("Failed:    %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))))
	b.WriteString(fmt.Sprintf("Cancelled: %s\n", StyleStatusCancelled.Render(fmt.Sprintf("%d", m.cancelled))))

	b.WriteString("\n")

	// Slot usage bar
	if m.stats.MaxConcurrent > 0 {
		barWidth := minInt(m.width-4, 40)
		used := m.stats.MaxConcurrent - m.stats.AvailableSlots
		usedWidth := (used * barWidth) / m.stats.MaxConcurrent
		freeWidth := barWidth - usedWidth

		bar := StyleStatusRunning.Render(strings.Repeat("=", maxInt(0, usedWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", maxInt(0, freeWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d slots\n", bar, used, m.stats.MaxConcurrent))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *StatsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *StatsPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
