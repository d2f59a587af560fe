// internal/tui/watch.go
//
// Live run view. It uses bubbletea, which follows The Elm Architecture:
// the model holds per-item state, Update folds run events into it, and
// View renders the board. Events arrive through a ChannelPublisher wired
// into the queue processor.

package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/weftlabs/weft/internal/events"
	"github.com/weftlabs/weft/internal/item"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	partialStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	alertStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type itemRow struct {
	id     string
	status item.Status
	detail string
}

type envelopeMsg events.Envelope

type streamClosedMsg struct{}

// Model is the bubbletea model for `weft run --watch`.
type Model struct {
	runID    string
	stream   <-chan events.Envelope
	spin     spinner.Model
	rows     map[string]*itemRow
	order    []string
	level    int
	budget   float64
	used     float64
	alerts   []string
	finished bool
	closed   bool
}

// NewModel builds a watch model over the given event stream. Item ids are
// supplied up front so the board shows the whole queue from the start.
func NewModel(itemIDs []string, stream <-chan events.Envelope) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = runningStyle

	rows := make(map[string]*itemRow, len(itemIDs))
	order := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		rows[id] = &itemRow{id: id, status: item.StatusPending}
		order = append(order, id)
	}
	return Model{
		stream: stream,
		spin:   spin,
		rows:   rows,
		order:  order,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForEvent())
}

func (m Model) waitForEvent() tea.Cmd {
	stream := m.stream
	return func() tea.Msg {
		env, ok := <-stream
		if !ok {
			return streamClosedMsg{}
		}
		return envelopeMsg(env)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case envelopeMsg:
		m.apply(events.Envelope(msg))
		return m, m.waitForEvent()
	case streamClosedMsg:
		m.closed = true
		if m.finished {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

// apply folds one run event into the board state.
func (m *Model) apply(env events.Envelope) {
	switch ev := env.Event.(type) {
	case events.RunStarted:
		m.runID = ev.RunID
		m.budget = ev.Budget
	case events.ItemStarted:
		if row := m.row(ev.ItemID); row != nil {
			row.status = item.StatusInProgress
		}
	case events.ItemFinished:
		if row := m.row(ev.ItemID); row != nil {
			row.status = ev.Status
			row.detail = ev.Error
		}
		m.used += ev.BudgetConsumed
	case events.CommitmentRaised:
		m.level = ev.To
		m.alerts = append(m.alerts, fmt.Sprintf("commitment raised to %d: %s", ev.To, ev.Reason))
	case events.SpiralDetected:
		m.alerts = append(m.alerts, fmt.Sprintf("spiral on %s (%s)", ev.ItemID, ev.Finding.Severity))
	case events.BudgetExhausted:
		m.alerts = append(m.alerts, fmt.Sprintf("budget exhausted, %d item(s) skipped", len(ev.Skipped)))
	case events.ForcedCompletion:
		m.alerts = append(m.alerts, "run force-completed")
	case events.RunFinished:
		m.finished = true
		for _, row := range m.rows {
			if !row.status.Terminal() {
				row.status = item.StatusSkipped
			}
		}
	}
}

func (m *Model) row(id string) *itemRow {
	if row, ok := m.rows[id]; ok {
		return row
	}
	// Merged cycle items appear mid-run; register them on first sight.
	row := &itemRow{id: id, status: item.StatusPending}
	m.rows[id] = row
	m.order = append(m.order, id)
	sort.Strings(m.order)
	return row
}

func (m Model) View() string {
	var b strings.Builder

	title := "weft run"
	if m.runID != "" {
		title = fmt.Sprintf("weft run %s", m.runID)
	}
	b.WriteString(titleStyle.Render(title))
	if m.budget > 0 {
		b.WriteString(hintStyle.Render(fmt.Sprintf("  budget %.1f/%.1f  level %d", m.used, m.budget, m.level)))
	}
	b.WriteString("\n\n")

	for _, id := range m.order {
		row := m.rows[id]
		marker := "  "
		if row.status == item.StatusInProgress {
			marker = m.spin.View()
		}
		line := fmt.Sprintf("%s %-20s %s", marker, row.id, row.status)
		if row.detail != "" {
			line += hintStyle.Render("  " + row.detail)
		}
		b.WriteString(statusStyle(row.status).Render(line))
		b.WriteString("\n")
	}

	if len(m.alerts) > 0 {
		b.WriteString("\n")
		start := 0
		if len(m.alerts) > 5 {
			start = len(m.alerts) - 5
		}
		for _, alert := range m.alerts[start:] {
			b.WriteString(alertStyle.Render("! "+alert) + "\n")
		}
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(hintStyle.Render("run finished. press q to exit."))
	} else {
		b.WriteString(hintStyle.Render("q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func statusStyle(status item.Status) lipgloss.Style {
	switch status {
	case item.StatusCompleted:
		return completedStyle
	case item.StatusFailed:
		return failedStyle
	case item.StatusPartial:
		return partialStyle
	case item.StatusInProgress:
		return runningStyle
	case item.StatusSkipped:
		return skippedStyle
	}
	return pendingStyle
}
