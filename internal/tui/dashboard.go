package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

func (m Model) updateDashboard(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if next, cmd, switched := m.switchScreen(keyMsg); switched {
		return next, cmd
	}
	if next, moved := m.navigate(keyMsg, len(m.tickets)); moved {
		return next, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		m.blockErr = ""
		return m, nil

	case key.Matches(keyMsg, m.keys.Refresh):
		m.status = "refreshing..."
		return m, tea.Batch(m.loadTickets(), m.loadHealth())

	case key.Matches(keyMsg, m.keys.Sync):
		m.status = "syncing helpdesk..."
		return m, m.syncZoho()

	case key.Matches(keyMsg, m.keys.Select):
		if m.cursor < len(m.tickets) {
			t := m.tickets[m.cursor]
			m.screen = screenDetail
			m.detail = newDetailModel(t, m.width, m.height)
			m.app.Watcher.Select(t)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) viewDashboard() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("fixdeck · tickets") + "\n\n")
	b.WriteString(m.healthCards() + "\n\n")

	if len(m.tickets) == 0 {
		b.WriteString(m.theme.Subtle.Render("no tickets yet · s to sync the helpdesk"))
		return b.String()
	}

	header := fmt.Sprintf("  %-8s %-44s %-12s %-10s %s", "NUMBER", "SUBJECT", "STATUS", "PRIORITY", "AGE")
	b.WriteString(m.theme.Header.Render(header) + "\n")

	for i, t := range m.tickets {
		line := fmt.Sprintf("  %-8s %-44s %-12s %-10s %s",
			t.TicketNumber, truncate(t.Subject, 44),
			string(t.Status), string(t.Priority), age(t))
		switch {
		case i == m.cursor:
			b.WriteString(m.theme.Selected.Render(line))
		case t.Status == model.TicketFailed:
			b.WriteString(m.theme.Error.Render(line))
		case t.Status.Active():
			b.WriteString(m.theme.Active.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + m.theme.Help.Render("enter open · s sync helpdesk"))
	return b.String()
}

// healthCards renders the aggregate counters row.
func (m Model) healthCards() string {
	h := m.health
	cards := []string{
		m.card("backend", h.Status),
		m.card("total", fmt.Sprintf("%d", h.TotalTickets)),
		m.card("in flight", fmt.Sprintf("%d", h.Processing+h.Analyzing+h.Fixing)),
		m.card("completed", fmt.Sprintf("%d", h.Completed)),
		m.card("failed", fmt.Sprintf("%d", h.Failed)),
		m.card("agents", fmt.Sprintf("%d", h.ActiveAgents)),
	}
	if h.AverageProcessingTimeMs > 0 {
		cards = append(cards, m.card("avg fix", fmt.Sprintf("%ds", h.AverageProcessingTimeMs/1000)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) card(label, value string) string {
	body := m.theme.CardHead.Render(value) + "\n" + m.theme.Subtle.Render(label)
	if label == "backend" && value != "UP" {
		body = m.theme.Error.Render(value) + "\n" + m.theme.Subtle.Render(label)
	}
	return m.theme.Card.Render(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

func sinceCreated(t model.Ticket) time.Duration {
	return time.Since(t.CreatedAt)
}

func age(t model.Ticket) string {
	if t.CompletedAt != nil {
		return "done"
	}
	d := sinceCreated(t)
	switch {
	case d.Hours() >= 24:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d.Hours() >= 1:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}
