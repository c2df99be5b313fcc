package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fixdeck-io/fixdeck/internal/flow"
	"github.com/fixdeck-io/fixdeck/internal/watch"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// detailModel shows one ticket: header, projected pipeline progress,
// and the raw log trail in a scrollable viewport.
type detailModel struct {
	ticket  model.Ticket
	trail   []model.ProcessingLog
	state   watch.State
	lastErr error
	logs    viewport.Model
}

func newDetailModel(t model.Ticket, width, height int) detailModel {
	vp := viewport.New(max(20, width-4), max(5, height-24))
	return detailModel{ticket: t, state: watch.StateLoading, logs: vp}
}

func (d *detailModel) resize(width, height int) {
	d.logs.Width = max(20, width-4)
	d.logs.Height = max(5, height-24)
}

// applyWatch folds a current-generation watcher update into the
// detail screen. Stale generations are filtered by the caller.
func (m Model) applyWatch(u watch.Update) Model {
	if m.screen != screenDetail {
		return m
	}
	m.detail.state = u.State
	m.detail.lastErr = u.Err
	if u.Err == nil || u.Trail != nil {
		m.detail.ticket = u.Ticket
		m.detail.trail = u.Trail
	}
	atBottom := m.detail.logs.AtBottom()
	m.detail.logs.SetContent(m.renderTrail())
	if atBottom {
		m.detail.logs.GotoBottom()
	}
	return m
}

func (m Model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.detail.logs, cmd = m.detail.logs.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		m.app.Watcher.Deselect()
		m.screen = screenDashboard
		m.blockErr = ""
		return m, m.loadTickets()
	}
	if next, cmd, switched := m.switchScreen(keyMsg); switched {
		next.app.Watcher.Deselect()
		return next, cmd
	}

	var cmd tea.Cmd
	m.detail.logs, cmd = m.detail.logs.Update(msg)
	return m, cmd
}

func (m Model) viewDetail() string {
	t := m.detail.ticket
	var b strings.Builder

	b.WriteString(m.theme.Title.Render(fmt.Sprintf("%s  %s", t.TicketNumber, t.Subject)) + "\n")
	meta := fmt.Sprintf("%s · %s priority", t.Status, t.Priority)
	if t.RepositoryName != "" {
		meta += " · " + t.RepositoryName
	}
	if t.BranchName != "" {
		meta += " @ " + t.BranchName
	}
	b.WriteString(m.theme.statusStyle(string(t.Status)).Render(meta) + "\n")
	if t.PullRequestURL != "" {
		b.WriteString(m.theme.Active.Render(t.PullRequestURL) + "\n")
	}
	switch {
	case m.detail.lastErr != nil:
		b.WriteString(m.theme.Warning.Render("live update failed, showing last known state") + "\n")
	case m.detail.state == watch.StateWatching:
		b.WriteString(m.theme.Subtle.Render("watching · refreshes every "+m.app.Poll.String()) + "\n")
	case m.detail.state == watch.StateSettled:
		b.WriteString(m.theme.Subtle.Render("settled") + "\n")
	case m.detail.state == watch.StateLoading:
		b.WriteString(m.theme.Subtle.Render("loading trail...") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderPipeline() + "\n")
	b.WriteString(m.theme.Header.Render("  LOG") + "\n")
	b.WriteString(m.detail.logs.View() + "\n")
	b.WriteString(m.theme.Help.Render("esc back · j/k scroll"))
	return b.String()
}

// renderPipeline draws the projected step sequence.
func (m Model) renderPipeline() string {
	views := flow.Project(m.detail.ticket.Status, m.detail.trail)
	var b strings.Builder
	for _, v := range views {
		var marker, line string
		switch v.State {
		case flow.StepCompleted:
			marker = m.theme.Success.Render("✓")
			if v.Warned {
				marker = m.theme.Warning.Render("!")
			}
		case flow.StepFailed:
			marker = m.theme.Error.Render("✗")
		case flow.StepActive:
			marker = m.theme.Active.Render("▶")
		default:
			marker = m.theme.Subtle.Render("·")
		}
		line = fmt.Sprintf("  %s %-28s", marker, v.Step.Label())
		if v.Message != "" && v.State != flow.StepPending {
			line += " " + m.theme.Subtle.Render(truncate(v.Message, 48))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// renderTrail renders the raw log entries for the viewport.
func (m Model) renderTrail() string {
	if len(m.detail.trail) == 0 {
		return m.theme.Subtle.Render("no log entries yet")
	}
	var b strings.Builder
	for _, entry := range m.detail.trail {
		ts := entry.CreatedAt.Local().Format("15:04:05")
		var mark string
		switch entry.Status {
		case model.OutcomeSuccess:
			mark = m.theme.Success.Render("ok  ")
		case model.OutcomeFailure:
			mark = m.theme.Error.Render("fail")
		case model.OutcomeWarning:
			mark = m.theme.Warning.Render("warn")
		default:
			mark = m.theme.Subtle.Render("... ")
		}
		b.WriteString(fmt.Sprintf("%s %s %-24s %s\n", m.theme.Subtle.Render(ts), mark, entry.Step, entry.Message))
		if entry.ErrorDetails != "" {
			b.WriteString("             " + m.theme.Error.Render(entry.ErrorDetails) + "\n")
		}
	}
	return b.String()
}
