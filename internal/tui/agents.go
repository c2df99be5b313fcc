package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

func (m Model) updateAgents(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if next, cmd, switched := m.switchScreen(keyMsg); switched {
		return next, cmd
	}
	if next, moved := m.navigate(keyMsg, len(m.agents)); moved {
		return next, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		m.blockErr = ""
		return m, nil

	case key.Matches(keyMsg, m.keys.Refresh):
		return m, m.loadAgents()

	case key.Matches(keyMsg, m.keys.New):
		m.screen = screenAgentForm
		m.form = newAgentFormModel(nil)
		return m, textinput.Blink

	case key.Matches(keyMsg, m.keys.Edit):
		if m.cursor < len(m.agents) {
			a := m.agents[m.cursor]
			m.screen = screenAgentForm
			m.form = newAgentFormModel(&a)
			return m, textinput.Blink
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Toggle):
		if m.cursor < len(m.agents) {
			id := m.agents[m.cursor].ID
			app := m.app
			m.status = "toggling..."
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
				defer cancel()
				fresh, err := app.Agents.Toggle(ctx, id)
				if err != nil {
					return actionDoneMsg{err: err}
				}
				return actionDoneMsg{note: fmt.Sprintf("%s is now %s", fresh.AgentName, fresh.Status), agent: &fresh}
			}
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Delete):
		if m.cursor < len(m.agents) {
			a := m.agents[m.cursor]
			app := m.app
			m.confirm = &confirmState{
				prompt: fmt.Sprintf("Delete agent %q? This cannot be undone.", a.AgentName),
				action: func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
					defer cancel()
					agents, err := app.Agents.Delete(ctx, a.ID)
					return actionDoneMsg{note: "agent deleted", agents: agents, err: err}
				},
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) viewAgents() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("fixdeck · agents") + "\n\n")

	if len(m.agents) == 0 {
		b.WriteString(m.theme.Subtle.Render("no agents yet · n to create one") + "\n")
		return b.String()
	}

	header := fmt.Sprintf("  %-20s %-10s %-28s %-6s %s", "NAME", "STATUS", "MODEL", "MAX", "AUTO")
	b.WriteString(m.theme.Header.Render(header) + "\n")
	for i, a := range m.agents {
		auto := "no"
		if a.AutoProcessTickets {
			auto = "yes"
		}
		line := fmt.Sprintf("  %-20s %-10s %-28s %-6d %s",
			truncate(a.AgentName, 20), a.Status, truncate(a.LLMModel, 28),
			a.MaxConcurrentTickets, auto)
		switch {
		case i == m.cursor:
			b.WriteString(m.theme.Selected.Render(line))
		case a.Status == model.AgentActive:
			b.WriteString(m.theme.Success.Render(line))
		default:
			b.WriteString(m.theme.Subtle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + m.theme.Help.Render("n new · e edit · t toggle · d delete"))
	return b.String()
}

// --- Agent form ---

// agentFormModel edits one agent. A nil original means create.
type agentFormModel struct {
	original *model.Agent
	inputs   []textinput.Model
	focus    int
	auto     bool
}

const (
	agentFieldName = iota
	agentFieldDescription
	agentFieldProvider
	agentFieldModel
	agentFieldAPIKey
	agentFieldMaxTokens
	agentFieldTemperature
	agentFieldMaxTickets
	agentFieldWorkspace
	agentFieldCount
)

var agentFieldLabels = [agentFieldCount]string{
	"name", "description", "llm provider", "llm model", "llm api key",
	"max tokens", "temperature", "max concurrent tickets", "workspace dir",
}

func newAgentFormModel(a *model.Agent) agentFormModel {
	f := agentFormModel{original: a, inputs: make([]textinput.Model, agentFieldCount)}
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = agentFieldLabels[i]
		in.CharLimit = 256
		f.inputs[i] = in
	}
	f.inputs[agentFieldAPIKey].EchoMode = textinput.EchoPassword

	if a != nil {
		f.inputs[agentFieldName].SetValue(a.AgentName)
		f.inputs[agentFieldDescription].SetValue(a.AgentDescription)
		f.inputs[agentFieldProvider].SetValue(a.LLMProvider)
		f.inputs[agentFieldModel].SetValue(a.LLMModel)
		f.inputs[agentFieldAPIKey].SetValue(a.LLMAPIKey)
		f.inputs[agentFieldMaxTokens].SetValue(strconv.Itoa(a.LLMMaxTokens))
		f.inputs[agentFieldTemperature].SetValue(strconv.FormatFloat(a.LLMTemperature, 'f', -1, 64))
		f.inputs[agentFieldMaxTickets].SetValue(strconv.Itoa(a.MaxConcurrentTickets))
		f.inputs[agentFieldWorkspace].SetValue(a.GitWorkspaceDir)
		f.auto = a.AutoProcessTickets
	} else {
		defaults := model.DefaultBotConfig()
		f.inputs[agentFieldProvider].SetValue(defaults.LLMProvider)
		f.inputs[agentFieldModel].SetValue(defaults.LLMModel)
		f.inputs[agentFieldMaxTickets].SetValue("1")
	}
	f.inputs[0].Focus()
	return f
}

func (f agentFormModel) collect() (model.Agent, error) {
	var a model.Agent
	if f.original != nil {
		a = *f.original
	}
	a.AgentName = strings.TrimSpace(f.inputs[agentFieldName].Value())
	a.AgentDescription = strings.TrimSpace(f.inputs[agentFieldDescription].Value())
	a.LLMProvider = strings.TrimSpace(f.inputs[agentFieldProvider].Value())
	a.LLMModel = strings.TrimSpace(f.inputs[agentFieldModel].Value())
	a.LLMAPIKey = strings.TrimSpace(f.inputs[agentFieldAPIKey].Value())
	a.GitWorkspaceDir = strings.TrimSpace(f.inputs[agentFieldWorkspace].Value())
	a.AutoProcessTickets = f.auto

	var err error
	if v := strings.TrimSpace(f.inputs[agentFieldMaxTokens].Value()); v != "" {
		if a.LLMMaxTokens, err = strconv.Atoi(v); err != nil {
			return a, fmt.Errorf("max tokens must be a number")
		}
	}
	if v := strings.TrimSpace(f.inputs[agentFieldTemperature].Value()); v != "" {
		if a.LLMTemperature, err = strconv.ParseFloat(v, 64); err != nil {
			return a, fmt.Errorf("temperature must be a number")
		}
	}
	if v := strings.TrimSpace(f.inputs[agentFieldMaxTickets].Value()); v != "" {
		if a.MaxConcurrentTickets, err = strconv.Atoi(v); err != nil {
			return a, fmt.Errorf("max concurrent tickets must be a number")
		}
	}
	return a, nil
}

func (m Model) updateAgentForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
		return m, cmd
	}

	switch keyMsg.Type {
	case tea.KeyEsc:
		m.screen = screenAgents
		m.status = "edit cancelled"
		return m, nil

	case tea.KeyTab, tea.KeyDown:
		m.form.inputs[m.form.focus].Blur()
		m.form.focus = (m.form.focus + 1) % agentFieldCount
		m.form.inputs[m.form.focus].Focus()
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		m.form.inputs[m.form.focus].Blur()
		m.form.focus = (m.form.focus - 1 + agentFieldCount) % agentFieldCount
		m.form.inputs[m.form.focus].Focus()
		return m, nil

	case tea.KeyCtrlA:
		m.form.auto = !m.form.auto
		return m, nil

	case tea.KeyEnter:
		a, err := m.form.collect()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		app := m.app
		original := m.form.original
		m.status = "saving..."
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			var agents []model.Agent
			var opErr error
			note := "agent created"
			if original != nil {
				agents, opErr = app.Agents.Update(ctx, original.ID, a)
				note = "agent updated"
			} else {
				agents, opErr = app.Agents.Create(ctx, a)
			}
			return actionDoneMsg{note: note, agents: agents, err: opErr}
		}
	}

	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return m, cmd
}

func (m Model) viewAgentForm() string {
	var b strings.Builder
	title := "fixdeck · new agent"
	if m.form.original != nil {
		title = "fixdeck · edit " + m.form.original.AgentName
	}
	b.WriteString(m.theme.Title.Render(title) + "\n\n")

	for i, in := range m.form.inputs {
		label := fmt.Sprintf("%-24s", agentFieldLabels[i])
		if i == m.form.focus {
			b.WriteString(m.theme.Active.Render("▶ "+label) + in.View() + "\n")
		} else {
			b.WriteString(m.theme.Subtle.Render("  "+label) + in.View() + "\n")
		}
	}
	auto := "off"
	if m.form.auto {
		auto = "on"
	}
	b.WriteString(m.theme.Subtle.Render(fmt.Sprintf("  %-24s %s", "auto-process tickets", auto)) + "\n")
	b.WriteString("\n" + m.theme.Help.Render("enter save · tab next · C-a toggle auto · esc cancel"))
	return b.String()
}
