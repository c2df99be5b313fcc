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

// settings sections, switched with h/l.
const (
	sectionZoho = iota
	sectionGitLab
	sectionBot
	sectionProfile
	sectionCount
)

var sectionTitles = [sectionCount]string{"helpdesk", "gitlab", "bot defaults", "profile"}

type settingsFormKind int

const (
	formNone settingsFormKind = iota
	formZoho
	formGitLab
	formBot
	formProfile
)

// settingsModel is the integrations and account screen.
type settingsModel struct {
	section int
	zoho    []model.ZohoConfig
	gitlab  []model.GitLabConfig
	bot     model.BotConfig
	profile model.UserProfile

	formKind settingsFormKind
	inputs   []textinput.Model
	labels   []string
	focus    int
}

func (s settingsModel) editing() bool { return s.formKind != formNone }

func (s *settingsModel) closeForm() {
	s.formKind = formNone
	s.inputs = nil
	s.labels = nil
	s.focus = 0
}

func (s *settingsModel) openForm(kind settingsFormKind, labels []string, values []string, secret map[int]bool) {
	s.formKind = kind
	s.labels = labels
	s.inputs = make([]textinput.Model, len(labels))
	for i := range labels {
		in := textinput.New()
		in.Placeholder = labels[i]
		in.CharLimit = 256
		if secret[i] {
			in.EchoMode = textinput.EchoPassword
		}
		if i < len(values) {
			in.SetValue(values[i])
		}
		s.inputs[i] = in
	}
	s.inputs[0].Focus()
	s.focus = 0
}

// loadSettings fetches every settings section in one command.
func (m Model) loadSettings() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		zoho, err := app.Gateway.ZohoConfigs(ctx)
		if err != nil {
			return settingsMsg{err: err}
		}
		gitlab, err := app.Gateway.GitLabConfigs(ctx)
		if err != nil {
			return settingsMsg{err: err}
		}
		bot, err := app.Integ.LoadBot(ctx)
		if err != nil {
			return settingsMsg{err: err}
		}
		profile, err := app.Profile.Load(ctx)
		if err != nil {
			return settingsMsg{err: err}
		}
		return settingsMsg{zoho: zoho, gitlab: gitlab, bot: bot, profile: profile}
	}
}

func (m Model) updateSettings(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sm, ok := msg.(settingsMsg); ok {
		if sm.err != nil {
			return m.handleErr(sm.err, "settings load failed")
		}
		m.settings.zoho = sm.zoho
		m.settings.gitlab = sm.gitlab
		m.settings.bot = sm.bot
		m.settings.profile = sm.profile
		return m, nil
	}

	if m.settings.editing() {
		return m.updateSettingsForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if next, cmd, switched := m.switchScreen(keyMsg); switched {
		return next, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		m.blockErr = ""
		return m, nil

	case keyMsg.String() == "h" || keyMsg.Type == tea.KeyLeft:
		m.settings.section = (m.settings.section - 1 + sectionCount) % sectionCount
		m.cursor = 0
		return m, nil

	case keyMsg.String() == "l" || keyMsg.Type == tea.KeyRight:
		m.settings.section = (m.settings.section + 1) % sectionCount
		m.cursor = 0
		return m, nil

	case key.Matches(keyMsg, m.keys.Refresh):
		return m, m.loadSettings()
	}

	switch m.settings.section {
	case sectionZoho:
		return m.updateZohoSection(keyMsg)
	case sectionGitLab:
		return m.updateGitLabSection(keyMsg)
	case sectionBot:
		if key.Matches(keyMsg, m.keys.Edit) {
			b := m.settings.bot
			m.settings.openForm(formBot,
				[]string{"bot name", "bot email", "llm provider", "llm model", "llm api key", "max tokens", "temperature", "max concurrent tickets", "workspace dir"},
				[]string{b.BotName, b.BotEmail, b.LLMProvider, b.LLMModel, b.LLMAPIKey, strconv.Itoa(b.LLMMaxTokens), strconv.FormatFloat(b.LLMTemperature, 'f', -1, 64), strconv.Itoa(b.MaxConcurrentTickets), b.GitWorkspaceDir},
				map[int]bool{4: true})
			return m, textinput.Blink
		}
	case sectionProfile:
		if key.Matches(keyMsg, m.keys.Edit) {
			p := m.settings.profile
			m.settings.openForm(formProfile,
				[]string{"full name", "email", "company", "department", "phone", "timezone", "language"},
				[]string{p.FullName, p.Email, p.Company, p.Department, p.Phone, p.Timezone, p.Language},
				nil)
			return m, textinput.Blink
		}
	}

	if next, moved := m.navigate(keyMsg, m.sectionLength()); moved {
		return next, nil
	}
	return m, nil
}

func (m Model) sectionLength() int {
	switch m.settings.section {
	case sectionZoho:
		return len(m.settings.zoho)
	case sectionGitLab:
		return len(m.settings.gitlab)
	}
	return 0
}

func (m Model) updateZohoSection(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(keyMsg, m.keys.New):
		m.settings.openForm(formZoho,
			[]string{"config name", "org id", "client id", "client secret", "refresh token", "webhook secret"},
			nil, map[int]bool{3: true, 4: true, 5: true})
		return m, textinput.Blink

	case key.Matches(keyMsg, m.keys.Delete):
		if m.cursor < len(m.settings.zoho) {
			cfg := m.settings.zoho[m.cursor]
			app := m.app
			m.confirm = &confirmState{
				prompt: fmt.Sprintf("Delete helpdesk connection %q?", cfg.ConfigName),
				action: func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
					defer cancel()
					configs, err := app.Integ.DeleteZoho(ctx, cfg.ID)
					return actionDoneMsg{note: "helpdesk connection deleted", zoho: configs, err: err}
				},
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateGitLabSection(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(keyMsg, m.keys.New):
		m.settings.openForm(formGitLab,
			[]string{"config name", "gitlab url", "personal token", "username", "default branch"},
			nil, map[int]bool{2: true})
		return m, textinput.Blink

	case key.Matches(keyMsg, m.keys.Delete):
		if m.cursor < len(m.settings.gitlab) {
			cfg := m.settings.gitlab[m.cursor]
			app := m.app
			m.confirm = &confirmState{
				prompt: fmt.Sprintf("Delete gitlab connection %q?", cfg.ConfigName),
				action: func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
					defer cancel()
					configs, err := app.Integ.DeleteGitLab(ctx, cfg.ID)
					return actionDoneMsg{note: "gitlab connection deleted", gitlab: configs, err: err}
				},
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateSettingsForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.settings.inputs[m.settings.focus], cmd = m.settings.inputs[m.settings.focus].Update(msg)
		return m, cmd
	}

	switch keyMsg.Type {
	case tea.KeyEsc:
		m.settings.closeForm()
		m.status = "edit cancelled"
		return m, nil

	case tea.KeyTab, tea.KeyDown:
		n := len(m.settings.inputs)
		m.settings.inputs[m.settings.focus].Blur()
		m.settings.focus = (m.settings.focus + 1) % n
		m.settings.inputs[m.settings.focus].Focus()
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		n := len(m.settings.inputs)
		m.settings.inputs[m.settings.focus].Blur()
		m.settings.focus = (m.settings.focus - 1 + n) % n
		m.settings.inputs[m.settings.focus].Focus()
		return m, nil

	case tea.KeyEnter:
		return m.submitSettingsForm()
	}

	var cmd tea.Cmd
	m.settings.inputs[m.settings.focus], cmd = m.settings.inputs[m.settings.focus].Update(msg)
	return m, cmd
}

func (m Model) submitSettingsForm() (tea.Model, tea.Cmd) {
	value := func(i int) string { return strings.TrimSpace(m.settings.inputs[i].Value()) }
	app := m.app
	m.status = "saving..."

	switch m.settings.formKind {
	case formZoho:
		cfg := model.ZohoConfig{
			ConfigName: value(0), OrgID: value(1), ClientID: value(2),
			ClientSecret: value(3), RefreshToken: value(4), WebhookSecret: value(5),
			IsActive: true,
		}
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			configs, err := app.Integ.AddZoho(ctx, cfg)
			return actionDoneMsg{note: "helpdesk connection added", zoho: configs, err: err}
		}

	case formGitLab:
		cfg := model.GitLabConfig{
			ConfigName: value(0), GitLabURL: value(1), PersonalToken: value(2),
			Username: value(3), DefaultBranch: value(4), IsActive: true,
		}
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			configs, err := app.Integ.AddGitLab(ctx, cfg)
			return actionDoneMsg{note: "gitlab connection added", gitlab: configs, err: err}
		}

	case formBot:
		cfg := m.settings.bot
		cfg.BotName = value(0)
		cfg.BotEmail = value(1)
		cfg.LLMProvider = value(2)
		cfg.LLMModel = value(3)
		cfg.LLMAPIKey = value(4)
		cfg.LLMMaxTokens, _ = strconv.Atoi(value(5))
		cfg.LLMTemperature, _ = strconv.ParseFloat(value(6), 64)
		cfg.MaxConcurrentTickets, _ = strconv.Atoi(value(7))
		cfg.GitWorkspaceDir = value(8)
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			fresh, err := app.Integ.SaveBot(ctx, cfg)
			return actionDoneMsg{note: "bot defaults saved", bot: &fresh, err: err}
		}

	case formProfile:
		p := m.settings.profile
		p.FullName = value(0)
		p.Email = value(1)
		p.Company = value(2)
		p.Department = value(3)
		p.Phone = value(4)
		p.Timezone = value(5)
		p.Language = value(6)
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			fresh, err := app.Profile.Save(ctx, p)
			return actionDoneMsg{note: "profile saved", profile: &fresh, err: err}
		}
	}
	return m, nil
}

func (m Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("fixdeck · settings") + "\n\n")

	var tabs []string
	for i, title := range sectionTitles {
		if i == m.settings.section {
			tabs = append(tabs, m.theme.Active.Render("["+title+"]"))
		} else {
			tabs = append(tabs, m.theme.Subtle.Render(" "+title+" "))
		}
	}
	b.WriteString(strings.Join(tabs, " ") + "\n\n")

	if m.settings.editing() {
		return b.String() + m.viewSettingsForm()
	}

	switch m.settings.section {
	case sectionZoho:
		if len(m.settings.zoho) == 0 {
			b.WriteString(m.theme.Subtle.Render("no helpdesk connections · n to add one") + "\n")
		}
		for i, cfg := range m.settings.zoho {
			state := "inactive"
			if cfg.IsActive {
				state = "active"
			}
			line := fmt.Sprintf("  %-24s org %-16s %s", cfg.ConfigName, cfg.OrgID, state)
			if i == m.cursor {
				line = m.theme.Selected.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + m.theme.Help.Render("n add · d delete · h/l section"))

	case sectionGitLab:
		if len(m.settings.gitlab) == 0 {
			b.WriteString(m.theme.Subtle.Render("no gitlab connections · n to add one") + "\n")
		}
		for i, cfg := range m.settings.gitlab {
			line := fmt.Sprintf("  %-24s %-32s @%s", cfg.ConfigName, cfg.GitLabURL, cfg.Username)
			if i == m.cursor {
				line = m.theme.Selected.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + m.theme.Help.Render("n add · d delete · h/l section"))

	case sectionBot:
		cfg := m.settings.bot
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "bot name", orDash(cfg.BotName)))
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "provider", orDash(cfg.LLMProvider)))
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "model", orDash(cfg.LLMModel)))
		b.WriteString(fmt.Sprintf("  %-24s %d\n", "max tokens", cfg.LLMMaxTokens))
		b.WriteString(fmt.Sprintf("  %-24s %d\n", "max concurrent tickets", cfg.MaxConcurrentTickets))
		b.WriteString("\n" + m.theme.Help.Render("e edit · h/l section"))

	case sectionProfile:
		p := m.settings.profile
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "username", orDash(p.Username)))
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "full name", orDash(p.FullName)))
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "email", orDash(p.Email)))
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "role", orDash(p.Role)))
		b.WriteString(fmt.Sprintf("  %-24s %s\n", "timezone", orDash(p.Timezone)))
		b.WriteString("\n" + m.theme.Help.Render("e edit · h/l section"))
	}
	return b.String()
}

func (m Model) viewSettingsForm() string {
	var b strings.Builder
	for i, in := range m.settings.inputs {
		label := fmt.Sprintf("%-24s", m.settings.labels[i])
		if i == m.settings.focus {
			b.WriteString(m.theme.Active.Render("▶ "+label) + in.View() + "\n")
		} else {
			b.WriteString(m.theme.Subtle.Render("  "+label) + in.View() + "\n")
		}
	}
	b.WriteString("\n" + m.theme.Help.Render("enter save · tab next · esc cancel"))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
