// Package tui is the terminal dashboard for operating a fixdeck
// agent fleet: login, ticket observation with live pipeline progress,
// agent management, and integration settings.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fixdeck-io/fixdeck/internal/gateway"
	"github.com/fixdeck-io/fixdeck/internal/ops"
	"github.com/fixdeck-io/fixdeck/internal/session"
	"github.com/fixdeck-io/fixdeck/internal/watch"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// screen identifies the active view.
type screen int

const (
	screenLogin screen = iota
	screenDashboard
	screenDetail
	screenAgents
	screenAgentForm
	screenSettings
)

// App bundles the dashboard's long-lived dependencies.
type App struct {
	Gateway  *gateway.Client
	Session  *session.Session
	Watcher  *watch.Watcher
	Agents   *ops.AgentOps
	Integ    *ops.IntegrationOps
	Profile  *ops.ProfileOps
	Poll     time.Duration
	Logger   *slog.Logger
}

// requestTimeout bounds every API call made from the message loop.
const requestTimeout = 15 * time.Second

// --- Messages ---

type pollTickMsg struct{}

type ticketsMsg struct {
	tickets []model.Ticket
	err     error
}

type healthMsg struct {
	health model.AppHealth
	err    error
}

type agentsMsg struct {
	agents []model.Agent
	err    error
}

type loginDoneMsg struct {
	token string
	err   error
}

type registerDoneMsg struct{ err error }

type watchMsg struct {
	update watch.Update
}

type syncDoneMsg struct {
	message string
	err     error
}

// actionDoneMsg reports a completed mutation: the fresh data it
// returned plus a short status note.
type actionDoneMsg struct {
	note    string
	agents  []model.Agent
	agent   *model.Agent
	zoho    []model.ZohoConfig
	gitlab  []model.GitLabConfig
	bot     *model.BotConfig
	profile *model.UserProfile
	err     error
}

type settingsMsg struct {
	zoho    []model.ZohoConfig
	gitlab  []model.GitLabConfig
	bot     model.BotConfig
	profile model.UserProfile
	err     error
}

// confirmState is a pending destructive action awaiting a y/n answer.
type confirmState struct {
	prompt string
	action tea.Cmd
}

// Model is the root bubbletea model.
type Model struct {
	app   *App
	keys  KeyMap
	theme Theme

	screen screen
	width  int
	height int

	health  model.AppHealth
	tickets []model.Ticket
	agents  []model.Agent

	cursor   int
	status   string
	blockErr string
	confirm  *confirmState

	login    loginModel
	detail   detailModel
	form     agentFormModel
	settings settingsModel
}

// NewModel builds the root model. The session decides the first
// screen: a restored token skips login.
func NewModel(app *App) Model {
	m := Model{
		app:    app,
		keys:   DefaultKeyMap,
		theme:  DefaultTheme,
		screen: screenLogin,
		login:  newLoginModel(),
	}
	if app.Session.Authenticated() {
		m.screen = screenDashboard
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.screen == screenDashboard {
		return tea.Batch(m.loadTickets(), m.loadHealth(), m.pollTick(), m.listenWatch())
	}
	return tea.Batch(m.login.init(), m.listenWatch())
}

// --- Commands ---

func (m Model) loadTickets() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tickets, err := app.Gateway.Tickets(ctx)
		return ticketsMsg{tickets: tickets, err: err}
	}
}

func (m Model) loadHealth() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		h, err := app.Gateway.Health(ctx)
		return healthMsg{health: h, err: err}
	}
}

func (m Model) loadAgents() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		agents, err := app.Gateway.Agents(ctx)
		return agentsMsg{agents: agents, err: err}
	}
}

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(m.app.Poll, func(time.Time) tea.Msg { return pollTickMsg{} })
}

// listenWatch forwards one watcher update into the message loop and
// re-arms itself when handled.
func (m Model) listenWatch() tea.Cmd {
	w := m.app.Watcher
	return func() tea.Msg {
		u, ok := <-w.Updates()
		if !ok {
			return nil
		}
		return watchMsg{update: u}
	}
}

func (m Model) syncZoho() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg, err := app.Gateway.SyncZoho(ctx)
		return syncDoneMsg{message: msg, err: err}
	}
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// A pending confirmation swallows all keys until answered.
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.screen != screenLogin && key.Matches(msg, m.keys.Quit) && !m.editing() {
			return m, tea.Quit
		}
		if m.screen != screenLogin && key.Matches(msg, m.keys.Logout) {
			return m.logout("logged out")
		}

	case pollTickMsg:
		if m.screen == screenLogin {
			return m, nil
		}
		// The dashboard list and health refresh on the shared cadence;
		// the selected ticket is the watcher's job.
		return m, tea.Batch(m.loadTickets(), m.loadHealth(), m.pollTick())

	case ticketsMsg:
		if msg.err != nil {
			return m.handleErr(msg.err, "ticket refresh failed")
		}
		m.tickets = msg.tickets
		if m.cursor >= len(m.tickets) {
			m.cursor = max(0, len(m.tickets)-1)
		}
		return m, nil

	case healthMsg:
		if msg.err != nil {
			// Degraded card instead of a broken screen.
			m.health = model.DegradedHealth()
			return m.handleErr(msg.err, "health refresh failed")
		}
		m.health = msg.health
		return m, nil

	case agentsMsg:
		if msg.err != nil {
			return m.handleErr(msg.err, "agent list failed")
		}
		m.agents = msg.agents
		if m.cursor >= len(m.agents) {
			m.cursor = max(0, len(m.agents)-1)
		}
		return m, nil

	case watchMsg:
		next := m
		if msg.update.Gen == m.app.Watcher.Gen() {
			next = next.applyWatch(msg.update)
		}
		return next, next.listenWatch()

	case syncDoneMsg:
		if msg.err != nil {
			return m.handleErr(msg.err, "helpdesk sync failed")
		}
		m.status = msg.message
		return m, m.loadTickets()

	case actionDoneMsg:
		return m.applyAction(msg)
	}

	switch m.screen {
	case screenLogin:
		return m.updateLogin(msg)
	case screenDashboard:
		return m.updateDashboard(msg)
	case screenDetail:
		return m.updateDetail(msg)
	case screenAgents:
		return m.updateAgents(msg)
	case screenAgentForm:
		return m.updateAgentForm(msg)
	case screenSettings:
		return m.updateSettings(msg)
	}
	return m, nil
}

// editing reports whether a text input currently owns the keyboard,
// which disables single-letter shortcuts like q.
func (m Model) editing() bool {
	switch m.screen {
	case screenLogin, screenAgentForm:
		return true
	case screenSettings:
		return m.settings.editing()
	}
	return false
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		action := m.confirm.action
		m.confirm = nil
		m.status = "working..."
		return m, action
	case "n", "N", "esc":
		m.confirm = nil
		m.status = "cancelled"
		return m, nil
	}
	return m, nil
}

// applyAction folds a completed mutation's fresh data into the model.
func (m Model) applyAction(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if ops.IsValidation(msg.err) {
			// Validation failures stay on the form.
			m.status = msg.err.Error()
			return m, nil
		}
		return m.handleErr(msg.err, "action failed")
	}
	m.status = msg.note
	if msg.agents != nil {
		m.agents = msg.agents
		if m.cursor >= len(m.agents) {
			m.cursor = max(0, len(m.agents)-1)
		}
	}
	if msg.agent != nil {
		for i := range m.agents {
			if m.agents[i].ID == msg.agent.ID {
				m.agents[i] = *msg.agent
			}
		}
	}
	if msg.zoho != nil {
		m.settings.zoho = msg.zoho
	}
	if msg.gitlab != nil {
		m.settings.gitlab = msg.gitlab
	}
	if msg.bot != nil {
		m.settings.bot = *msg.bot
	}
	if msg.profile != nil {
		m.settings.profile = *msg.profile
	}
	if m.screen == screenAgentForm {
		m.screen = screenAgents
	}
	m.settings.closeForm()
	return m, nil
}

// handleErr routes an API error per the dashboard's taxonomy: 401
// ends the session, 403/404 block the current screen, everything
// else is a status bar note.
func (m Model) handleErr(err error, note string) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		return m.logout("session expired, sign in again")
	case errors.Is(err, gateway.ErrForbidden), errors.Is(err, gateway.ErrNotFound):
		m.blockErr = err.Error()
		return m, nil
	}
	m.app.Logger.Warn(note, "error", err)
	m.status = note
	return m, nil
}

func (m Model) logout(note string) (tea.Model, tea.Cmd) {
	m.app.Session.Clear()
	m.app.Watcher.Deselect()
	m.screen = screenLogin
	m.login = newLoginModel()
	m.login.notice = note
	m.blockErr = ""
	m.status = ""
	return m, m.login.init()
}

// --- View ---

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenLogin:
		body = m.viewLogin()
	case screenDashboard:
		body = m.viewDashboard()
	case screenDetail:
		body = m.viewDetail()
	case screenAgents:
		body = m.viewAgents()
	case screenAgentForm:
		body = m.viewAgentForm()
	case screenSettings:
		body = m.viewSettings()
	}

	if m.confirm != nil {
		modal := m.theme.Modal.Render(m.confirm.prompt + "\n\n" + m.theme.Help.Render("y confirm · n cancel"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}
	if m.screen == screenLogin {
		return body
	}
	return body + "\n" + m.statusBar()
}

func (m Model) statusBar() string {
	if m.blockErr != "" {
		return m.theme.Error.Render("✗ " + m.blockErr + "  (esc to dismiss)")
	}
	left := m.theme.Help.Render("1 tickets · 2 agents · 3 settings · r refresh · C-l logout · q quit")
	if m.status == "" {
		return left
	}
	return left + "  " + m.theme.Subtle.Render(m.status)
}

// navigate is shared list cursor movement.
func (m Model) navigate(msg tea.KeyMsg, length int) (Model, bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, true
	case key.Matches(msg, m.keys.Down):
		if m.cursor < length-1 {
			m.cursor++
		}
		return m, true
	}
	return m, false
}

// switchScreen handles the global screen hotkeys. Returns false when
// the key was not a screen switch.
func (m Model) switchScreen(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Dashboard):
		m.screen = screenDashboard
		m.cursor = 0
		m.blockErr = ""
		return m, tea.Batch(m.loadTickets(), m.loadHealth()), true
	case key.Matches(msg, m.keys.Agents):
		m.screen = screenAgents
		m.cursor = 0
		m.blockErr = ""
		return m, m.loadAgents(), true
	case key.Matches(msg, m.keys.Settings):
		m.screen = screenSettings
		m.cursor = 0
		m.blockErr = ""
		return m, m.loadSettings(), true
	}
	return m, nil, false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
