package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// loginModel is the sign-in / register form.
type loginModel struct {
	inputs   []textinput.Model
	focus    int
	register bool
	busy     bool
	notice   string
}

const (
	loginFieldUsername = iota
	loginFieldPassword
	loginFieldEmail    // register only
	loginFieldFullName // register only
)

func newLoginModel() loginModel {
	username := textinput.New()
	username.Placeholder = "username"
	username.Focus()
	username.CharLimit = 64

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 128

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128

	fullName := textinput.New()
	fullName.Placeholder = "full name"
	fullName.CharLimit = 128

	return loginModel{inputs: []textinput.Model{username, password, email, fullName}}
}

func (l loginModel) init() tea.Cmd {
	return textinput.Blink
}

func (l loginModel) fieldCount() int {
	if l.register {
		return 4
	}
	return 2
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC:
			return m, tea.Quit

		case msg.String() == "ctrl+r":
			// Flip between sign-in and register.
			m.login.register = !m.login.register
			m.login.notice = ""
			return m, nil

		case msg.Type == tea.KeyTab || msg.Type == tea.KeyDown:
			m.login = m.login.focusField((m.login.focus + 1) % m.login.fieldCount())
			return m, nil

		case msg.Type == tea.KeyShiftTab || msg.Type == tea.KeyUp:
			m.login = m.login.focusField((m.login.focus - 1 + m.login.fieldCount()) % m.login.fieldCount())
			return m, nil

		case msg.Type == tea.KeyEnter:
			if m.login.busy {
				return m, nil
			}
			return m.submitLogin()
		}

	case loginDoneMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.notice = msg.err.Error()
			return m, nil
		}
		if err := m.app.Session.Establish(msg.token); err != nil {
			m.login.notice = err.Error()
			return m, nil
		}
		m.screen = screenDashboard
		m.status = ""
		return m, tea.Batch(m.loadTickets(), m.loadHealth(), m.pollTick())

	case registerDoneMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.notice = msg.err.Error()
			return m, nil
		}
		m.login.register = false
		m.login.notice = "account created, sign in"
		return m, nil
	}

	var cmd tea.Cmd
	m.login.inputs[m.login.focus], cmd = m.login.inputs[m.login.focus].Update(msg)
	return m, cmd
}

func (l loginModel) focusField(i int) loginModel {
	l.inputs[l.focus].Blur()
	l.focus = i
	l.inputs[l.focus].Focus()
	return l
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	username := strings.TrimSpace(m.login.inputs[loginFieldUsername].Value())
	password := m.login.inputs[loginFieldPassword].Value()
	if username == "" || password == "" {
		m.login.notice = "username and password are required"
		return m, nil
	}
	m.login.busy = true
	m.login.notice = ""
	app := m.app

	if m.login.register {
		reg := model.Registration{
			Username: username,
			Password: password,
			Email:    strings.TrimSpace(m.login.inputs[loginFieldEmail].Value()),
			FullName: strings.TrimSpace(m.login.inputs[loginFieldFullName].Value()),
		}
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return registerDoneMsg{err: app.Gateway.Register(ctx, reg)}
		}
	}

	creds := model.Credentials{Username: username, Password: password}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		token, err := app.Gateway.Login(ctx, creds)
		return loginDoneMsg{token: token, err: err}
	}
}

func (m Model) viewLogin() string {
	var b strings.Builder
	title := "fixdeck · sign in"
	if m.login.register {
		title = "fixdeck · register"
	}
	b.WriteString(m.theme.Title.Render(title) + "\n\n")

	for i := 0; i < m.login.fieldCount(); i++ {
		b.WriteString(m.login.inputs[i].View() + "\n")
	}
	if m.login.busy {
		b.WriteString("\n" + m.theme.Subtle.Render("signing in..."))
	}
	if m.login.notice != "" {
		b.WriteString("\n" + m.theme.Warning.Render(m.login.notice))
	}
	b.WriteString("\n\n" + m.theme.Help.Render("enter submit · tab next · C-r "+registerHint(m.login.register)+" · C-c quit"))

	card := m.theme.Card.Render(b.String())
	if m.width == 0 {
		return card
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func registerHint(registering bool) string {
	if registering {
		return "sign in instead"
	}
	return "register instead"
}
