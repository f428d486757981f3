package internal

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/harborchat/harbor-client/internal/style"
)

// joinServerKeyMap defines the keybindings for the join server screen
type joinServerKeyMap struct {
	Tab    key.Binding
	Enter  key.Binding
	Escape key.Binding
}

func (k joinServerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Escape}
}

func (k joinServerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Enter, k.Escape}}
}

func newJoinServerKeyMap() joinServerKeyMap {
	return joinServerKeyMap{
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// Messages sent from JoinServerScreen to parent
type JoinServerConnectMsg struct {
	ServerURL string
	EventURL  string
	Username  string
	Channel   string
}

type JoinServerCancelledMsg struct{}

// JoinServerScreen is a self-contained BubbleTea model for the join server form
type JoinServerScreen struct {
	form          *huh.Form
	width, height int
	model         *Model
	help          help.Model
	keys          joinServerKeyMap

	// Form field values (bound to form inputs)
	serverURL string
	eventURL  string
	username  string
	channel   string
}

// enterSubmitsKeyMap creates a keymap where Enter submits the form immediately
// instead of tabbing through fields.
func enterSubmitsKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	// Remove enter from Next so it only navigates with tab
	km.Input.Next = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next"))
	km.Confirm.Next = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next"))
	// Add enter to submit so it shows in help
	km.Input.Submit = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect"))
	km.Confirm.Submit = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect"))
	return km
}

// buildJoinServerForm creates a Huh form bound to the screen's field values
func buildJoinServerForm(serverURL, eventURL, username, channel *string) *huh.Form {
	group := huh.NewGroup(
		huh.NewInput().
			Key("server").
			Title("Server URL").
			Placeholder("https://host:port").
			Value(serverURL),

		huh.NewInput().
			Key("events").
			Title("Event URL").
			Placeholder("wss://host:port/events (blank to derive)").
			Value(eventURL),

		huh.NewInput().
			Key("username").
			Title("Username").
			Placeholder("guest").
			Value(username),

		huh.NewInput().
			Key("channel").
			Title("Channel").
			Placeholder("general").
			Value(channel),
	)

	return huh.NewForm(group).
		WithWidth(50).
		WithShowHelp(false).
		WithShowErrors(true).
		WithKeyMap(enterSubmitsKeyMap())
}

// NewJoinServerScreen creates a new join server screen pre-populated from
// saved preferences
func NewJoinServerScreen(m *Model) (*JoinServerScreen, tea.Cmd) {
	screen := &JoinServerScreen{
		width:     m.width,
		height:    m.height,
		model:     m,
		help:      help.New(),
		keys:      newJoinServerKeyMap(),
		serverURL: m.prefs.ServerURL,
		eventURL:  m.prefs.EventURL,
		username:  m.prefs.Username,
		channel:   m.prefs.Channel,
	}

	screen.form = buildJoinServerForm(&screen.serverURL, &screen.eventURL, &screen.username, &screen.channel)

	return screen, screen.form.Init()
}

// Init implements tea.Model
func (s *JoinServerScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements ScreenModel
func (s *JoinServerScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case JoinServerConnectMsg:
		return s, s.model.handleJoinServerConnectMsg(msg)
	case JoinServerCancelledMsg:
		s.model.handleJoinServerCancelledMsg()
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return JoinServerCancelledMsg{} }
		case "enter":
			// First update the form to commit the current field's value
			form, _ := s.form.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				s.form = f
			}
			// Then submit the form immediately
			s.form.NextGroup()
			if s.form.State == huh.StateCompleted {
				return s, s.handleSubmit()
			}
			return s, nil
		}
	}

	// Update the form
	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	// Check if form is complete
	if s.form.State == huh.StateCompleted {
		return s, s.handleSubmit()
	}

	return s, cmd
}

// handleSubmit processes the form submission
func (s *JoinServerScreen) handleSubmit() tea.Cmd {
	serverURL := s.serverURL
	eventURL := s.eventURL
	username := s.username
	if username == "" {
		username = "guest"
	}
	channel := s.channel
	if channel == "" {
		channel = "general"
	}

	return func() tea.Msg {
		return JoinServerConnectMsg{
			ServerURL: serverURL,
			EventURL:  eventURL,
			Username:  username,
			Channel:   channel,
		}
	}
}

// View implements tea.Model
func (s *JoinServerScreen) View() string {
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		s.form.View(),
		"",
		s.help.View(s.keys),
	)

	return style.RenderSubscreen(s.width, s.height, "Connect to Server", content)
}

// SetSize updates the screen dimensions
func (s *JoinServerScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
}
