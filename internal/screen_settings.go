package internal

import (
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/harborchat/harbor-client/internal/chat"
	"github.com/harborchat/harbor-client/internal/style"
)

// settingsKeyMap defines the keybindings for the settings screen
type settingsKeyMap struct {
	Tab    key.Binding
	Enter  key.Binding
	Escape key.Binding
}

func (k settingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Escape}
}

func (k settingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Enter, k.Escape}}
}

func newSettingsKeyMap() settingsKeyMap {
	return settingsKeyMap{
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// Messages sent from SettingsScreen to parent
type SettingsSavedMsg struct {
	Username           string
	DataDir            string
	EnableBell         bool
	EnableSounds       bool
	MaxRetries         int
	RetryDelayMS       int
	AutoDeleteEnabled  bool
	AutoDeleteTTLHours int
}

type SettingsCancelledMsg struct{}

// SettingsScreen is a self-contained BubbleTea model for editing settings
type SettingsScreen struct {
	form          *huh.Form
	width, height int
	model         *Model
	help          help.Model
	keys          settingsKeyMap

	// Form field values (bound to form inputs)
	username          string
	dataDir           string
	maxRetries        string
	retryDelayMS      string
	enableBell        bool
	enableSounds      bool
	autoDeleteEnabled bool
	autoDeleteTTL     string
}

// buildSettingsForm creates a Huh form for editing settings
func buildSettingsForm(s *SettingsScreen) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("username").
				Title("Your Name").
				Placeholder("Your Name").
				Value(&s.username),

			huh.NewInput().
				Key("dataDir").
				Title("Data Directory").
				Placeholder("~/.harbor").
				Value(&s.dataDir),

			huh.NewInput().
				Key("maxRetries").
				Title("Max Retries").
				Placeholder("3").
				Value(&s.maxRetries),

			huh.NewInput().
				Key("retryDelayMS").
				Title("Retry Delay (ms)").
				Placeholder("1000").
				Value(&s.retryDelayMS),

			huh.NewConfirm().
				Key("enableBell").
				Title("Terminal Bell").
				Affirmative("On").
				Negative("Off").
				Value(&s.enableBell),

			huh.NewConfirm().
				Key("enableSounds").
				Title("Sounds").
				Affirmative("On").
				Negative("Off").
				Value(&s.enableSounds),

			huh.NewConfirm().
				Key("autoDeleteEnabled").
				Title("Auto-Delete Messages").
				Affirmative("On").
				Negative("Off").
				Value(&s.autoDeleteEnabled),

			huh.NewInput().
				Key("autoDeleteTTL").
				Title("Auto-Delete After (hours)").
				Placeholder("24").
				Value(&s.autoDeleteTTL),
		),
	).
		WithWidth(50).
		WithShowHelp(false).
		WithShowErrors(true).
		WithKeyMap(enterSubmitsKeyMap())
}

// NewSettingsScreen creates a new settings screen with current settings values
func NewSettingsScreen(prefs *Settings, autoDelete chat.AutoDeleteSettings, m *Model) (*SettingsScreen, tea.Cmd) {
	screen := &SettingsScreen{
		width:             m.width,
		height:            m.height,
		model:             m,
		help:              help.New(),
		keys:              newSettingsKeyMap(),
		username:          prefs.Username,
		dataDir:           prefs.DataDir,
		maxRetries:        strconv.Itoa(prefs.MaxRetries),
		retryDelayMS:      strconv.Itoa(prefs.RetryDelayMS),
		enableBell:        prefs.EnableBell,
		enableSounds:      prefs.EnableSounds,
		autoDeleteEnabled: autoDelete.Enabled,
		autoDeleteTTL:     strconv.Itoa(autoDelete.TTLHours),
	}

	screen.form = buildSettingsForm(screen)

	return screen, screen.form.Init()
}

// Init implements tea.Model
func (s *SettingsScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements ScreenModel
func (s *SettingsScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return SettingsCancelledMsg{} }
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
func (s *SettingsScreen) handleSubmit() tea.Cmd {
	// Read values from struct fields (bound to form inputs)
	username := s.username
	dataDir := s.dataDir
	enableBell := s.enableBell
	enableSounds := s.enableSounds
	autoDeleteEnabled := s.autoDeleteEnabled

	maxRetries := 3
	if n, err := strconv.Atoi(s.maxRetries); err == nil && n > 0 {
		maxRetries = n
	}
	retryDelayMS := 1000
	if n, err := strconv.Atoi(s.retryDelayMS); err == nil && n >= 0 {
		retryDelayMS = n
	}
	autoDeleteTTL := 24
	if n, err := strconv.Atoi(s.autoDeleteTTL); err == nil && n > 0 {
		autoDeleteTTL = n
	}

	return func() tea.Msg {
		return SettingsSavedMsg{
			Username:           username,
			DataDir:            dataDir,
			EnableBell:         enableBell,
			EnableSounds:       enableSounds,
			MaxRetries:         maxRetries,
			RetryDelayMS:       retryDelayMS,
			AutoDeleteEnabled:  autoDeleteEnabled,
			AutoDeleteTTLHours: autoDeleteTTL,
		}
	}
}

// View implements tea.Model
func (s *SettingsScreen) View() string {
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		s.form.View(),
		"",
		s.help.View(s.keys),
	)
	return style.RenderSubscreen(s.width, s.height, "Settings", content)
}

// SetSize updates the screen dimensions
func (s *SettingsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
}
