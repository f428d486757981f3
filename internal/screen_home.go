package internal

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harborchat/harbor-client/internal/style"
)

// Messages sent from HomeScreen to parent
type HomeJoinServerMsg struct{}

type HomeSettingsMsg struct{}

type HomeErrorsMsg struct{}

type HomeQuitMsg struct{}

type HomeRefreshBannerMsg struct{}

// HomeScreen is a self-contained BubbleTea model for the home screen
type HomeScreen struct {
	width, height int
	welcomeBanner string
	model         *Model
}

// NewHomeScreen creates a new home screen
func NewHomeScreen(m *Model) *HomeScreen {
	return &HomeScreen{
		width:         m.width,
		height:        m.height,
		welcomeBanner: m.welcomeBanner,
		model:         m,
	}
}

// Init implements tea.Model
func (s *HomeScreen) Init() tea.Cmd {
	return nil
}

// Update implements ScreenModel
func (s *HomeScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case HomeJoinServerMsg:
		return s, s.model.handleHomeJoinServerMsg()
	case HomeSettingsMsg:
		return s, s.model.handleHomeSettingsMsg()
	case HomeErrorsMsg:
		s.model.handleHomeErrorsMsg()
		return s, nil
	case HomeQuitMsg:
		return s, tea.Quit
	case HomeRefreshBannerMsg:
		s.welcomeBanner = randomBanner()
		s.model.welcomeBanner = s.welcomeBanner
		return s, nil

	case tea.KeyMsg:
		return s.handleKeys(msg)
	}

	return s, nil
}

// View implements tea.Model
func (s *HomeScreen) View() string {
	return lipgloss.Place(
		s.width,
		s.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(style.ColorCyan).
			Padding(1, 2).
			Render(lipgloss.JoinVertical(
				lipgloss.Left,
				lipgloss.NewStyle().
					Foreground(style.ColorCyan).
					Bold(true).
					Render(style.ApplyBoldForegroundGrad(s.welcomeBanner, style.ColorCyan, lipgloss.Color("#1B7ABF"))),
				strings.Join(
					[]string{
						fmt.Sprintf("%s Join Server", style.HotkeyStyle.Render("(j)")),
						fmt.Sprintf("%s Settings", style.HotkeyStyle.Render("(s)")),
						fmt.Sprintf("%s Errors", style.HotkeyStyle.Render("(e)")),
						fmt.Sprintf("%s Quit", style.HotkeyStyle.Render("(q)")),
					},
					"\n",
				),
			)),
		lipgloss.WithWhitespaceChars("☃︎"),
		lipgloss.WithWhitespaceForeground(style.Subtle),
	)
}

// SetSize updates the screen dimensions
func (s *HomeScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// handleKeys handles key input for the home screen
func (s *HomeScreen) handleKeys(msg tea.KeyMsg) (ScreenModel, tea.Cmd) {
	switch msg.String() {
	case "j":
		return s, func() tea.Msg { return HomeJoinServerMsg{} }
	case "s":
		return s, func() tea.Msg { return HomeSettingsMsg{} }
	case "e":
		return s, func() tea.Msg { return HomeErrorsMsg{} }
	case "ctrl+r":
		return s, func() tea.Msg { return HomeRefreshBannerMsg{} }
	case "q":
		return s, func() tea.Msg { return HomeQuitMsg{} }
	}
	return s, nil
}
