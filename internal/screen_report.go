package internal

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/harborchat/harbor-client/internal/style"
)

// ReportTarget identifies what kind of thing is being reported
type ReportTarget int

const (
	ReportTargetMessage ReportTarget = iota
	ReportTargetUser
)

// reportKeyMap defines the keybindings for the report screen
type reportKeyMap struct {
	Tab    key.Binding
	Enter  key.Binding
	Escape key.Binding
}

func (k reportKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Escape}
}

func (k reportKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Enter, k.Escape}}
}

func newReportKeyMap() reportKeyMap {
	return reportKeyMap{
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// Messages sent from ReportScreen to parent
type ReportSubmittedMsg struct {
	Target   ReportTarget
	TargetID string
	Reason   string
}

type ReportCancelledMsg struct{}

// ReportScreen is a self-contained BubbleTea model for filing a report
type ReportScreen struct {
	form          *huh.Form
	width, height int
	model         *Model
	help          help.Model
	keys          reportKeyMap

	target      ReportTarget
	targetID    string
	targetLabel string

	// Form field values (bound to form inputs)
	reason  string
	details string
}

// buildReportForm creates a Huh form for the report reason
func buildReportForm(reason, details *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("reason").
				Title("Reason").
				Options(
					huh.NewOption("Spam", "spam"),
					huh.NewOption("Harassment", "harassment"),
					huh.NewOption("Other", "other"),
				).
				Value(reason),

			huh.NewInput().
				Key("details").
				Title("Details (optional)").
				Placeholder("Anything the moderators should know").
				Value(details),
		),
	).
		WithWidth(50).
		WithShowHelp(false).
		WithShowErrors(true).
		WithKeyMap(enterSubmitsKeyMap())
}

// NewReportScreen creates a report form for a message or user
func NewReportScreen(target ReportTarget, targetID, targetLabel string, m *Model) (*ReportScreen, tea.Cmd) {
	screen := &ReportScreen{
		width:       m.width,
		height:      m.height,
		model:       m,
		help:        help.New(),
		keys:        newReportKeyMap(),
		target:      target,
		targetID:    targetID,
		targetLabel: targetLabel,
	}

	screen.form = buildReportForm(&screen.reason, &screen.details)

	return screen, screen.form.Init()
}

// Init implements tea.Model
func (s *ReportScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements ScreenModel
func (s *ReportScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case ReportSubmittedMsg:
		return s, s.model.handleReportSubmittedMsg(msg)
	case ReportCancelledMsg:
		s.model.handleReportCancelledMsg()
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return ReportCancelledMsg{} }
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
func (s *ReportScreen) handleSubmit() tea.Cmd {
	reason := s.reason
	if reason == "" {
		reason = "other"
	}
	if s.details != "" {
		reason = reason + ": " + s.details
	}

	target := s.target
	targetID := s.targetID

	return func() tea.Msg {
		return ReportSubmittedMsg{
			Target:   target,
			TargetID: targetID,
			Reason:   reason,
		}
	}
}

// View implements tea.Model
func (s *ReportScreen) View() string {
	kind := "Message"
	if s.target == ReportTargetUser {
		kind = "User"
	}

	label := s.targetLabel
	if len(label) > 40 {
		label = label[:37] + "..."
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.NewStyle().Foreground(style.ColorLightGrey).Render(fmt.Sprintf("Reporting: %s", label)),
		"",
		s.form.View(),
		"",
		s.help.View(s.keys),
	)

	return style.RenderSubscreen(s.width, s.height, "Report "+kind, content)
}

// SetSize updates the screen dimensions
func (s *ReportScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
}
