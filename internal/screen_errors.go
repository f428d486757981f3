package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/style"
)

// Messages sent from ErrorsScreen to parent

// ErrorsRetryMsg signals user wants to retry the selected error
type ErrorsRetryMsg struct {
	ErrorID string
}

// ErrorsDismissMsg signals user wants to dismiss the selected error
type ErrorsDismissMsg struct {
	ErrorID string
}

// ErrorsClearMsg signals user wants to clear the whole ledger
type ErrorsClearMsg struct{}

// errorsKeyMap defines key bindings for the errors screen help display
type errorsKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Retry   key.Binding
	Dismiss key.Binding
	Clear   key.Binding
	Filter  key.Binding
	Back    key.Binding
}

func (k errorsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Retry, k.Dismiss, k.Clear, k.Filter, k.Back}
}

func (k errorsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Retry, k.Dismiss, k.Clear, k.Filter, k.Back},
	}
}

func newErrorsKeyMap() errorsKeyMap {
	return errorsKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Dismiss: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear all")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// errorFilter narrows the record list to one category, or shows all.
type errorFilter int

const (
	filterAll errorFilter = iota
	filterNetwork
	filterServer
	filterClient
)

func (f errorFilter) label() string {
	switch f {
	case filterNetwork:
		return "network"
	case filterServer:
		return "server"
	case filterClient:
		return "client"
	}
	return "all"
}

// ErrorsScreen is a browser over the error ledger
type ErrorsScreen struct {
	viewport      viewport.Model
	help          help.Model
	keys          errorsKeyMap
	width, height int
	model         *Model

	records     []ledger.Record
	selectedIdx int
	filter      errorFilter
}

// NewErrorsScreen creates the error ledger browser
func NewErrorsScreen(m *Model) *ErrorsScreen {
	s := &ErrorsScreen{
		viewport: viewport.New(m.width-8, m.height-10),
		help:     help.New(),
		keys:     newErrorsKeyMap(),
		width:    m.width,
		height:   m.height,
		model:    m,
	}
	s.Refresh()
	return s
}

// Init returns initial commands
func (s *ErrorsScreen) Init() tea.Cmd {
	return nil
}

// Update handles messages and returns updated screen + commands
func (s *ErrorsScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case ErrorsRetryMsg:
		return s, s.model.handleErrorsRetryMsg(msg)

	case ErrorsDismissMsg:
		s.model.handleErrorsDismissMsg(msg)
		return s, nil

	case ErrorsClearMsg:
		s.model.handleErrorsClearMsg()
		return s, nil

	case tea.KeyMsg:
		return s.handleKeys(msg)
	}

	return s, nil
}

// handleKeys handles keyboard input
func (s *ErrorsScreen) handleKeys(msg tea.KeyMsg) (ScreenModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.model.PopScreen()
		return s, nil

	case "up", "k":
		if s.selectedIdx > 0 {
			s.selectedIdx--
			s.render()
		}
		return s, nil

	case "down", "j":
		if s.selectedIdx < len(s.records)-1 {
			s.selectedIdx++
			s.render()
		}
		return s, nil

	case "pgup":
		s.viewport.PageUp()
		return s, nil

	case "pgdown":
		s.viewport.PageDown()
		return s, nil

	case "r":
		if rec, ok := s.selected(); ok && rec.CanRetry {
			id := rec.ID
			return s, func() tea.Msg { return ErrorsRetryMsg{ErrorID: id} }
		}
		return s, nil

	case "d":
		if rec, ok := s.selected(); ok {
			id := rec.ID
			return s, func() tea.Msg { return ErrorsDismissMsg{ErrorID: id} }
		}
		return s, nil

	case "c":
		if len(s.records) > 0 {
			return s, func() tea.Msg { return ErrorsClearMsg{} }
		}
		return s, nil

	case "f":
		s.filter = (s.filter + 1) % 4
		s.selectedIdx = 0
		s.Refresh()
		return s, nil
	}

	return s, nil
}

func (s *ErrorsScreen) selected() (ledger.Record, bool) {
	if s.selectedIdx < 0 || s.selectedIdx >= len(s.records) {
		return ledger.Record{}, false
	}
	return s.records[s.selectedIdx], true
}

// Refresh re-reads the ledger and re-renders
func (s *ErrorsScreen) Refresh() {
	switch s.filter {
	case filterNetwork:
		s.records = s.model.errorLog.ByCategory(fault.CategoryNetwork)
	case filterServer:
		s.records = s.model.errorLog.ByCategory(fault.CategoryServer)
	case filterClient:
		s.records = s.model.errorLog.ByCategory(fault.CategoryClient)
	default:
		s.records = s.model.errorLog.Records()
	}

	if s.selectedIdx >= len(s.records) {
		s.selectedIdx = len(s.records) - 1
	}
	if s.selectedIdx < 0 {
		s.selectedIdx = 0
	}

	s.render()
}

func (s *ErrorsScreen) render() {
	if len(s.records) == 0 {
		s.viewport.SetContent(lipgloss.NewStyle().
			Foreground(style.ColorDarkGrey).
			Render("No recorded errors."))
		return
	}

	var b strings.Builder
	for i, rec := range s.records {
		b.WriteString(s.renderRecord(rec, i == s.selectedIdx))
		b.WriteString("\n")
	}
	s.viewport.SetContent(b.String())
}

// renderRecord formats one ledger record as a two-line entry.
func (s *ErrorsScreen) renderRecord(rec ledger.Record, selected bool) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}

	retryInfo := "not retryable"
	if rec.CanRetry {
		retryInfo = fmt.Sprintf("retries %d/%d", rec.RetryCount, s.model.errorLog.MaxRetries())
	}

	header := fmt.Sprintf("%s%s %s  %s",
		cursor,
		style.SeverityBadge(rec.Severity),
		rec.Message,
		lipgloss.NewStyle().Foreground(style.ColorDarkGrey).Render(retryInfo),
	)

	detail := fmt.Sprintf("   %s · %s · %s",
		rec.Category,
		rec.Name,
		rec.CreatedAt.Format("15:04:05"),
	)
	if op, ok := rec.Context["operation"]; ok {
		detail += " · " + op
	}

	line := header + "\n" + lipgloss.NewStyle().Foreground(style.ColorDarkGrey).Render(detail)
	if selected {
		return lipgloss.NewStyle().Bold(true).Render(header) + "\n" +
			lipgloss.NewStyle().Foreground(style.ColorLightGrey).Render(detail)
	}
	return line
}

// View renders the screen
func (s *ErrorsScreen) View() string {
	status := fmt.Sprintf("%d errors · %d retryable · filter: %s",
		len(s.records),
		s.model.errorLog.RecoverableCount(),
		s.filter.label(),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.NewStyle().Foreground(style.ColorLightGrey).Render(status),
		"",
		s.viewport.View(),
		"",
		s.help.View(s.keys),
	)

	return style.RenderSubscreen(s.width, s.height, "Errors", content)
}

// SetSize updates dimensions
func (s *ErrorsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.viewport.Width = width - 8
	s.viewport.Height = height - 10
}
