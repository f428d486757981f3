package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/harborchat/harbor-client/internal/chat"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/style"
)

// Messages sent from ChatScreen to parent

// ChatDisconnectRequestedMsg signals user wants to leave the server
type ChatDisconnectRequestedMsg struct{}

// ChatSendMsg signals user wants to send a chat message
type ChatSendMsg struct {
	Text string
}

// ChatToggleStarMsg signals user wants to star/unstar a message
type ChatToggleStarMsg struct {
	MessageID string
}

// ChatTogglePinMsg signals user wants to pin/unpin a message
type ChatTogglePinMsg struct {
	MessageID string
}

// ChatToggleBlockMsg signals user wants to block/unblock a user
type ChatToggleBlockMsg struct {
	UserID string
}

// ChatMarkReadMsg signals user wants to advance the read marker
type ChatMarkReadMsg struct {
	ChannelID string
	MessageID string
}

// ChatReportMsg signals user wants to report a message or user
type ChatReportMsg struct {
	Target      ReportTarget
	TargetID    string
	TargetLabel string
}

// chatFocus identifies which pane owns keyboard input.
type chatFocus int

const (
	focusInput chatFocus = iota
	focusMessages
	focusUsers
)

// chatScreenKeyMap defines key bindings for the chat UI help display
type chatScreenKeyMap struct {
	Star   key.Binding
	Pin    key.Binding
	Block  key.Binding
	Report key.Binding
	Errors key.Binding
	Focus  key.Binding
	Leave  key.Binding
	Send   key.Binding
}

func (k chatScreenKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Star, k.Pin, k.Report, k.Errors, k.Leave}
}

func (k chatScreenKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Focus, k.Star, k.Pin, k.Block, k.Report, k.Errors, k.Leave},
	}
}

// ChatScreen is the main chat UI after connecting
type ChatScreen struct {
	// Bubble Tea components
	messageViewport viewport.Model
	chatInput       textinput.Model
	userViewport    viewport.Model
	help            help.Model
	keys            chatScreenKeyMap

	// Screen dimensions
	width, height int

	// Reference to parent model for callbacks
	model *Model

	// Screen-specific state
	visible         []chat.Message // Messages currently rendered, for selection
	wasAtBottom     bool           // Track scroll position for smart auto-scroll
	focus           chatFocus
	selectedMsgIdx  int
	selectedUserIdx int
	notification    notify.Notification
	hasNotification bool
}

// NewChatScreen creates the chat screen over the model's cache
func NewChatScreen(m *Model) *ChatScreen {
	chatInput := textinput.New()
	chatInput.Placeholder = "Type a message..."
	chatInput.Width = 80
	chatInput.Focus()

	keys := chatScreenKeyMap{
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "focus"),
		),
		Star: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "star"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin"),
		),
		Block: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "block"),
		),
		Report: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "report"),
		),
		Errors: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("^E", "errors"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
	}

	s := &ChatScreen{
		messageViewport: viewport.New(m.width-30, m.height-9),
		chatInput:       chatInput,
		userViewport:    viewport.New(25, m.height-14),
		help:            help.New(),
		keys:            keys,
		width:           m.width,
		height:          m.height,
		model:           m,
	}
	s.Refresh()
	return s
}

// Init returns initial commands
func (s *ChatScreen) Init() tea.Cmd {
	return nil
}

// Update handles messages and returns updated screen + commands
func (s *ChatScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	// Handle screen messages by delegating to parent methods
	case ChatDisconnectRequestedMsg:
		return s, s.model.handleChatDisconnectRequestedMsg()

	case ChatSendMsg:
		return s, s.model.handleChatSendMsg(msg)

	case ChatToggleStarMsg:
		return s, s.model.handleChatToggleStarMsg(msg)

	case ChatTogglePinMsg:
		return s, s.model.handleChatTogglePinMsg(msg)

	case ChatToggleBlockMsg:
		return s, s.model.handleChatToggleBlockMsg(msg)

	case ChatMarkReadMsg:
		return s, s.model.handleChatMarkReadMsg(msg)

	case ChatReportMsg:
		return s, s.model.handleChatReportMsg(msg)

	case tea.KeyMsg:
		return s.handleKeys(msg)
	}

	// Delegate to internal components
	var cmd tea.Cmd
	s.chatInput, cmd = s.chatInput.Update(msg)
	return s, cmd
}

// View renders the screen
func (s *ChatScreen) View() string {
	shortcuts := s.help.View(s.keys)

	// Message pane - double border when focused
	msgBorder := lipgloss.RoundedBorder()
	msgBorderColor := style.ColorCyan
	if s.focus == focusMessages {
		msgBorder = lipgloss.DoubleBorder()
	} else if s.focus == focusInput && !s.messageViewport.AtBottom() {
		msgBorderColor = style.ColorLightGrey
	}
	messageView := lipgloss.NewStyle().
		PaddingLeft(1).
		Border(msgBorder).
		BorderForeground(msgBorderColor).
		Render(s.messageViewport.View())

	// User pane - double border when focused
	userBorder := lipgloss.RoundedBorder()
	if s.focus == focusUsers {
		userBorder = lipgloss.DoubleBorder()
	}
	s.userViewport.SetContent(s.renderUserList())
	userView := lipgloss.NewStyle().
		Border(userBorder).
		BorderForeground(style.ColorCyan).
		Render(s.userViewport.View())

	title := style.ChatTitleStyle.Render(
		fmt.Sprintf("Harbor - %s #%s", s.model.serverName, s.model.prefs.ResolvedChannel()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		shortcuts,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			lipgloss.JoinVertical(lipgloss.Left,
				messageView,
				style.BoxStyle.Render(s.chatInput.View()),
				s.renderStatusLine(),
			),
			lipgloss.JoinVertical(lipgloss.Left, userView, s.renderErrorWidget()),
		),
	)
}

// renderStatusLine shows the current transient notification, if any.
func (s *ChatScreen) renderStatusLine() string {
	if !s.hasNotification {
		return " "
	}
	return style.NotificationStyle(s.notification.Severity).Render(s.notification.Text)
}

// renderUserList renders the sidebar user list with block/presence flags.
func (s *ChatScreen) renderUserList() string {
	var b strings.Builder
	for i, u := range s.model.cache.Users() {
		name := u.Name
		if s.focus == focusUsers && i == s.selectedUserIdx {
			name = "> " + name
		} else {
			name = "  " + name
		}

		switch {
		case u.Blocked:
			b.WriteString(style.BlockedUserStyle.Render(name))
		case !u.Online:
			b.WriteString(style.OfflineUserStyle.Render(name))
		default:
			b.WriteString(name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderErrorWidget summarizes the error ledger under the user list, the
// same slot the sidebar uses for ambient status.
func (s *ChatScreen) renderErrorWidget() string {
	records := s.model.errorLog.Records()

	var content strings.Builder
	content.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(style.ColorFuscia).
		Render("Errors") + "\n")

	if len(records) == 0 {
		content.WriteString(lipgloss.NewStyle().
			Foreground(style.ColorDarkGrey).
			Render("No errors"))
		return style.SidebarWidgetStyle.Render(content.String())
	}

	shown := records
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for i, rec := range shown {
		if i > 0 {
			content.WriteString("\n")
		}
		msg := rec.Message
		if len(msg) > 18 {
			msg = msg[:15] + "..."
		}
		content.WriteString(fmt.Sprintf("%-18s %s", msg, style.SeverityBadge(rec.Severity)))
	}

	recoverable := s.model.errorLog.RecoverableCount()
	if recoverable > 0 {
		content.WriteString("\n" + lipgloss.NewStyle().
			Foreground(style.ColorDarkGrey).
			Render(fmt.Sprintf("%d retryable (^E)", recoverable)))
	}

	return style.SidebarWidgetStyle.Render(content.String())
}

// SetSize updates dimensions
func (s *ChatScreen) SetSize(width, height int) {
	s.width = width
	s.height = height

	chatWidth := width - 30
	chatHeight := height - 10

	s.messageViewport.Width = chatWidth
	s.messageViewport.Height = chatHeight

	// Update chat input width to match message viewport
	s.chatInput.Width = chatWidth - 4

	s.userViewport.Width = 25
	s.userViewport.Height = height - 16

	s.Refresh()
}

// handleKeys handles keyboard input
func (s *ChatScreen) handleKeys(msg tea.KeyMsg) (ScreenModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return s, func() tea.Msg { return ChatDisconnectRequestedMsg{} }

	case "tab":
		s.cycleFocus()
		return s, nil
	}

	switch s.focus {
	case focusMessages:
		return s.handleMessageKeys(msg)
	case focusUsers:
		return s.handleUserKeys(msg)
	}
	return s.handleInputKeys(msg)
}

func (s *ChatScreen) cycleFocus() {
	switch s.focus {
	case focusInput:
		s.focus = focusMessages
		s.chatInput.Blur()
		if len(s.visible) > 0 {
			s.selectedMsgIdx = len(s.visible) - 1
		}
		s.Refresh()
	case focusMessages:
		s.focus = focusUsers
		s.Refresh()
	default:
		s.focus = focusInput
		s.chatInput.Focus()
		s.Refresh()
	}
}

func (s *ChatScreen) handleInputKeys(msg tea.KeyMsg) (ScreenModel, tea.Cmd) {
	switch msg.String() {
	case "up":
		s.messageViewport.ScrollUp(1)
		return s, nil
	case "down":
		s.messageViewport.ScrollDown(1)
		return s, nil
	case "pgup":
		s.messageViewport.PageUp()
		return s, nil
	case "pgdown":
		s.messageViewport.PageDown()
		return s, nil
	case "home":
		s.messageViewport.GotoTop()
		return s, nil
	case "end":
		s.messageViewport.GotoBottom()
		return s, nil
	case "enter":
		text := s.chatInput.Value()
		if text != "" {
			s.chatInput.SetValue("")
			return s, func() tea.Msg {
				return ChatSendMsg{Text: text}
			}
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.chatInput, cmd = s.chatInput.Update(msg)
	return s, cmd
}

func (s *ChatScreen) handleMessageKeys(msg tea.KeyMsg) (ScreenModel, tea.Cmd) {
	selected, ok := s.selectedMessage()

	switch msg.String() {
	case "up":
		if s.selectedMsgIdx > 0 {
			s.selectedMsgIdx--
			s.Refresh()
		}
		return s, nil

	case "down":
		if s.selectedMsgIdx < len(s.visible)-1 {
			s.selectedMsgIdx++
			s.Refresh()
		}
		return s, nil

	case "s":
		if ok {
			id := selected.ID
			return s, func() tea.Msg { return ChatToggleStarMsg{MessageID: id} }
		}
		return s, nil

	case "p":
		if ok {
			id := selected.ID
			return s, func() tea.Msg { return ChatTogglePinMsg{MessageID: id} }
		}
		return s, nil

	case "r":
		if ok {
			id := selected.ID
			label := selected.Body
			return s, func() tea.Msg {
				return ChatReportMsg{Target: ReportTargetMessage, TargetID: id, TargetLabel: label}
			}
		}
		return s, nil

	case "m":
		if ok {
			channel := selected.ChannelID
			id := selected.ID
			return s, func() tea.Msg {
				return ChatMarkReadMsg{ChannelID: channel, MessageID: id}
			}
		}
		return s, nil
	}

	return s, nil
}

func (s *ChatScreen) handleUserKeys(msg tea.KeyMsg) (ScreenModel, tea.Cmd) {
	users := s.model.cache.Users()
	var selected chat.User
	ok := s.selectedUserIdx >= 0 && s.selectedUserIdx < len(users)
	if ok {
		selected = users[s.selectedUserIdx]
	}

	switch msg.String() {
	case "up":
		if s.selectedUserIdx > 0 {
			s.selectedUserIdx--
		}
		return s, nil

	case "down":
		if s.selectedUserIdx < len(users)-1 {
			s.selectedUserIdx++
		}
		return s, nil

	case "b":
		if ok {
			id := selected.ID
			return s, func() tea.Msg { return ChatToggleBlockMsg{UserID: id} }
		}
		return s, nil

	case "r":
		if ok {
			id := selected.ID
			label := selected.Name
			return s, func() tea.Msg {
				return ChatReportMsg{Target: ReportTargetUser, TargetID: id, TargetLabel: label}
			}
		}
		return s, nil
	}

	return s, nil
}

func (s *ChatScreen) selectedMessage() (chat.Message, bool) {
	if s.selectedMsgIdx < 0 || s.selectedMsgIdx >= len(s.visible) {
		return chat.Message{}, false
	}
	return s.visible[s.selectedMsgIdx], true
}

// SetNotification puts a transient notification on the status line.
func (s *ChatScreen) SetNotification(n notify.Notification) {
	s.notification = n
	s.hasNotification = true
}

// ClearNotification empties the status line.
func (s *ChatScreen) ClearNotification() {
	s.hasNotification = false
}

// FocusInput sets focus to the chat input
func (s *ChatScreen) FocusInput() {
	s.focus = focusInput
	s.chatInput.Focus()
}

// Refresh rebuilds the message pane from the cache, hiding messages from
// blocked users and keeping the selection on the same message when it
// survives the rebuild.
func (s *ChatScreen) Refresh() {
	var selectedID string
	if sel, ok := s.selectedMessage(); ok {
		selectedID = sel.ID
	}

	s.wasAtBottom = s.messageViewport.AtBottom()

	s.visible = s.visible[:0]
	for _, msg := range s.model.cache.Messages() {
		if u, ok := s.model.cache.User(msg.UserID); ok && u.Blocked {
			continue
		}
		s.visible = append(s.visible, msg)
	}

	if selectedID != "" {
		for i, msg := range s.visible {
			if msg.ID == selectedID {
				s.selectedMsgIdx = i
				break
			}
		}
	}
	if s.selectedMsgIdx >= len(s.visible) {
		s.selectedMsgIdx = len(s.visible) - 1
	}

	var content strings.Builder
	for i, msg := range s.visible {
		content.WriteString(s.renderMessage(msg, s.focus == focusMessages && i == s.selectedMsgIdx))
		content.WriteString("\n")
	}
	s.messageViewport.SetContent(content.String())

	if s.wasAtBottom {
		s.messageViewport.GotoBottom()
	}
}

// renderMessage formats one message line with flag markers, wrapped to
// the viewport width.
func (s *ChatScreen) renderMessage(msg chat.Message, selected bool) string {
	var markers string
	if msg.Pinned {
		markers += style.PinMarkerStyle.Render("⚑ ")
	}
	if msg.Starred {
		markers += style.StarMarkerStyle.Render("★ ")
	}

	body := msg.Body
	if msg.Reported {
		body = style.ReportedStyle.Render(body)
	}

	line := markers + style.UsernameStyle.Render(msg.UserID+":") + " " + body
	if selected {
		line = "> " + line
	}

	return s.wrapChatMessage(line)
}

// wrapChatMessage wraps a chat message to fit within the message viewport width
func (s *ChatScreen) wrapChatMessage(formattedMsg string) string {
	const borderWidth = 2
	const paddingLeft = 1

	chatWidth := s.width - 30 - borderWidth
	if chatWidth < 10 {
		chatWidth = 10
	}

	wrapWidth := chatWidth - paddingLeft
	if wrapWidth < 5 {
		wrapWidth = 5 // Minimum for edge cases
	}

	// wordwrap.String handles ANSI codes correctly
	return wordwrap.String(formattedMsg, wrapWidth)
}
