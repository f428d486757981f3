package internal

import (
	"context"
	"fmt"
	"reflect"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harborchat/harbor-client/internal/chat"
	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/recovery"
)

type msgHandler = func(msg tea.Msg) (tea.Model, tea.Cmd)

const notificationWindow = 4 * time.Second

// registerHandler registers a message handler for the given message type.
// The msgType parameter should be a zero-value instance of the message type.
func (m *Model) registerHandler(msgType tea.Msg, handler msgHandler) {
	t := reflect.TypeOf(msgType)
	m.msgHandlers[t] = handler
}

func (m *Model) handleWindowResize(msg tea.Msg) (tea.Model, tea.Cmd) {
	windowMsg := msg.(tea.WindowSizeMsg)
	m.width = windowMsg.Width
	m.height = windowMsg.Height
	m.resizeAllScreens(windowMsg.Width, windowMsg.Height)
	return m, nil
}

func (m *Model) resizeAllScreens(w, h int) {
	if m.homeScreen != nil {
		m.homeScreen.SetSize(w, h)
	}
	if m.joinServerScreen != nil {
		m.joinServerScreen.SetSize(w, h)
	}
	if m.settingsScreen != nil {
		m.settingsScreen.SetSize(w, h)
	}
	if m.chatScreen != nil {
		m.chatScreen.SetSize(w, h)
	}
	if m.errorsScreen != nil {
		m.errorsScreen.SetSize(w, h)
	}
	if m.logsScreen != nil {
		m.logsScreen.SetSize(w, h)
	}
	if m.reportScreen != nil {
		m.reportScreen.SetSize(w, h)
	}
	if m.modalScreen != nil {
		m.modalScreen.SetSize(w, h)
	}
	if m.loadingScreen != nil {
		m.loadingScreen.SetSize(w, h)
	}
}

func (m *Model) handleCacheUpdatedMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.chatScreen != nil {
		m.chatScreen.Refresh()
	}
	return m, nil
}

func (m *Model) handleChatMessageMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	chatMessage := msg.(chatMessageMsg)

	if m.chatScreen != nil {
		m.chatScreen.Refresh()
	}

	if chatMessage.userID != m.prefs.Username {
		m.soundPlayer.PlayAsync(SoundMessage)
		if m.prefs.EnableBell {
			fmt.Print("\a")
		}
	}
	return m, nil
}

func (m *Model) handleNotificationMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	notification := msg.(notificationMsg)

	if notification.n.Severity == fault.SeverityError || notification.n.Severity == fault.SeverityCritical {
		m.soundPlayer.PlayAsync(SoundError)
	}

	if m.chatScreen == nil {
		return m, nil
	}
	m.chatScreen.SetNotification(notification.n)

	m.notifySeq++
	seq := m.notifySeq
	return m, tea.Tick(notificationWindow, func(time.Time) tea.Msg {
		return notificationExpiredMsg{seq: seq}
	})
}

func (m *Model) handleNotificationExpiredMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	expired := msg.(notificationExpiredMsg)
	// A newer notification owns the status line now.
	if expired.seq == m.notifySeq && m.chatScreen != nil {
		m.chatScreen.ClearNotification()
	}
	return m, nil
}

func (m *Model) handleErrorRecordedMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	recorded := msg.(errorRecordedMsg)

	if m.errorsScreen != nil {
		m.errorsScreen.Refresh()
	}
	if m.chatScreen != nil {
		m.chatScreen.Refresh()
	}

	// Critical faults (auth failures) interrupt whatever the user is doing.
	if recorded.rec.Severity == fault.SeverityCritical && m.CurrentScreen() != ScreenModal {
		m.modalScreen = NewModalScreen(ModalTypeError, "Error",
			recorded.rec.Message, []string{"Close"}, m)
		m.PushScreen(ScreenModal)
		return m, m.modalScreen.Init()
	}
	return m, nil
}

func (m *Model) handleRetryDoneMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.errorsScreen != nil {
		m.errorsScreen.Refresh()
	}
	if m.chatScreen != nil {
		m.chatScreen.Refresh()
	}
	return m, nil
}

func (m *Model) handleConnectedMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Pop loading screen if it's active
	if m.CurrentScreen() == ScreenLoading {
		m.PopScreen()
	}

	m.reconnectAttempts = 0
	m.serverName = m.prefs.ServerURL

	m.cache.UpsertUser(chat.User{ID: m.prefs.Username, Name: m.prefs.Username, Online: true})

	m.chatScreen = NewChatScreen(m)
	m.chatScreen.SetSize(m.width, m.height)
	m.chatScreen.FocusInput()
	m.NavigateTo(ScreenChat)
	m.soundPlayer.PlayAsync(SoundConnected)

	return m, nil
}

func (m *Model) handleConnectionAttemptMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	attemptMsg := msg.(connectionAttemptMsg)
	if attemptMsg.err != nil {
		// Connection failed - pop loading screen and show error
		if m.CurrentScreen() == ScreenLoading {
			m.PopScreen()
		}
		m.errorLog.AddError(fault.From(attemptMsg.err), fault.Context{"component": "connection"})
		m.modalScreen = NewModalScreen(ModalTypeError, "Connection Error", attemptMsg.err.Error(), []string{"OK"}, m)
		m.PushScreen(ScreenModal)
		return m, m.modalScreen.Init()
	}
	return m, func() tea.Msg { return connectedMsg{} }
}

func (m *Model) handleReconnectResultMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	result := msg.(reconnectResultMsg)

	if m.CurrentScreen() == ScreenLoading {
		m.PopScreen()
	}

	if result.err == nil {
		m.reconnectAttempts = 0
		m.chatScreen = NewChatScreen(m)
		m.chatScreen.SetSize(m.width, m.height)
		m.chatScreen.FocusInput()
		m.NavigateTo(ScreenChat)
		return m, nil
	}

	m.logger.Warn("Reconnect attempt failed", "attempt", result.attempt, "err", result.err)
	m.errorLog.AddError(fault.From(result.err), fault.Context{
		"component": "connection",
		"isRetry":   "true",
	})

	if result.attempt >= m.errorLog.MaxRetries() {
		m.modalScreen = NewModalScreen(ModalTypeError, "Connection Lost",
			"Reconnecting failed repeatedly. Please rejoin the server.", []string{"Home"}, m)
		m.NavigateTo(ScreenHome)
		m.PushScreen(ScreenModal)
		return m, m.modalScreen.Init()
	}

	m.modalScreen = NewModalScreen(ModalTypeConnectionLost, "Connection Lost",
		fmt.Sprintf("Reconnect attempt %d failed.", result.attempt), []string{"Home", "Retry"}, m)
	m.PushScreen(ScreenModal)
	return m, m.modalScreen.Init()
}

func (m *Model) handleSettingsSavedMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	settingsMsg := msg.(SettingsSavedMsg)

	// Update preferences
	m.prefs.Username = settingsMsg.Username
	m.prefs.DataDir = settingsMsg.DataDir
	m.prefs.EnableBell = settingsMsg.EnableBell
	m.prefs.EnableSounds = settingsMsg.EnableSounds
	m.prefs.MaxRetries = settingsMsg.MaxRetries
	m.prefs.RetryDelayMS = settingsMsg.RetryDelayMS

	// Update sound player enabled state
	if m.soundPlayer != nil {
		m.soundPlayer.SetEnabled(m.prefs.EnableSounds)
	}

	// Save to file
	if err := m.savePreferences(); err != nil {
		m.logger.Error("Failed to save preferences", "err", err)
	}

	m.PopScreen()

	// Push the auto-delete change to the server when it differs from the
	// server-confirmed state. The feature store handles rollback.
	newAutoDelete := chat.AutoDeleteSettings{
		Enabled:  settingsMsg.AutoDeleteEnabled,
		TTLHours: settingsMsg.AutoDeleteTTLHours,
	}
	if m.features != nil && newAutoDelete != m.cache.AutoDelete() {
		return m, m.safeCmd("settings", func() tea.Msg {
			m.features.AutoDelete.Update(context.Background(), newAutoDelete)
			return cacheUpdatedMsg{}
		})
	}
	return m, nil
}

func (m *Model) handleSettingsCancelledMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.PopScreen()
	return m, nil
}

// HomeScreen message handlers

func (m *Model) handleHomeJoinServerMsg() tea.Cmd {
	var cmd tea.Cmd
	m.joinServerScreen, cmd = NewJoinServerScreen(m)
	m.PushScreen(ScreenJoinServer)
	return cmd
}

func (m *Model) handleHomeSettingsMsg() tea.Cmd {
	var cmd tea.Cmd
	m.settingsScreen, cmd = NewSettingsScreen(m.prefs, m.cache.AutoDelete(), m)
	m.PushScreen(ScreenSettings)
	return cmd
}

func (m *Model) handleHomeErrorsMsg() {
	m.errorsScreen = NewErrorsScreen(m)
	m.PushScreen(ScreenErrors)
}

// JoinServerScreen message handlers

func (m *Model) handleJoinServerConnectMsg(msg JoinServerConnectMsg) tea.Cmd {
	m.prefs.ServerURL = msg.ServerURL
	m.prefs.EventURL = msg.EventURL
	m.prefs.Username = msg.Username
	m.prefs.Channel = msg.Channel
	if err := m.savePreferences(); err != nil {
		m.logger.Error("Failed to save preferences", "err", err)
	}

	// Show loading screen while connecting
	var loadingCmd tea.Cmd
	m.loadingScreen, loadingCmd = NewLoadingScreen("Connecting to server...", m)
	m.PushScreen(ScreenLoading)

	// Connect to server asynchronously
	connectCmd := m.safeCmd("connection", func() tea.Msg {
		err := m.joinServer()
		return connectionAttemptMsg{err: err}
	})

	return tea.Batch(loadingCmd, connectCmd)
}

func (m *Model) handleJoinServerCancelledMsg() {
	m.NavigateTo(ScreenHome)
}

// ChatScreen message handlers

func (m *Model) handleChatDisconnectRequestedMsg() tea.Cmd {
	m.modalScreen = NewModalScreen(ModalTypeDisconnect, "Leave the server?", "", []string{"Cancel", "Leave"}, m)
	m.PushScreen(ScreenModal)
	return m.modalScreen.Init()
}

func (m *Model) handleChatSendMsg(msg ChatSendMsg) tea.Cmd {
	outbound := chat.Message{
		ID:        uuid.New().String(),
		ChannelID: m.prefs.ResolvedChannel(),
		UserID:    m.prefs.Username,
		Body:      msg.Text,
		CreatedAt: time.Now(),
	}

	// Local echo first; the server rebroadcast reconciles via the cache.
	m.cache.UpsertMessage(outbound)
	if m.chatScreen != nil {
		m.chatScreen.Refresh()
	}

	return m.safeCmd("chat", func() tea.Msg {
		if err := m.Emit(chat.EventChatMessage, outbound); err != nil {
			m.cache.RemoveMessages([]string{outbound.ID})
			m.errorLog.AddError(fault.From(err), fault.Context{
				"feature":   "chat",
				"operation": "send_message",
				"component": "chat",
			})
		}
		return cacheUpdatedMsg{}
	})
}

func (m *Model) handleChatToggleStarMsg(msg ChatToggleStarMsg) tea.Cmd {
	if m.features == nil {
		return nil
	}
	return m.safeCmd("chat", func() tea.Msg {
		m.features.Stars.Toggle(context.Background(), msg.MessageID)
		return cacheUpdatedMsg{}
	})
}

func (m *Model) handleChatTogglePinMsg(msg ChatTogglePinMsg) tea.Cmd {
	if m.features == nil {
		return nil
	}
	return m.safeCmd("chat", func() tea.Msg {
		m.features.Pins.Toggle(context.Background(), msg.MessageID)
		return cacheUpdatedMsg{}
	})
}

func (m *Model) handleChatToggleBlockMsg(msg ChatToggleBlockMsg) tea.Cmd {
	if m.features == nil {
		return nil
	}
	return m.safeCmd("chat", func() tea.Msg {
		m.features.Blocks.Toggle(context.Background(), msg.UserID)
		return cacheUpdatedMsg{}
	})
}

func (m *Model) handleChatMarkReadMsg(msg ChatMarkReadMsg) tea.Cmd {
	if m.features == nil {
		return nil
	}
	return m.safeCmd("chat", func() tea.Msg {
		m.features.ReadMarks.Mark(context.Background(), msg.ChannelID, msg.MessageID)
		return cacheUpdatedMsg{}
	})
}

func (m *Model) handleChatReportMsg(msg ChatReportMsg) tea.Cmd {
	var cmd tea.Cmd
	m.reportScreen, cmd = NewReportScreen(msg.Target, msg.TargetID, msg.TargetLabel, m)
	m.PushScreen(ScreenReport)
	return cmd
}

// ReportScreen message handlers

func (m *Model) handleReportSubmittedMsg(msg ReportSubmittedMsg) tea.Cmd {
	m.PopScreen()
	if m.features == nil {
		return nil
	}
	return m.safeCmd("report", func() tea.Msg {
		if msg.Target == ReportTargetMessage {
			_ = m.features.Reports.ReportMessage(context.Background(), msg.TargetID, msg.Reason)
		} else {
			_ = m.features.Reports.ReportUser(context.Background(), msg.TargetID, msg.Reason)
		}
		return cacheUpdatedMsg{}
	})
}

func (m *Model) handleReportCancelledMsg() {
	m.PopScreen()
}

// ErrorsScreen message handlers

func (m *Model) handleErrorsRetryMsg(msg ErrorsRetryMsg) tea.Cmd {
	rec, ok := m.errorLog.Get(msg.ErrorID)
	if !ok {
		return nil
	}

	op := m.retryOperationFor(rec)
	if op == nil {
		m.modalScreen = NewModalScreen(ModalTypeError, "Retry",
			"This error cannot be retried.", []string{"Close"}, m)
		m.PushScreen(ScreenModal)
		return m.modalScreen.Init()
	}

	return m.safeCmd("error_screen", func() tea.Msg {
		_, err := m.coordinator.Retry(context.Background(), op, rec.ID, fault.Context{
			"feature":   rec.Context["feature"],
			"operation": rec.Context["operation"],
		})
		return retryDoneMsg{errorID: rec.ID, err: err}
	})
}

func (m *Model) handleErrorsDismissMsg(msg ErrorsDismissMsg) {
	m.errorLog.Dismiss(msg.ErrorID)
	if m.errorsScreen != nil {
		m.errorsScreen.Refresh()
	}
}

func (m *Model) handleErrorsClearMsg() {
	m.errorLog.Clear()
	if m.errorsScreen != nil {
		m.errorsScreen.Refresh()
	}
}

// retryOperationFor rebuilds the operation behind a ledger record from its
// recorded context. Records without enough context (or without an API
// client to run against) are not retryable.
func (m *Model) retryOperationFor(rec ledger.Record) recovery.Operation {
	if rec.Context["component"] == "connection" {
		return func(ctx context.Context) (any, error) {
			return nil, m.joinServer()
		}
	}

	if m.apiClient == nil {
		return nil
	}

	switch rec.Context["feature"] {
	case "stars":
		messageID := rec.Context["messageId"]
		return func(ctx context.Context) (any, error) {
			msg, ok := m.cache.Message(messageID)
			if !ok {
				return nil, nil
			}
			target := !msg.Starred
			var err error
			if target {
				err = m.apiClient.StarMessage(ctx, messageID)
			} else {
				err = m.apiClient.UnstarMessage(ctx, messageID)
			}
			if err != nil {
				return nil, err
			}
			m.cache.SetStarred(messageID, target)
			return target, nil
		}

	case "pins":
		messageID := rec.Context["messageId"]
		return func(ctx context.Context) (any, error) {
			msg, ok := m.cache.Message(messageID)
			if !ok {
				return nil, nil
			}
			target := !msg.Pinned
			var err error
			if target {
				err = m.apiClient.PinMessage(ctx, messageID)
			} else {
				err = m.apiClient.UnpinMessage(ctx, messageID)
			}
			if err != nil {
				return nil, err
			}
			m.cache.SetPinned(messageID, target)
			return target, nil
		}

	case "blocks":
		userID := rec.Context["userId"]
		return func(ctx context.Context) (any, error) {
			user, ok := m.cache.User(userID)
			if !ok {
				return nil, nil
			}
			target := !user.Blocked
			var err error
			if target {
				err = m.apiClient.BlockUser(ctx, userID)
			} else {
				err = m.apiClient.UnblockUser(ctx, userID)
			}
			if err != nil {
				return nil, err
			}
			m.cache.SetBlocked(userID, target)
			return target, nil
		}

	case "auto_delete":
		return func(ctx context.Context) (any, error) {
			settings := m.cache.AutoDelete()
			return settings, m.apiClient.UpdateAutoDelete(ctx, settings)
		}

	case "read_marks":
		channelID := rec.Context["channelId"]
		return func(ctx context.Context) (any, error) {
			msgs := m.cache.Messages()
			if len(msgs) == 0 {
				return nil, nil
			}
			latest := msgs[len(msgs)-1].ID
			if err := m.apiClient.MarkRead(ctx, channelID, latest); err != nil {
				return nil, err
			}
			m.cache.SetLastRead(channelID, latest)
			return latest, nil
		}

	case "reports":
		reason := rec.Context["reason"]
		if messageID := rec.Context["messageId"]; messageID != "" {
			return func(ctx context.Context) (any, error) {
				if err := m.apiClient.ReportMessage(ctx, messageID, reason); err != nil {
					return nil, err
				}
				m.cache.MarkMessageReported(messageID)
				return nil, nil
			}
		}
		if userID := rec.Context["userId"]; userID != "" {
			return func(ctx context.Context) (any, error) {
				if err := m.apiClient.ReportUser(ctx, userID, reason); err != nil {
					return nil, err
				}
				m.cache.MarkUserReported(userID)
				return nil, nil
			}
		}
	}

	return nil
}
