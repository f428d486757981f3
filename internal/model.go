package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/harborchat/harbor-client/internal/api"
	"github.com/harborchat/harbor-client/internal/chat"
	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/recovery"
	"github.com/harborchat/harbor-client/internal/transport"
)

// Screen types
type Screen int

// ScreenModel is the interface that all screens must implement
type ScreenModel interface {
	Update(tea.Msg) (ScreenModel, tea.Cmd)
	View() string
}

const (
	ScreenHome Screen = iota
	ScreenJoinServer
	ScreenSettings
	ScreenChat
	ScreenErrors
	ScreenLogs
	ScreenReport
	ScreenModal
	ScreenLoading
)

// Model
type Model struct {
	program *tea.Program

	// Configuration
	cfgPath     string
	prefs       *Settings
	logger      *slog.Logger
	debugBuffer *DebugBuffer
	soundPlayer *SoundPlayer

	msgHandlers map[reflect.Type]msgHandler

	// Screen state
	screenHistory []Screen // Stack of screens, current screen is last element

	width         int
	height        int
	welcomeBanner string // Randomly selected banner, loaded once at startup

	// Chat state and error recovery
	cache       *chat.Cache
	errorLog    *ledger.Ledger
	coordinator *recovery.Coordinator
	notifier    notify.Notifier
	apiClient   *api.Client
	features    *chat.Features
	conn        *transport.WS
	serverName  string

	// Connection management
	connectionCtx       context.Context
	connectionCtxCancel context.CancelFunc
	clientDisconnecting bool
	reconnectAttempts   int

	notifySeq int // Sequence for expiring stale status-line notifications

	// Screens
	homeScreen       *HomeScreen
	joinServerScreen *JoinServerScreen
	settingsScreen   *SettingsScreen
	chatScreen       *ChatScreen
	errorsScreen     *ErrorsScreen
	logsScreen       *LogsScreen
	reportScreen     *ReportScreen
	modalScreen      *ModalScreen
	loadingScreen    *LoadingScreen
}

// CurrentScreen returns the current screen, or ScreenHome if history is empty
func (m *Model) CurrentScreen() Screen {
	if len(m.screenHistory) == 0 {
		return ScreenHome
	}
	return m.screenHistory[len(m.screenHistory)-1]
}

// PushScreen adds a new screen to history (modal/overlay pattern)
func (m *Model) PushScreen(screen Screen) {
	m.screenHistory = append(m.screenHistory, screen)
}

// PopScreen removes current screen and returns to previous
// Returns the screen we're now on
func (m *Model) PopScreen() Screen {
	if len(m.screenHistory) <= 1 {
		m.screenHistory = []Screen{ScreenHome}
		return ScreenHome
	}
	m.screenHistory = m.screenHistory[:len(m.screenHistory)-1]
	return m.screenHistory[len(m.screenHistory)-1]
}

// ReplaceScreen replaces the current screen without adding to history
func (m *Model) ReplaceScreen(screen Screen) {
	if len(m.screenHistory) == 0 {
		m.screenHistory = []Screen{screen}
	} else {
		m.screenHistory[len(m.screenHistory)-1] = screen
	}
}

// NavigateTo clears history and jumps to a screen (hard navigation)
// Used for disconnect or other full resets
func (m *Model) NavigateTo(screen Screen) {
	m.screenHistory = []Screen{screen}
}

// currentScreen returns the current screen as a ScreenModel interface
func (m *Model) currentScreen() ScreenModel {
	switch m.CurrentScreen() {
	case ScreenHome:
		return m.homeScreen
	case ScreenJoinServer:
		return m.joinServerScreen
	case ScreenSettings:
		return m.settingsScreen
	case ScreenChat:
		return m.chatScreen
	case ScreenErrors:
		return m.errorsScreen
	case ScreenLogs:
		return m.logsScreen
	case ScreenReport:
		return m.reportScreen
	case ScreenModal:
		return m.modalScreen
	case ScreenLoading:
		return m.loadingScreen
	}
	return nil
}

func NewModel(cfgPath string, logger *slog.Logger, db *DebugBuffer) *Model {
	prefs, err := readConfig(cfgPath)
	if err != nil {
		logger.Error(fmt.Sprintf("unable to read config file %s\n", cfgPath))
		os.Exit(1)
	}

	// Initialize sound player
	soundPlayer, err := NewSoundPlayer(prefs.EnableSounds)
	if err != nil {
		logger.Error("Failed to initialize sound player", "err", err)
	}

	m := &Model{
		msgHandlers:   make(map[reflect.Type]msgHandler),
		cfgPath:       cfgPath,
		prefs:         prefs,
		logger:        logger,
		debugBuffer:   db,
		soundPlayer:   soundPlayer,
		welcomeBanner: randomBanner(), // Load banner once at startup
		cache:         chat.NewCache(),
		screenHistory: []Screen{ScreenHome},
	}

	// Notifications raised by the state layers are forwarded into the
	// running program for the chat status line.
	m.notifier = notify.Func(func(n notify.Notification) {
		if m.program != nil {
			m.program.Send(notificationMsg{n: n})
		}
	})

	// The error ledger survives restarts via a snapshot in the data dir.
	store := ledger.NewFileStore(filepath.Join(prefs.ResolvedDataDir(), "errors.json"))
	m.errorLog = ledger.New(ledger.Config{MaxRetries: prefs.MaxRetries}, store, logger)
	m.errorLog.OnError(func(rec ledger.Record) {
		if m.program != nil {
			m.program.Send(errorRecordedMsg{rec: rec})
		}
	})

	m.coordinator = recovery.New(m.errorLog, recovery.Config{
		RetryDelay: time.Duration(prefs.RetryDelayMS) * time.Millisecond,
	}, m.notifier)

	return m
}

// Emit forwards a feature broadcast to the event connection. Feature
// stores hold the model as their emitter so reconnects swap the
// underlying connection transparently.
func (m *Model) Emit(eventType string, payload any) error {
	if m.conn == nil {
		return fault.Network("not connected")
	}
	return m.conn.Emit(eventType, payload)
}

func (m *Model) Init() tea.Cmd {
	// Initialize home screen
	m.homeScreen = NewHomeScreen(m)

	m.registerHandler(tea.WindowSizeMsg{}, m.handleWindowResize)
	m.registerHandler(cacheUpdatedMsg{}, m.handleCacheUpdatedMsg)
	m.registerHandler(chatMessageMsg{}, m.handleChatMessageMsg)
	m.registerHandler(notificationMsg{}, m.handleNotificationMsg)
	m.registerHandler(notificationExpiredMsg{}, m.handleNotificationExpiredMsg)
	m.registerHandler(errorRecordedMsg{}, m.handleErrorRecordedMsg)
	m.registerHandler(retryDoneMsg{}, m.handleRetryDoneMsg)
	m.registerHandler(connectedMsg{}, m.handleConnectedMsg)
	m.registerHandler(connectionAttemptMsg{}, m.handleConnectionAttemptMsg)
	m.registerHandler(reconnectResultMsg{}, m.handleReconnectResultMsg)
	m.registerHandler(SettingsSavedMsg{}, m.handleSettingsSavedMsg)
	m.registerHandler(SettingsCancelledMsg{}, m.handleSettingsCancelledMsg)
	m.registerHandler(ModalButtonClickedMsg{}, m.handleModalButtonClickedMsgHandler)
	m.registerHandler(ModalCancelledMsg{}, m.handleModalCancelledMsgHandler)
	m.registerHandler(LoadingCancelledMsg{}, m.handleLoadingCancelledMsgHandler)

	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.logger.Debug("Update UI", "tea.Msg", fmt.Sprintf("%v", msg), "currentScreen", m.CurrentScreen())

	// Handle global keybindings
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "ctrl+q" {
			return m, tea.Quit
		}
		if keyMsg.String() == "ctrl+l" {
			m.logsScreen = NewLogsScreen(m.debugBuffer, m)
			m.PushScreen(ScreenLogs)
			return m, nil
		}
		if keyMsg.String() == "ctrl+e" && m.CurrentScreen() != ScreenErrors {
			m.errorsScreen = NewErrorsScreen(m)
			m.PushScreen(ScreenErrors)
			return m, nil
		}
	}

	if _, ok := msg.(disconnectMsg); ok {
		return m.handleDisconnect()
	}

	// Check if we have a registered handler for this message type
	msgType := reflect.TypeOf(msg)
	if handler, ok := m.msgHandlers[msgType]; ok {
		return handler(msg)
	}

	if screen := m.currentScreen(); screen != nil {
		_, cmd := screen.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleDisconnect reacts to the event connection closing. A disconnect
// the user did not ask for offers a bounded number of manual reconnects
// before forcing a full rejoin.
func (m *Model) handleDisconnect() (tea.Model, tea.Cmd) {
	m.teardownConnection()

	if m.clientDisconnecting {
		m.clientDisconnecting = false
		m.NavigateTo(ScreenHome)
		return m, nil
	}

	m.errorLog.AddError(fault.Network("event connection closed"), fault.Context{
		"component": "connection",
	})

	if m.reconnectAttempts >= m.errorLog.MaxRetries() {
		m.modalScreen = NewModalScreen(ModalTypeError, "Connection Lost",
			"Reconnecting failed repeatedly. Please rejoin the server.", []string{"Home"}, m)
		m.NavigateTo(ScreenHome)
		m.PushScreen(ScreenModal)
		return m, m.modalScreen.Init()
	}

	m.modalScreen = NewModalScreen(ModalTypeConnectionLost, "Connection Lost",
		"The connection to the server was lost.", []string{"Home", "Retry"}, m)
	m.PushScreen(ScreenModal)
	return m, m.modalScreen.Init()
}

func (m *Model) teardownConnection() {
	if m.connectionCtxCancel != nil {
		m.connectionCtxCancel()
		m.connectionCtxCancel = nil
	}
	m.connectionCtx = nil
	m.conn = nil
}

// handleModalCancelledMsgHandler wraps handleModalCancelledMsg for the msgHandler signature
func (m *Model) handleModalCancelledMsgHandler(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.PopScreen()
	return m, nil
}

// handleModalButtonClickedMsgHandler wraps handleModalButtonClickedMsg for the msgHandler signature
func (m *Model) handleModalButtonClickedMsgHandler(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, m.handleModalButtonClickedMsg(msg.(ModalButtonClickedMsg))
}

// handleLoadingCancelledMsgHandler handles when the loading screen is cancelled (ESC pressed)
func (m *Model) handleLoadingCancelledMsgHandler(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.PopScreen()
	return m, nil
}

// handleModalButtonClickedMsg handles modal button clicks
func (m *Model) handleModalButtonClickedMsg(msg ModalButtonClickedMsg) tea.Cmd {
	switch msg.Type {
	case ModalTypeDisconnect:
		if msg.ButtonClicked == "Leave" {
			// Signal that client is initiating disconnect
			m.clientDisconnecting = true
			if m.connectionCtxCancel != nil {
				m.connectionCtxCancel()
			}
			m.NavigateTo(ScreenHome)
			return nil
		}
		// Cancel - return to previous screen
		m.PopScreen()

	case ModalTypeConnectionLost:
		if msg.ButtonClicked == "Retry" {
			m.reconnectAttempts++
			m.PopScreen()

			var loadingCmd tea.Cmd
			m.loadingScreen, loadingCmd = NewLoadingScreen("Reconnecting...", m)
			m.PushScreen(ScreenLoading)

			attempt := m.reconnectAttempts
			reconnectCmd := m.safeCmd("connection", func() tea.Msg {
				err := m.joinServer()
				return reconnectResultMsg{attempt: attempt, err: err}
			})
			return tea.Batch(loadingCmd, reconnectCmd)
		}
		m.reconnectAttempts = 0
		m.NavigateTo(ScreenHome)

	default:
		// Generic modal (errors, info) - return to previous screen
		m.PopScreen()
	}

	return nil
}

func (m *Model) View() string {
	if screen := m.currentScreen(); screen != nil {
		return screen.View()
	}
	return ""
}

func (m *Model) Start() error {
	// Store program reference for sending messages from the connection
	// reader and the state layers
	m.program = tea.NewProgram(m, tea.WithAltScreen())

	_, err := m.program.Run()
	return err
}

// safeCmd wraps a command so a panic inside it is recorded in the error
// ledger instead of crashing the program.
func (m *Model) safeCmd(component string, cmd tea.Cmd) tea.Cmd {
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				rec := m.errorLog.AddError(fault.FromPanic(r), fault.Context{
					"component": component,
					"type":      "uncaught_panic",
				})
				msg = errorRecordedMsg{rec: rec}
			}
		}()
		return cmd()
	}
}

// joinServer dials the event endpoint, wires the cache and feature stores
// to it, and starts the read loop. Runs on a command goroutine.
func (m *Model) joinServer() error {
	m.connectionCtx, m.connectionCtxCancel = context.WithCancel(context.Background())
	m.clientDisconnecting = false

	ctx, cancel := context.WithTimeout(m.connectionCtx, 10*time.Second)
	defer cancel()

	conn, err := transport.Dial(ctx, m.prefs.ResolvedEventURL(), m.logger)
	if err != nil {
		m.teardownConnection()
		return fmt.Errorf("error joining server: %w", err)
	}

	m.conn = conn
	m.apiClient = api.New(m.prefs.ServerURL, nil)
	m.features = chat.NewFeatures(m.cache, m.apiClient, m, m.errorLog, m.notifier, m.logger)

	chat.Bind(conn, m.cache, m.logger)
	m.bindScreenRefresh(conn)

	go func() {
		err := conn.Listen(m.connectionCtx)
		m.logger.Warn("Event stream closed", "err", err)
		m.program.Send(disconnectMsg{})
	}()

	return nil
}

// bindScreenRefresh re-renders the chat screen whenever an inbound event
// changes the cache. Bind applies the state change first; these handlers
// only schedule the redraw (and the message sound).
func (m *Model) bindScreenRefresh(conn *transport.WS) {
	refresh := func(transport.Event) {
		m.program.Send(cacheUpdatedMsg{})
	}
	for _, eventType := range []string{
		chat.EventPresence,
		chat.EventStarMessage,
		chat.EventUnstarMessage,
		chat.EventPinMessage,
		chat.EventUnpinMessage,
		chat.EventUserBlocked,
		chat.EventUserUnblocked,
		chat.EventAutoDeleteUpdated,
		chat.EventMessagesAutoDeleted,
		chat.EventMessageReported,
		chat.EventUserReported,
		chat.EventReadMarkerUpdated,
	} {
		conn.HandleFunc(eventType, refresh)
	}

	conn.HandleFunc(chat.EventChatMessage, func(ev transport.Event) {
		var msg chat.Message
		if err := ev.Decode(&msg); err != nil {
			return
		}
		m.program.Send(chatMessageMsg{userID: msg.UserID})
	})
}

func (m *Model) savePreferences() error {
	out, err := yaml.Marshal(m.prefs)
	if err != nil {
		return err
	}
	return os.WriteFile(m.cfgPath, out, 0666)
}
