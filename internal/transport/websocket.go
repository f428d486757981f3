package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WS is a websocket-backed transport. Writes are serialized by a mutex;
// reads happen on the goroutine that calls Listen.
type WS struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[string][]Handler

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the chat server's event endpoint.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*WS, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &WS{
		conn:     conn,
		logger:   logger,
		handlers: make(map[string][]Handler),
	}, nil
}

// HandleFunc registers a handler for the given event type. Registration
// must happen before Listen starts consuming the stream.
func (t *WS) HandleFunc(eventType string, h Handler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.handlers[eventType] = append(t.handlers[eventType], h)
}

// Emit sends a command envelope to the server.
func (t *WS) Emit(eventType string, payload any) error {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(ev)
}

// Listen reads the event stream and dispatches to registered handlers
// until the connection drops or ctx is done. Events with no registered
// handler are logged at debug and dropped.
func (t *WS) Listen(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = t.Close()
	}()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.logger.Warn("Dropping malformed event", "err", err)
			continue
		}

		t.handlerMu.RLock()
		handlers := t.handlers[ev.Type]
		t.handlerMu.RUnlock()

		if len(handlers) == 0 {
			t.logger.Debug("No handler for event", "type", ev.Type)
			continue
		}
		for _, h := range handlers {
			h(ev)
		}
	}
}

// Close sends a close frame and tears down the connection.
func (t *WS) Close() error {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
