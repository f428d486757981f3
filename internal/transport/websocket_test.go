package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsTestServer struct {
	srv      *httptest.Server
	received chan Event
	outbound chan Event
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	ts := &wsTestServer{
		received: make(chan Event, 16),
		outbound: make(chan Event, 16),
	}

	upgrader := websocket.Upgrader{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for ev := range ts.outbound {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}()

		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			ts.received <- ev
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func TestEmitSendsEnvelope(t *testing.T) {
	ts := newWSTestServer(t)

	conn, err := Dial(context.Background(), ts.url(), slog.Default())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Emit("star_message", map[string]string{"message_id": "m1"}))

	select {
	case ev := <-ts.received:
		assert.Equal(t, "star_message", ev.Type)
		assert.NotEmpty(t, ev.ID)

		var payload map[string]string
		require.NoError(t, ev.Decode(&payload))
		assert.Equal(t, "m1", payload["message_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the emitted event")
	}
}

func TestListenDispatchesByType(t *testing.T) {
	ts := newWSTestServer(t)

	conn, err := Dial(context.Background(), ts.url(), slog.Default())
	require.NoError(t, err)

	got := make(chan Event, 1)
	conn.HandleFunc("user_blocked", func(ev Event) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listenDone := make(chan error, 1)
	go func() { listenDone <- conn.Listen(ctx) }()

	ev, err := NewEvent("user_blocked", map[string]string{"user_id": "u9"})
	require.NoError(t, err)
	ts.outbound <- ev

	// An event nobody registered for is dropped, not fatal.
	unhandled, err := NewEvent("typing", map[string]string{"user_id": "u9"})
	require.NoError(t, err)
	ts.outbound <- unhandled

	select {
	case received := <-got:
		var payload map[string]string
		require.NoError(t, received.Decode(&payload))
		assert.Equal(t, "u9", payload["user_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	cancel()
	select {
	case <-listenDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not stop on context cancellation")
	}
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewEvent("bad", func() {})
	assert.Error(t, err)
}

func TestDecodeEmptyPayload(t *testing.T) {
	ev := Event{Type: "typing"}
	var v map[string]string
	assert.Error(t, ev.Decode(&v))
}
