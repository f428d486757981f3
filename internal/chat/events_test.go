package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-client/internal/transport"
)

// fakeSource records handlers and lets tests inject inbound events.
type fakeSource struct {
	handlers map[string][]transport.Handler
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: make(map[string][]transport.Handler)}
}

func (f *fakeSource) HandleFunc(eventType string, h transport.Handler) {
	f.handlers[eventType] = append(f.handlers[eventType], h)
}

func (f *fakeSource) inject(t *testing.T, eventType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	for _, h := range f.handlers[eventType] {
		h(transport.Event{Type: eventType, Payload: data})
	}
}

func newBoundCache(t *testing.T) (*Cache, *fakeSource) {
	t.Helper()
	cache := NewCache()
	src := newFakeSource()
	Bind(src, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return cache, src
}

func TestBindChatMessage(t *testing.T) {
	cache, src := newBoundCache(t)

	src.inject(t, EventChatMessage, Message{ID: "msg-1", ChannelID: "general", Body: "hello"})

	msg, ok := cache.Message("msg-1")
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Body)
}

func TestBindStarEventsReconcileFlags(t *testing.T) {
	cache, src := newBoundCache(t)
	cache.UpsertMessage(Message{ID: "msg-1"})

	src.inject(t, EventStarMessage, MessageRef{MessageID: "msg-1"})
	msg, _ := cache.Message("msg-1")
	assert.True(t, msg.Starred)

	src.inject(t, EventUnstarMessage, MessageRef{MessageID: "msg-1"})
	msg, _ = cache.Message("msg-1")
	assert.False(t, msg.Starred)
}

func TestBindBlockEvents(t *testing.T) {
	cache, src := newBoundCache(t)
	cache.UpsertUser(User{ID: "user-1", Name: "ada"})

	src.inject(t, EventUserBlocked, UserRef{UserID: "user-1"})
	user, _ := cache.User("user-1")
	assert.True(t, user.Blocked)

	src.inject(t, EventUserUnblocked, UserRef{UserID: "user-1"})
	user, _ = cache.User("user-1")
	assert.False(t, user.Blocked)
}

func TestBindAutoDeleteSweepRemovesMessages(t *testing.T) {
	cache, src := newBoundCache(t)
	cache.UpsertMessage(Message{ID: "msg-1"})
	cache.UpsertMessage(Message{ID: "msg-2"})

	src.inject(t, EventMessagesAutoDeleted, MessagesDeletedPayload{MessageIDs: []string{"msg-1", "missing"}})

	_, ok := cache.Message("msg-1")
	assert.False(t, ok)
	_, ok = cache.Message("msg-2")
	assert.True(t, ok)
}

func TestBindAutoDeleteSettings(t *testing.T) {
	cache, src := newBoundCache(t)

	src.inject(t, EventAutoDeleteUpdated, AutoDeleteSettings{Enabled: true, TTLHours: 72})

	assert.Equal(t, AutoDeleteSettings{Enabled: true, TTLHours: 72}, cache.AutoDelete())
}

func TestBindReadMarker(t *testing.T) {
	cache, src := newBoundCache(t)

	src.inject(t, EventReadMarkerUpdated, ReadMarkerPayload{ChannelID: "general", MessageID: "msg-5"})

	id, ok := cache.LastRead("general")
	require.True(t, ok)
	assert.Equal(t, "msg-5", id)
}

func TestBindMalformedPayloadDropped(t *testing.T) {
	cache, src := newBoundCache(t)
	cache.UpsertMessage(Message{ID: "msg-1"})

	for _, h := range src.handlers[EventStarMessage] {
		h(transport.Event{Type: EventStarMessage, Payload: json.RawMessage(`{"message_id":42}`)})
	}

	msg, _ := cache.Message("msg-1")
	assert.False(t, msg.Starred)
}

func TestCacheMessagesSortedByTime(t *testing.T) {
	cache := NewCache()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.UpsertMessage(Message{ID: "c", CreatedAt: base.Add(2 * time.Minute)})
	cache.UpsertMessage(Message{ID: "a", CreatedAt: base})
	cache.UpsertMessage(Message{ID: "b", CreatedAt: base.Add(time.Minute)})

	msgs := cache.Messages()

	require.Len(t, msgs, 3)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)
	assert.Equal(t, "c", msgs[2].ID)
}

func TestCacheFlagFilters(t *testing.T) {
	cache := NewCache()
	cache.UpsertMessage(Message{ID: "a", Starred: true})
	cache.UpsertMessage(Message{ID: "b", Pinned: true})
	cache.UpsertMessage(Message{ID: "c"})

	require.Len(t, cache.StarredMessages(), 1)
	assert.Equal(t, "a", cache.StarredMessages()[0].ID)
	require.Len(t, cache.PinnedMessages(), 1)
	assert.Equal(t, "b", cache.PinnedMessages()[0].ID)
}
