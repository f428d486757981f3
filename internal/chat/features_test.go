package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
)

type fakeAPI struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAPI) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) StarMessage(_ context.Context, id string) error {
	return f.record("star:" + id)
}

func (f *fakeAPI) UnstarMessage(_ context.Context, id string) error {
	return f.record("unstar:" + id)
}

func (f *fakeAPI) PinMessage(_ context.Context, id string) error {
	return f.record("pin:" + id)
}

func (f *fakeAPI) UnpinMessage(_ context.Context, id string) error {
	return f.record("unpin:" + id)
}

func (f *fakeAPI) BlockUser(_ context.Context, id string) error {
	return f.record("block:" + id)
}

func (f *fakeAPI) UnblockUser(_ context.Context, id string) error {
	return f.record("unblock:" + id)
}

func (f *fakeAPI) UpdateAutoDelete(_ context.Context, s AutoDeleteSettings) error {
	return f.record(fmt.Sprintf("auto_delete:%v:%d", s.Enabled, s.TTLHours))
}

func (f *fakeAPI) MarkRead(_ context.Context, channelID, messageID string) error {
	return f.record("read:" + channelID + ":" + messageID)
}

func (f *fakeAPI) ReportMessage(_ context.Context, id, reason string) error {
	return f.record("report_message:" + id + ":" + reason)
}

func (f *fakeAPI) ReportUser(_ context.Context, id, reason string) error {
	return f.record("report_user:" + id + ":" + reason)
}

type emittedEvent struct {
	eventType string
	payload   any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeEmitter) Emit(eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{eventType: eventType, payload: payload})
	return nil
}

func (f *fakeEmitter) eventList() []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emittedEvent(nil), f.events...)
}

type fixture struct {
	cache    *Cache
	api      *fakeAPI
	emitter  *fakeEmitter
	ledger   *ledger.Ledger
	features *Features
	notified []notify.Notification
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fx := &fixture{
		cache:   NewCache(),
		api:     &fakeAPI{},
		emitter: &fakeEmitter{},
		ledger:  ledger.New(ledger.Config{}, nil, logger),
	}
	notifier := notify.Func(func(n notify.Notification) {
		fx.notified = append(fx.notified, n)
	})
	fx.features = NewFeatures(fx.cache, fx.api, fx.emitter, fx.ledger, notifier, logger)

	fx.cache.UpsertMessage(Message{ID: "msg-1", ChannelID: "general", Body: "hello", CreatedAt: time.Now()})
	fx.cache.UpsertUser(User{ID: "user-1", Name: "ada"})
	return fx
}

func TestToggleStarSuccess(t *testing.T) {
	fx := newFixture(t)

	ok := fx.features.Stars.Toggle(context.Background(), "msg-1")

	require.True(t, ok)
	msg, _ := fx.cache.Message("msg-1")
	assert.True(t, msg.Starred)
	assert.Equal(t, []string{"star:msg-1"}, fx.api.callList())

	events := fx.emitter.eventList()
	require.Len(t, events, 1)
	assert.Equal(t, EventStarMessage, events[0].eventType)
	assert.Equal(t, MessageRef{MessageID: "msg-1"}, events[0].payload)

	require.Len(t, fx.notified, 1)
	assert.Equal(t, fault.SeverityInfo, fx.notified[0].Severity)
}

func TestToggleStarOffCallsUnstar(t *testing.T) {
	fx := newFixture(t)
	fx.cache.SetStarred("msg-1", true)

	ok := fx.features.Stars.Toggle(context.Background(), "msg-1")

	require.True(t, ok)
	msg, _ := fx.cache.Message("msg-1")
	assert.False(t, msg.Starred)
	assert.Equal(t, []string{"unstar:msg-1"}, fx.api.callList())
	assert.Equal(t, EventUnstarMessage, fx.emitter.eventList()[0].eventType)
}

func TestToggleStarRollsBackOnFailure(t *testing.T) {
	fx := newFixture(t)
	fx.api.err = fault.Network("fetch failed")

	ok := fx.features.Stars.Toggle(context.Background(), "msg-1")

	require.False(t, ok)
	msg, _ := fx.cache.Message("msg-1")
	assert.False(t, msg.Starred, "star must roll back to the snapshot")
	assert.Empty(t, fx.emitter.eventList())

	require.Len(t, fx.notified, 1, "exactly one failure notification")
	assert.Equal(t, fault.SeverityWarning, fx.notified[0].Severity)
	assert.Equal(t, "Connection issue detected. Retrying...", fx.notified[0].Text)

	records := fx.ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, fault.CategoryNetwork, records[0].Category)
	assert.Equal(t, "stars", records[0].Context["feature"])
	assert.Equal(t, "toggle_star", records[0].Context["operation"])
	assert.Equal(t, "msg-1", records[0].Context["messageId"])
}

func TestToggleStarUnknownMessage(t *testing.T) {
	fx := newFixture(t)

	ok := fx.features.Stars.Toggle(context.Background(), "missing")

	assert.False(t, ok)
	assert.Empty(t, fx.api.callList())
}

type blockingStarAPI struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingStarAPI) StarMessage(context.Context, string) error {
	close(b.started)
	<-b.release
	return nil
}

func (b *blockingStarAPI) UnstarMessage(context.Context, string) error { return nil }

func TestToggleStarOverlapIsNoOp(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewCache()
	cache.UpsertMessage(Message{ID: "msg-1"})
	api := &blockingStarAPI{started: make(chan struct{}), release: make(chan struct{})}
	stars := NewStars(cache, api, nil, ledger.New(ledger.Config{}, nil, logger), nil, logger)

	done := make(chan bool)
	go func() { done <- stars.Toggle(context.Background(), "msg-1") }()
	<-api.started
	assert.True(t, stars.Busy("msg-1"))

	overlapped := stars.Toggle(context.Background(), "msg-1")
	assert.False(t, overlapped, "second toggle while one is in flight is a no-op")

	close(api.release)
	assert.True(t, <-done)
}

func TestTogglePin(t *testing.T) {
	fx := newFixture(t)

	require.True(t, fx.features.Pins.Toggle(context.Background(), "msg-1"))
	msg, _ := fx.cache.Message("msg-1")
	assert.True(t, msg.Pinned)
	assert.Equal(t, []string{"pin:msg-1"}, fx.api.callList())
	assert.Equal(t, EventPinMessage, fx.emitter.eventList()[0].eventType)
}

func TestToggleBlockRollsBackOnFailure(t *testing.T) {
	fx := newFixture(t)
	fx.api.err = fault.HTTP(500, "internal error")

	ok := fx.features.Blocks.Toggle(context.Background(), "user-1")

	require.False(t, ok)
	user, _ := fx.cache.User("user-1")
	assert.False(t, user.Blocked)

	require.Len(t, fx.notified, 1)
	assert.Equal(t, fault.SeverityError, fx.notified[0].Severity)
	assert.Equal(t, "The server had a problem. Please try again in a moment.", fx.notified[0].Text)
}

func TestAutoDeleteUpdate(t *testing.T) {
	fx := newFixture(t)
	settings := AutoDeleteSettings{Enabled: true, TTLHours: 48}

	require.True(t, fx.features.AutoDelete.Update(context.Background(), settings))
	assert.Equal(t, settings, fx.cache.AutoDelete())
	assert.Equal(t, []string{"auto_delete:true:48"}, fx.api.callList())
	assert.Equal(t, EventAutoDeleteUpdated, fx.emitter.eventList()[0].eventType)
}

func TestAutoDeleteUpdateRollsBack(t *testing.T) {
	fx := newFixture(t)
	original := AutoDeleteSettings{Enabled: true, TTLHours: 24}
	fx.cache.SetAutoDelete(original)
	fx.api.err = fault.Network("fetch failed")

	ok := fx.features.AutoDelete.Update(context.Background(), AutoDeleteSettings{Enabled: false})

	require.False(t, ok)
	assert.Equal(t, original, fx.cache.AutoDelete())
}

func TestMarkReadSuccess(t *testing.T) {
	fx := newFixture(t)

	require.True(t, fx.features.ReadMarks.Mark(context.Background(), "general", "msg-1"))

	id, ok := fx.cache.LastRead("general")
	require.True(t, ok)
	assert.Equal(t, "msg-1", id)
	assert.Empty(t, fx.notified, "read markers update quietly")
	assert.Equal(t, EventReadMarkerUpdated, fx.emitter.eventList()[0].eventType)
}

func TestMarkReadRollsBack(t *testing.T) {
	fx := newFixture(t)
	fx.cache.SetLastRead("general", "msg-0")
	fx.api.err = fault.Network("fetch failed")

	ok := fx.features.ReadMarks.Mark(context.Background(), "general", "msg-1")

	require.False(t, ok)
	id, _ := fx.cache.LastRead("general")
	assert.Equal(t, "msg-0", id)
}

func TestReportMessageSuccess(t *testing.T) {
	fx := newFixture(t)

	err := fx.features.Reports.ReportMessage(context.Background(), "msg-1", "spam")

	require.NoError(t, err)
	msg, _ := fx.cache.Message("msg-1")
	assert.True(t, msg.Reported)
	assert.Equal(t, []string{"report_message:msg-1:spam"}, fx.api.callList())
	assert.Equal(t, EventMessageReported, fx.emitter.eventList()[0].eventType)
}

func TestReportMessageFailureReturnsError(t *testing.T) {
	fx := newFixture(t)
	fx.api.err = fault.HTTP(422, "reason required")

	err := fx.features.Reports.ReportMessage(context.Background(), "msg-1", "")

	require.Error(t, err)
	msg, _ := fx.cache.Message("msg-1")
	assert.False(t, msg.Reported, "nothing is marked until the server accepts")
	assert.Empty(t, fx.emitter.eventList())
	require.Len(t, fx.ledger.Records(), 1)
	assert.Equal(t, fault.CategoryClient, fx.ledger.Records()[0].Category)
}

func TestReportUserSuccess(t *testing.T) {
	fx := newFixture(t)

	err := fx.features.Reports.ReportUser(context.Background(), "user-1", "harassment")

	require.NoError(t, err)
	user, _ := fx.cache.User("user-1")
	assert.True(t, user.Reported)
}
