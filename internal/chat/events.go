package chat

import (
	"log/slog"

	"github.com/harborchat/harbor-client/internal/transport"
)

// Event types exchanged over the realtime connection. Outbound events are
// broadcast after a feature mutation is confirmed; inbound events carry
// the same types from other sessions and from the server.
const (
	EventChatMessage         = "chat_message"
	EventTyping              = "typing"
	EventPresence            = "presence"
	EventStarMessage         = "star_message"
	EventUnstarMessage       = "unstar_message"
	EventPinMessage          = "pin_message"
	EventUnpinMessage        = "unpin_message"
	EventUserBlocked         = "user_blocked"
	EventUserUnblocked       = "user_unblocked"
	EventAutoDeleteUpdated   = "auto_delete_settings_updated"
	EventMessagesAutoDeleted = "messages_auto_deleted"
	EventMessageReported     = "message_reported"
	EventUserReported        = "user_reported"
	EventReadMarkerUpdated   = "read_marker_updated"
)

// MessageRef identifies one message in an event payload.
type MessageRef struct {
	MessageID string `json:"message_id"`
}

// UserRef identifies one user in an event payload.
type UserRef struct {
	UserID string `json:"user_id"`
}

// MessagesDeletedPayload lists messages removed by the server's
// auto-delete sweep.
type MessagesDeletedPayload struct {
	MessageIDs []string `json:"message_ids"`
}

// PresencePayload carries a user's online state.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// ReadMarkerPayload carries a channel's read position.
type ReadMarkerPayload struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// EventSource registers handlers for inbound events.
type EventSource interface {
	HandleFunc(eventType string, h transport.Handler)
}

// Bind subscribes the cache to inbound events so state changed in other
// sessions is reconciled locally. Malformed payloads are logged and
// dropped.
func Bind(src EventSource, cache *Cache, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	decode := func(ev transport.Event, v any) bool {
		if err := ev.Decode(v); err != nil {
			logger.Warn("Dropping malformed event", "type", ev.Type, "err", err)
			return false
		}
		return true
	}

	src.HandleFunc(EventChatMessage, func(ev transport.Event) {
		var m Message
		if decode(ev, &m) {
			cache.UpsertMessage(m)
		}
	})

	src.HandleFunc(EventPresence, func(ev transport.Event) {
		var p PresencePayload
		if decode(ev, &p) {
			cache.SetOnline(p.UserID, p.Online)
		}
	})

	bindMessageFlag := func(eventType string, apply func(id string)) {
		src.HandleFunc(eventType, func(ev transport.Event) {
			var ref MessageRef
			if decode(ev, &ref) {
				apply(ref.MessageID)
			}
		})
	}
	bindMessageFlag(EventStarMessage, func(id string) { cache.SetStarred(id, true) })
	bindMessageFlag(EventUnstarMessage, func(id string) { cache.SetStarred(id, false) })
	bindMessageFlag(EventPinMessage, func(id string) { cache.SetPinned(id, true) })
	bindMessageFlag(EventUnpinMessage, func(id string) { cache.SetPinned(id, false) })
	bindMessageFlag(EventMessageReported, cache.MarkMessageReported)

	bindUserFlag := func(eventType string, apply func(id string)) {
		src.HandleFunc(eventType, func(ev transport.Event) {
			var ref UserRef
			if decode(ev, &ref) {
				apply(ref.UserID)
			}
		})
	}
	bindUserFlag(EventUserBlocked, func(id string) { cache.SetBlocked(id, true) })
	bindUserFlag(EventUserUnblocked, func(id string) { cache.SetBlocked(id, false) })
	bindUserFlag(EventUserReported, cache.MarkUserReported)

	src.HandleFunc(EventAutoDeleteUpdated, func(ev transport.Event) {
		var s AutoDeleteSettings
		if decode(ev, &s) {
			cache.SetAutoDelete(s)
		}
	})

	src.HandleFunc(EventMessagesAutoDeleted, func(ev transport.Event) {
		var p MessagesDeletedPayload
		if decode(ev, &p) {
			cache.RemoveMessages(p.MessageIDs)
		}
	})

	src.HandleFunc(EventReadMarkerUpdated, func(ev transport.Event) {
		var p ReadMarkerPayload
		if decode(ev, &p) {
			cache.SetLastRead(p.ChannelID, p.MessageID)
		}
	})
}
