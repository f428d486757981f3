package chat

import (
	"context"
	"log/slog"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/optimistic"
)

// StarAPI is the slice of the REST client the star feature needs.
type StarAPI interface {
	StarMessage(ctx context.Context, messageID string) error
	UnstarMessage(ctx context.Context, messageID string) error
}

// Stars toggles message stars optimistically: the cache is updated before
// the request and rolled back if it fails.
type Stars struct {
	feature
	api    StarAPI
	guards *guardSet
}

// NewStars builds the star feature store.
func NewStars(cache *Cache, api StarAPI, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *Stars {
	return &Stars{
		feature: newFeature(cache, emitter, led, notifier, logger),
		api:     api,
		guards:  newGuardSet(),
	}
}

// Toggle flips the star on a message and reports whether the server
// confirmed the change. Unknown messages and toggles already in flight
// for the same message are no-ops.
func (s *Stars) Toggle(ctx context.Context, messageID string) bool {
	msg, ok := s.cache.Message(messageID)
	if !ok {
		return false
	}
	target := !msg.Starred

	return optimistic.Mutate(ctx, s.guards.For(messageID), optimistic.Mutation[bool]{
		Snapshot: func() bool { return msg.Starred },
		Apply:    func() { s.cache.SetStarred(messageID, target) },
		Revert:   func(prev bool) { s.cache.SetStarred(messageID, prev) },
		Remote: func(ctx context.Context) error {
			if target {
				return s.api.StarMessage(ctx, messageID)
			}
			return s.api.UnstarMessage(ctx, messageID)
		},
		OnSuccess: func() {
			event, text := EventStarMessage, "Message starred."
			if !target {
				event, text = EventUnstarMessage, "Star removed."
			}
			s.confirm(event, MessageRef{MessageID: messageID}, text)
		},
		OnFailure: func(err error) {
			s.fail(err, fault.Context{
				"feature":   "stars",
				"operation": "toggle_star",
				"messageId": messageID,
			})
		},
	})
}

// Busy reports whether a toggle for the message is in flight.
func (s *Stars) Busy(messageID string) bool {
	return s.guards.For(messageID).Busy()
}
