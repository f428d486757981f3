package chat

import (
	"context"
	"log/slog"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/optimistic"
)

// PinAPI is the slice of the REST client the pin feature needs.
type PinAPI interface {
	PinMessage(ctx context.Context, messageID string) error
	UnpinMessage(ctx context.Context, messageID string) error
}

// Pins toggles channel pins optimistically.
type Pins struct {
	feature
	api    PinAPI
	guards *guardSet
}

// NewPins builds the pin feature store.
func NewPins(cache *Cache, api PinAPI, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *Pins {
	return &Pins{
		feature: newFeature(cache, emitter, led, notifier, logger),
		api:     api,
		guards:  newGuardSet(),
	}
}

// Toggle flips the pin on a message and reports whether the server
// confirmed the change.
func (p *Pins) Toggle(ctx context.Context, messageID string) bool {
	msg, ok := p.cache.Message(messageID)
	if !ok {
		return false
	}
	target := !msg.Pinned

	return optimistic.Mutate(ctx, p.guards.For(messageID), optimistic.Mutation[bool]{
		Snapshot: func() bool { return msg.Pinned },
		Apply:    func() { p.cache.SetPinned(messageID, target) },
		Revert:   func(prev bool) { p.cache.SetPinned(messageID, prev) },
		Remote: func(ctx context.Context) error {
			if target {
				return p.api.PinMessage(ctx, messageID)
			}
			return p.api.UnpinMessage(ctx, messageID)
		},
		OnSuccess: func() {
			event, text := EventPinMessage, "Message pinned."
			if !target {
				event, text = EventUnpinMessage, "Pin removed."
			}
			p.confirm(event, MessageRef{MessageID: messageID}, text)
		},
		OnFailure: func(err error) {
			p.fail(err, fault.Context{
				"feature":   "pins",
				"operation": "toggle_pin",
				"messageId": messageID,
			})
		},
	})
}
