package chat

import (
	"context"
	"log/slog"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/optimistic"
)

// ReadAPI is the slice of the REST client the read-marker feature needs.
type ReadAPI interface {
	MarkRead(ctx context.Context, channelID, messageID string) error
}

// ReadMarks advances per-channel read markers optimistically. Read
// markers sync across sessions, so a failed update rolls back the local
// marker rather than leaving it ahead of the server.
type ReadMarks struct {
	feature
	api    ReadAPI
	guards *guardSet
}

// NewReadMarks builds the read-marker feature store.
func NewReadMarks(cache *Cache, api ReadAPI, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *ReadMarks {
	return &ReadMarks{
		feature: newFeature(cache, emitter, led, notifier, logger),
		api:     api,
		guards:  newGuardSet(),
	}
}

// Mark advances the read marker for a channel and reports whether the
// server confirmed it. Marking is quiet: no success notification, only
// the sync event.
func (r *ReadMarks) Mark(ctx context.Context, channelID, messageID string) bool {
	prev, had := r.cache.LastRead(channelID)

	type snapshot struct {
		id  string
		had bool
	}

	return optimistic.Mutate(ctx, r.guards.For(channelID), optimistic.Mutation[snapshot]{
		Snapshot: func() snapshot { return snapshot{id: prev, had: had} },
		Apply:    func() { r.cache.SetLastRead(channelID, messageID) },
		Revert: func(s snapshot) {
			if s.had {
				r.cache.SetLastRead(channelID, s.id)
			} else {
				r.cache.SetLastRead(channelID, "")
			}
		},
		Remote: func(ctx context.Context) error {
			return r.api.MarkRead(ctx, channelID, messageID)
		},
		OnSuccess: func() {
			r.confirm(EventReadMarkerUpdated, ReadMarkerPayload{
				ChannelID: channelID,
				MessageID: messageID,
			}, "")
		},
		OnFailure: func(err error) {
			r.fail(err, fault.Context{
				"feature":   "read_marks",
				"operation": "mark_read",
				"channelId": channelID,
			})
		},
	})
}
