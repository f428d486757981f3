package chat

import (
	"context"
	"log/slog"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/optimistic"
)

// BlockAPI is the slice of the REST client the block feature needs.
type BlockAPI interface {
	BlockUser(ctx context.Context, userID string) error
	UnblockUser(ctx context.Context, userID string) error
}

// Blocks toggles user blocks optimistically.
type Blocks struct {
	feature
	api    BlockAPI
	guards *guardSet
}

// NewBlocks builds the block feature store.
func NewBlocks(cache *Cache, api BlockAPI, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *Blocks {
	return &Blocks{
		feature: newFeature(cache, emitter, led, notifier, logger),
		api:     api,
		guards:  newGuardSet(),
	}
}

// Toggle flips the blocked flag on a user and reports whether the server
// confirmed the change.
func (b *Blocks) Toggle(ctx context.Context, userID string) bool {
	user, ok := b.cache.User(userID)
	if !ok {
		return false
	}
	target := !user.Blocked

	return optimistic.Mutate(ctx, b.guards.For(userID), optimistic.Mutation[bool]{
		Snapshot: func() bool { return user.Blocked },
		Apply:    func() { b.cache.SetBlocked(userID, target) },
		Revert:   func(prev bool) { b.cache.SetBlocked(userID, prev) },
		Remote: func(ctx context.Context) error {
			if target {
				return b.api.BlockUser(ctx, userID)
			}
			return b.api.UnblockUser(ctx, userID)
		},
		OnSuccess: func() {
			event, text := EventUserBlocked, "User blocked."
			if !target {
				event, text = EventUserUnblocked, "User unblocked."
			}
			b.confirm(event, UserRef{UserID: userID}, text)
		},
		OnFailure: func(err error) {
			b.fail(err, fault.Context{
				"feature":   "blocks",
				"operation": "toggle_block",
				"userId":    userID,
			})
		},
	})
}
