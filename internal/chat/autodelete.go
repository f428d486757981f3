package chat

import (
	"context"
	"log/slog"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/optimistic"
)

// AutoDeleteAPI is the slice of the REST client the auto-delete feature
// needs.
type AutoDeleteAPI interface {
	UpdateAutoDelete(ctx context.Context, settings AutoDeleteSettings) error
}

// AutoDelete updates the message expiry settings optimistically. The
// server owns the actual sweep; deletions arrive as events.
type AutoDelete struct {
	feature
	api   AutoDeleteAPI
	guard optimistic.Guard
}

// NewAutoDelete builds the auto-delete feature store.
func NewAutoDelete(cache *Cache, api AutoDeleteAPI, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *AutoDelete {
	return &AutoDelete{
		feature: newFeature(cache, emitter, led, notifier, logger),
		api:     api,
	}
}

// Update replaces the auto-delete settings and reports whether the server
// confirmed the change.
func (a *AutoDelete) Update(ctx context.Context, settings AutoDeleteSettings) bool {
	return optimistic.Mutate(ctx, &a.guard, optimistic.Mutation[AutoDeleteSettings]{
		Snapshot: func() AutoDeleteSettings { return a.cache.AutoDelete() },
		Apply:    func() { a.cache.SetAutoDelete(settings) },
		Revert:   func(prev AutoDeleteSettings) { a.cache.SetAutoDelete(prev) },
		Remote: func(ctx context.Context) error {
			return a.api.UpdateAutoDelete(ctx, settings)
		},
		OnSuccess: func() {
			a.confirm(EventAutoDeleteUpdated, settings, "Auto-delete settings updated.")
		},
		OnFailure: func(err error) {
			a.fail(err, fault.Context{
				"feature":   "auto_delete",
				"operation": "update_settings",
			})
		},
	})
}

// Settings returns the current auto-delete settings.
func (a *AutoDelete) Settings() AutoDeleteSettings {
	return a.cache.AutoDelete()
}
