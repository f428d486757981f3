package chat

import (
	"log/slog"
	"sync"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
	"github.com/harborchat/harbor-client/internal/optimistic"
)

// Emitter broadcasts confirmed mutations to other sessions. A nil emitter
// disables broadcasting without disabling the feature.
type Emitter interface {
	Emit(eventType string, payload any) error
}

// feature carries the collaborators every feature store shares.
type feature struct {
	cache    *Cache
	emitter  Emitter
	ledger   *ledger.Ledger
	notifier notify.Notifier
	logger   *slog.Logger
}

func newFeature(cache *Cache, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) feature {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return feature{cache: cache, emitter: emitter, ledger: led, notifier: notifier, logger: logger}
}

// fail records a failed operation and surfaces one notification for it.
func (f *feature) fail(err error, fctx fault.Context) ledger.Record {
	flt := fault.From(err)
	rec := f.ledger.AddError(flt, fctx)
	f.notifier.Notify(notify.Notification{
		Severity: rec.Severity,
		Text:     notify.ForCategory(rec.Category, flt),
	})
	f.logger.Warn("Feature operation failed",
		"feature", fctx["feature"],
		"operation", fctx["operation"],
		"err", err)
	return rec
}

// confirm broadcasts a confirmed mutation and surfaces a success
// notification. Broadcast failures are logged, never surfaced; the local
// state is already correct.
func (f *feature) confirm(eventType string, payload any, text string) {
	if f.emitter != nil {
		if err := f.emitter.Emit(eventType, payload); err != nil {
			f.logger.Warn("Failed to broadcast event", "type", eventType, "err", err)
		}
	}
	if text != "" {
		f.notifier.Notify(notify.Notification{Severity: fault.SeverityInfo, Text: text})
	}
}

// guardSet hands out one optimistic guard per entity id so concurrent
// mutations of different entities never block each other.
type guardSet struct {
	mu     sync.Mutex
	guards map[string]*optimistic.Guard
}

func newGuardSet() *guardSet {
	return &guardSet{guards: make(map[string]*optimistic.Guard)}
}

func (g *guardSet) For(id string) *optimistic.Guard {
	g.mu.Lock()
	defer g.mu.Unlock()
	guard, ok := g.guards[id]
	if !ok {
		guard = &optimistic.Guard{}
		g.guards[id] = guard
	}
	return guard
}
