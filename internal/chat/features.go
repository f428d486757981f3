package chat

import (
	"log/slog"

	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
)

// API is the full REST surface the feature stores consume.
type API interface {
	StarAPI
	PinAPI
	BlockAPI
	AutoDeleteAPI
	ReadAPI
	ReportAPI
}

// Features bundles the feature stores over one cache, one API client, and
// one emitter so the UI has a single handle on chat state mutation.
type Features struct {
	Cache      *Cache
	Stars      *Stars
	Pins       *Pins
	Blocks     *Blocks
	AutoDelete *AutoDelete
	ReadMarks  *ReadMarks
	Reports    *Reports
}

// NewFeatures wires up all feature stores.
func NewFeatures(cache *Cache, api API, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *Features {
	return &Features{
		Cache:      cache,
		Stars:      NewStars(cache, api, emitter, led, notifier, logger),
		Pins:       NewPins(cache, api, emitter, led, notifier, logger),
		Blocks:     NewBlocks(cache, api, emitter, led, notifier, logger),
		AutoDelete: NewAutoDelete(cache, api, emitter, led, notifier, logger),
		ReadMarks:  NewReadMarks(cache, api, emitter, led, notifier, logger),
		Reports:    NewReports(cache, api, emitter, led, notifier, logger),
	}
}
