package ledger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harborchat/harbor-client/internal/fault"
)

// Config tunes the ledger. Zero values fall back to the defaults.
type Config struct {
	// MaxRecords bounds the record list; oldest records are evicted first.
	MaxRecords int
	// MaxRetries bounds occurrences of one fault signature. Once the
	// running count for a signature reaches MaxRetries, new records for
	// it have CanRetry false and can only be removed by dismissal.
	MaxRetries int
	// TTL drops persisted records older than this at load time.
	TTL time.Duration
	// Clock supplies creation timestamps. Defaults to time.Now.
	Clock func() time.Time
}

const (
	defaultMaxRecords = 50
	defaultMaxRetries = 3
	defaultTTL        = 24 * time.Hour
)

// Ledger owns the record list and the per-signature retry counters. All
// mutation goes through its methods; callers only ever see copies.
type Ledger struct {
	mu       sync.Mutex
	cfg      Config
	store    Store
	logger   *slog.Logger
	records  []Record
	counters map[string]int
	onError  func(Record)
}

// New builds a ledger and restores the durable snapshot if a store is
// supplied. A snapshot that cannot be read or parsed is logged and treated
// as empty, never surfaced as a failure.
func New(cfg Config, store Store, logger *slog.Logger) *Ledger {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		counters: make(map[string]int),
	}
	l.restore()
	return l
}

// OnError registers an observer invoked for every record added. Must be
// set before the ledger is shared.
func (l *Ledger) OnError(fn func(Record)) {
	l.onError = fn
}

// restore loads the persisted snapshot, discards expired records, and
// rebuilds the signature counters so exhausted faults stay exhausted
// across restarts.
func (l *Ledger) restore() {
	if l.store == nil {
		return
	}

	records, err := l.store.Load()
	if err != nil {
		l.logger.Warn("Failed to restore error ledger, starting empty", "err", err)
		return
	}

	now := l.cfg.Clock()
	for _, rec := range records {
		if now.Sub(rec.CreatedAt) > l.cfg.TTL {
			continue
		}
		l.records = append(l.records, rec)
		if next := rec.RetryCount + 1; next > l.counters[rec.Signature()] {
			l.counters[rec.Signature()] = next
		}
	}
}

// AddError classifies a fault, records it, and returns the new record.
// Repeated faults with the same signature get increasing retry counts; the
// signature counter is read and advanced under one lock so a retry in
// flight and a fresh fault cannot race it.
func (l *Ledger) AddError(f *fault.Fault, ctx fault.Context) Record {
	l.mu.Lock()

	now := l.cfg.Clock()
	sig := f.Signature()
	count := l.counters[sig]
	class := fault.Classify(f, ctx)

	rec := Record{
		ID:         recordID(sig, now),
		Name:       f.Name,
		Message:    f.Message,
		Stack:      f.Stack,
		Context:    ctx,
		CreatedAt:  now,
		RetryCount: count,
		CanRetry:   count+1 < l.cfg.MaxRetries,
		Severity:   class.Severity,
		Category:   class.Category,
	}

	// Most-recent-first, bounded.
	l.records = append([]Record{rec}, l.records...)
	if len(l.records) > l.cfg.MaxRecords {
		l.records = l.records[:l.cfg.MaxRecords]
	}
	l.counters[sig] = count + 1

	l.persistLocked()
	observer := l.onError
	l.mu.Unlock()

	if observer != nil {
		observer(rec)
	}
	return rec
}

// Dismiss removes one record by id. Dismissing an unknown id is a no-op.
func (l *Ledger) Dismiss(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range l.records {
		if rec.ID == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			l.persistLocked()
			return
		}
	}
}

// Clear empties the ledger, resets the signature counters, and removes
// the durable snapshot.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = nil
	l.counters = make(map[string]int)
	if l.store != nil {
		if err := l.store.Clear(); err != nil {
			l.logger.Warn("Failed to remove error ledger snapshot", "err", err)
		}
	}
}

// Get returns the record with the given id.
func (l *Ledger) Get(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range l.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Records returns a copy of all records, most recent first.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// ByCategory returns the records in the given category.
func (l *Ledger) ByCategory(cat fault.Category) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, rec := range l.records {
		if rec.Category == cat {
			out = append(out, rec)
		}
	}
	return out
}

// BySeverity returns the records with the given severity.
func (l *Ledger) BySeverity(sev fault.Severity) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, rec := range l.records {
		if rec.Severity == sev {
			out = append(out, rec)
		}
	}
	return out
}

// HasRecoverable reports whether any record can still be retried.
func (l *Ledger) HasRecoverable() bool {
	return l.RecoverableCount() > 0
}

// RecoverableCount counts records that can still be retried.
func (l *Ledger) RecoverableCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, rec := range l.records {
		if rec.CanRetry {
			n++
		}
	}
	return n
}

// MaxRetries exposes the configured retry bound for callers that need to
// detect exhaustion.
func (l *Ledger) MaxRetries() int {
	return l.cfg.MaxRetries
}

// persistLocked writes the snapshot. Persistence failures are logged and
// swallowed; the in-memory ledger stays authoritative.
func (l *Ledger) persistLocked() {
	if l.store == nil {
		return
	}
	if err := l.store.Save(append([]Record(nil), l.records...)); err != nil {
		l.logger.Warn("Failed to persist error ledger", "err", err)
	}
}
