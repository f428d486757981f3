// Package recovery binds the error ledger to retried operations: it turns
// a ledger record into one explicitly requested retry and reconciles the
// record with the outcome.
package recovery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
)

// Operation is the work being recovered.
type Operation func(ctx context.Context) (any, error)

// Config tunes the coordinator.
type Config struct {
	// RetryDelay is the flat wait before the retry runs. Unlike the
	// backoff engine, this layer performs one retry per explicit request
	// rather than an unattended loop, so the delay does not grow.
	RetryDelay time.Duration
}

const defaultRetryDelay = time.Second

// Coordinator retries failed operations recorded in the ledger.
type Coordinator struct {
	ledger   *ledger.Ledger
	cfg      Config
	notifier notify.Notifier

	sleep      func(ctx context.Context, d time.Duration) error
	recovering atomic.Bool

	onRecovery func(rec ledger.Record, result any)
	onMax      func(rec ledger.Record)
}

// New builds a coordinator over the given ledger.
func New(l *ledger.Ledger, cfg Config, notifier notify.Notifier) *Coordinator {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Coordinator{
		ledger:   l,
		cfg:      cfg,
		notifier: notifier,
		sleep:    sleepCtx,
	}
}

// OnRecovery registers an observer invoked after a successful retry.
func (c *Coordinator) OnRecovery(fn func(rec ledger.Record, result any)) {
	c.onRecovery = fn
}

// OnMaxRetriesReached registers an observer invoked when a failed retry
// exhausts the fault signature's budget.
func (c *Coordinator) OnMaxRetriesReached(fn func(rec ledger.Record)) {
	c.onMax = fn
}

// Retry re-runs the operation behind the ledger record with the given id.
// A missing or exhausted record resolves to (nil, nil) without invoking
// the operation. On success the record is removed; on failure a new record
// is added under the same fault signature and the error is re-raised so
// the invoking surface can decide what to do.
func (c *Coordinator) Retry(ctx context.Context, op Operation, errorID string, rctx fault.Context) (any, error) {
	rec, ok := c.ledger.Get(errorID)
	if !ok || !rec.CanRetry {
		return nil, nil
	}

	c.recovering.Store(true)
	defer c.recovering.Store(false)

	if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
		return nil, err
	}

	result, err := op(ctx)
	if err == nil {
		c.ledger.Dismiss(errorID)
		c.notifier.Notify(notify.Notification{
			Severity: fault.SeverityInfo,
			Text:     "Operation recovered after retry.",
		})
		if c.onRecovery != nil {
			c.onRecovery(rec, result)
		}
		return result, nil
	}

	merged := make(fault.Context, len(rctx)+2)
	for k, v := range rctx {
		merged[k] = v
	}
	merged["isRetry"] = "true"
	merged["originalErrorId"] = errorID
	newRec := c.ledger.AddError(fault.From(err), merged)
	if !newRec.CanRetry && c.onMax != nil {
		c.onMax(newRec)
	}
	return nil, err
}

// IsRecovering reports whether a retry is currently in flight.
func (c *Coordinator) IsRecovering() bool {
	return c.recovering.Load()
}

// ByCategory lists ledger records in the given category.
func (c *Coordinator) ByCategory(cat fault.Category) []ledger.Record {
	return c.ledger.ByCategory(cat)
}

// BySeverity lists ledger records with the given severity.
func (c *Coordinator) BySeverity(sev fault.Severity) []ledger.Record {
	return c.ledger.BySeverity(sev)
}

// RecoverableCount counts records that can still be retried.
func (c *Coordinator) RecoverableCount() int {
	return c.ledger.RecoverableCount()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
