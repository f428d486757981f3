package ledger

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-client/internal/fault"
)

func newTestLedger(t *testing.T, cfg Config, store Store) *Ledger {
	t.Helper()
	return New(cfg, store, slog.Default())
}

func TestAddErrorClassifiesNetworkFault(t *testing.T) {
	l := newTestLedger(t, Config{}, nil)

	rec := l.AddError(fault.Network("x"), nil)

	assert.Equal(t, fault.CategoryNetwork, rec.Category)
	assert.Equal(t, fault.SeverityWarning, rec.Severity)
	assert.Equal(t, 0, rec.RetryCount)
	assert.True(t, rec.CanRetry)
}

func TestRepeatedFaultExhaustsRetries(t *testing.T) {
	l := newTestLedger(t, Config{MaxRetries: 3}, nil)

	first := l.AddError(fault.Network("x"), nil)
	second := l.AddError(fault.Network("x"), nil)
	third := l.AddError(fault.Network("x"), nil)

	assert.Equal(t, 0, first.RetryCount)
	assert.True(t, first.CanRetry)
	assert.Equal(t, 1, second.RetryCount)
	assert.True(t, second.CanRetry)
	assert.Equal(t, 2, third.RetryCount)
	assert.False(t, third.CanRetry, "third occurrence with MaxRetries=3 is exhausted")

	// A different signature starts fresh.
	other := l.AddError(fault.Network("y"), nil)
	assert.Equal(t, 0, other.RetryCount)
}

func TestLedgerIsBounded(t *testing.T) {
	l := newTestLedger(t, Config{MaxRecords: 50}, nil)

	for i := 0; i < 120; i++ {
		l.AddError(fault.HTTP(500, "internal"), nil)
	}

	records := l.Records()
	require.Len(t, records, 50)
	// Most recent first: the newest record carries the highest count.
	assert.Equal(t, 119, records[0].RetryCount)
	assert.Equal(t, 70, records[49].RetryCount)
}

func TestDismiss(t *testing.T) {
	l := newTestLedger(t, Config{}, nil)
	rec := l.AddError(fault.Network("x"), nil)

	l.Dismiss(rec.ID)
	_, ok := l.Get(rec.ID)
	assert.False(t, ok)

	// Unknown ids are ignored.
	l.Dismiss("nope")
}

func TestClearResetsCounters(t *testing.T) {
	l := newTestLedger(t, Config{MaxRetries: 3}, nil)
	l.AddError(fault.Network("x"), nil)
	l.AddError(fault.Network("x"), nil)

	l.Clear()
	assert.Empty(t, l.Records())

	rec := l.AddError(fault.Network("x"), nil)
	assert.Equal(t, 0, rec.RetryCount, "counters reset on clear")
}

func TestFilters(t *testing.T) {
	l := newTestLedger(t, Config{}, nil)
	l.AddError(fault.Network("x"), nil)
	l.AddError(fault.HTTP(500, "internal"), nil)
	l.AddError(fault.HTTP(401, "unauthorized"), nil)

	assert.Len(t, l.ByCategory(fault.CategoryNetwork), 1)
	assert.Len(t, l.ByCategory(fault.CategoryServer), 1)
	assert.Len(t, l.BySeverity(fault.SeverityCritical), 1)
	assert.True(t, l.HasRecoverable())
	assert.Equal(t, 3, l.RecoverableCount())
}

func TestOnErrorObserver(t *testing.T) {
	l := newTestLedger(t, Config{}, nil)

	var seen []Record
	l.OnError(func(r Record) { seen = append(seen, r) })

	l.AddError(fault.Network("x"), fault.Context{"feature": "stars"})
	require.Len(t, seen, 1)
	assert.Equal(t, "stars", seen[0].Context["feature"])
}

func TestContextIsRecorded(t *testing.T) {
	l := newTestLedger(t, Config{}, nil)

	rec := l.AddError(fault.App("Error", "boom"), fault.Context{
		"component": "chat",
		"operation": "toggleStar",
	})
	assert.Equal(t, fault.Category("component_chat"), rec.Category)
	assert.Equal(t, "toggleStar", rec.Context["operation"])
}

func TestClockInjection(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(t, Config{Clock: func() time.Time { return fixed }}, nil)

	rec := l.AddError(fault.Network("x"), nil)
	assert.Equal(t, fixed, rec.CreatedAt)
}
