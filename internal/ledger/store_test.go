package ledger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-client/internal/fault"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")
	store := NewFileStore(path)

	l := New(Config{}, store, slog.Default())
	rec := l.AddError(fault.HTTP(500, "internal"), fault.Context{"feature": "pins"})

	restored := New(Config{}, NewFileStore(path), slog.Default())
	records := restored.Records()
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, fault.CategoryServer, records[0].Category)
	assert.Equal(t, "pins", records[0].Context["feature"])
}

func TestLoadPrunesExpiredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")
	store := NewFileStore(path)

	now := time.Now()
	clock := now
	l := New(Config{Clock: func() time.Time { return clock }}, store, slog.Default())

	clock = now.Add(-25 * time.Hour)
	l.AddError(fault.Network("stale"), nil)
	clock = now.Add(-2 * time.Hour)
	l.AddError(fault.Network("older"), nil)
	clock = now.Add(-time.Hour)
	l.AddError(fault.Network("fresh"), nil)

	restored := New(Config{Clock: func() time.Time { return now }}, NewFileStore(path), slog.Default())
	records := restored.Records()
	require.Len(t, records, 2)
	// Relative order survives the prune: most recent first.
	assert.Equal(t, "fresh", records[0].Message)
	assert.Equal(t, "older", records[1].Message)
}

func TestLoadRebuildsCountersFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")

	l := New(Config{MaxRetries: 3}, NewFileStore(path), slog.Default())
	l.AddError(fault.Network("x"), nil)
	l.AddError(fault.Network("x"), nil)

	restored := New(Config{MaxRetries: 3}, NewFileStore(path), slog.Default())
	rec := restored.AddError(fault.Network("x"), nil)
	assert.Equal(t, 2, rec.RetryCount)
	assert.False(t, rec.CanRetry)
}

func TestCorruptSnapshotIsSwallowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	l := New(Config{}, NewFileStore(path), slog.Default())
	assert.Empty(t, l.Records(), "unreadable snapshot loads as an empty ledger")
}

func TestMissingSnapshotIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClearRemovesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")
	l := New(Config{}, NewFileStore(path), slog.Default())
	l.AddError(fault.Network("x"), nil)

	_, err := os.Stat(path)
	require.NoError(t, err)

	l.Clear()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
