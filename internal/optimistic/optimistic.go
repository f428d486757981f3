// Package optimistic implements apply-locally-first mutations with rollback.
// Feature stores (stars, pins, blocks, auto-delete) share this one primitive
// instead of re-deriving the snapshot/apply/revert dance per feature.
package optimistic

import (
	"context"
	"sync/atomic"
)

// Guard serializes mutations of one kind from one caller. A mutation
// started while another is in flight is a silent no-op, not an error.
type Guard struct {
	busy atomic.Bool
}

// Busy reports whether a mutation is currently in flight.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

func (g *Guard) acquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *Guard) release() {
	g.busy.Store(false)
}

// Mutation describes one optimistic state change. Apply must cover every
// place the new state is reflected (the feature's own set and any shared
// cache the UI reads), and Revert must restore all of them from the
// snapshot.
type Mutation[S any] struct {
	// Snapshot captures the state Revert restores.
	Snapshot func() S
	// Apply writes the new state synchronously, before the remote call.
	Apply func()
	// Revert restores the snapshot after a remote failure.
	Revert func(prev S)
	// Remote issues the request that confirms the change.
	Remote func(ctx context.Context) error
	// OnSuccess runs after the remote call confirms, typically to
	// broadcast the change and surface a success notification.
	OnSuccess func()
	// OnFailure runs after rollback with the remote error. Failures do
	// not escape Mutate any other way.
	OnFailure func(err error)
}

// Mutate runs the optimistic protocol and reports whether the remote call
// confirmed the change. On failure the snapshot is restored before
// OnFailure runs; on a busy guard nothing happens at all.
func Mutate[S any](ctx context.Context, g *Guard, m Mutation[S]) bool {
	if g != nil {
		if !g.acquire() {
			return false
		}
		defer g.release()
	}

	prev := m.Snapshot()
	m.Apply()

	if err := m.Remote(ctx); err != nil {
		m.Revert(prev)
		if m.OnFailure != nil {
			m.OnFailure(err)
		}
		return false
	}

	if m.OnSuccess != nil {
		m.OnSuccess()
	}
	return true
}
