package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSleep records requested delays and returns immediately.
func fakeSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestExecuteSucceedsFirstTry(t *testing.T) {
	r := New(Config{}, nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	result, err := r.Execute(context.Background(), func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	st := r.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "ok", st.Data)
	assert.Zero(t, st.RetryCount)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	var delays []time.Duration
	r := New(Config{MaxRetries: 5}, nil)
	r.sleep = fakeSleep(&delays)
	r.rand = func() float64 { return 0 }

	calls := 0
	result, err := r.Execute(context.Background(), func(context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
	require.Len(t, delays, 2)
	// Backoff doubles with no jitter.
	assert.Equal(t, time.Second, delays[0])
	assert.Equal(t, 2*time.Second, delays[1])
}

func TestExecuteExhaustsRetries(t *testing.T) {
	var delays []time.Duration
	r := New(Config{MaxRetries: 3}, nil)
	r.sleep = fakeSleep(&delays)

	var maxFired atomic.Int32
	r.OnMaxRetriesReached(func(err error) { maxFired.Add(1) })

	boom := errors.New("boom")
	calls := 0
	_, err := r.Execute(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
	assert.Equal(t, int32(1), maxFired.Load(), "max-retries observer fires exactly once")
	assert.Equal(t, 4, r.State().RetryCount)
}

func TestConditionStopsRetrying(t *testing.T) {
	r := New(Config{MaxRetries: 5}, func(err error, attempt int) bool { return false })
	r.sleep = func(context.Context, time.Duration) error { return nil }

	var maxFired bool
	r.OnMaxRetriesReached(func(error) { maxFired = true })

	calls := 0
	_, err := r.Execute(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, maxFired, "condition rejection is not exhaustion")
}

func TestCalculateDelayBounds(t *testing.T) {
	for _, randVal := range []float64{0, 0.5, 0.999} {
		r := New(Config{}, nil)
		r.rand = func() float64 { return randVal }

		for attempt := 0; attempt < 8; attempt++ {
			d := r.CalculateDelay(attempt)

			base := time.Second * (1 << attempt)
			if base > 10*time.Second {
				base = 10 * time.Second
			}
			assert.GreaterOrEqual(t, d, base, "attempt %d", attempt)
			assert.LessOrEqual(t, d, base+time.Second, "attempt %d", attempt)
			assert.LessOrEqual(t, d, 11*time.Second)
		}
	}
}

func TestCancelDuringBackoff(t *testing.T) {
	r := New(Config{MaxRetries: 5}, nil)

	sleeping := make(chan struct{})
	r.sleep = func(ctx context.Context, d time.Duration) error {
		close(sleeping)
		<-ctx.Done()
		return ctx.Err()
	}

	var maxFired bool
	r.OnMaxRetriesReached(func(error) { maxFired = true })

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), func(context.Context) (any, error) {
			calls++
			return nil, errors.New("transient")
		})
		done <- err
	}()

	<-sleeping
	r.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCanceled)
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after Cancel")
	}
	assert.Equal(t, 1, calls, "no retry after cancel")
	assert.False(t, maxFired)
	assert.False(t, r.State().Loading)
}

func TestCancelDuringAttempt(t *testing.T) {
	r := New(Config{MaxRetries: 5}, nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	running := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), func(ctx context.Context) (any, error) {
			close(running)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		done <- err
	}()

	<-running
	r.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCanceled, "aborted attempts are not failures")
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after Cancel")
	}
}

func TestResetAllowsReuse(t *testing.T) {
	r := New(Config{}, nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	r.Cancel()
	_, err := r.Execute(context.Background(), func(context.Context) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCanceled)

	r.Reset()
	result, err := r.Execute(context.Background(), func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
