// Package retry executes a single asynchronous operation with exponential
// backoff and jitter. It knows nothing about the error ledger; callers
// decide what to do with the final error.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrCanceled is returned by Execute when Cancel aborts the in-flight
// attempt or a scheduled retry. A canceled attempt is not a failure: no
// failure callbacks fire and the attempt counter is not advanced past it.
var ErrCanceled = errors.New("retry: canceled")

// Operation is the unit of work being retried.
type Operation func(ctx context.Context) (any, error)

// Condition decides whether a failed attempt should be retried.
type Condition func(err error, attempt int) bool

// Config tunes the backoff. Zero values fall back to the defaults.
type Config struct {
	MaxRetries    int           // retries after the first attempt, default 3
	InitialDelay  time.Duration // default 1s
	BackoffFactor float64       // default 2
	MaxDelay      time.Duration // backoff cap before jitter, default 10s
	MaxJitter     time.Duration // uniform jitter added on top, default 1s
}

const (
	defaultMaxRetries    = 3
	defaultInitialDelay  = time.Second
	defaultBackoffFactor = 2.0
	defaultMaxDelay      = 10 * time.Second
	defaultMaxJitter     = time.Second
)

// State is a snapshot of the retrier's progress, owned by the retrier and
// copied out to callers.
type State struct {
	Loading     bool
	Err         error
	RetryCount  int
	LastAttempt time.Time
	Data        any
}

// Retrier drives one operation through backoff retries. Sleep, random
// jitter and the clock are injectable so tests control time.
type Retrier struct {
	cfg       Config
	condition Condition
	onMax     func(err error)

	rand  func() float64
	sleep func(ctx context.Context, d time.Duration) error
	clock func() time.Time

	mu        sync.Mutex
	state     State
	canceled  bool
	abortCurr context.CancelFunc
	maxFired  bool
}

// New builds a retrier. condition may be nil, in which case every failure
// is retried until the attempts run out.
func New(cfg Config, condition Condition) *Retrier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = defaultBackoffFactor
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = defaultMaxJitter
	}
	return &Retrier{
		cfg:       cfg,
		condition: condition,
		rand:      rand.Float64,
		sleep:     sleepCtx,
		clock:     time.Now,
	}
}

// OnMaxRetriesReached registers an observer fired exactly once when the
// attempts are exhausted. Must be set before Execute.
func (r *Retrier) OnMaxRetriesReached(fn func(err error)) {
	r.onMax = fn
}

// Execute runs the operation, retrying failures with backoff until it
// succeeds, the condition rejects the error, the attempts run out, Cancel
// is called, or ctx expires.
func (r *Retrier) Execute(ctx context.Context, op Operation) (any, error) {
	for attempt := 0; ; attempt++ {
		attemptCtx, err := r.beginAttempt(ctx)
		if err != nil {
			return nil, err
		}

		result, opErr := op(attemptCtx)
		r.endAttempt()

		if r.isCanceled() {
			return nil, ErrCanceled
		}
		if opErr == nil {
			r.finish(result, nil)
			return result, nil
		}

		r.recordFailure(opErr, attempt+1)

		if attempt >= r.cfg.MaxRetries {
			r.finish(nil, opErr)
			r.fireMaxRetries(opErr)
			return nil, opErr
		}
		if r.condition != nil && !r.condition(opErr, attempt) {
			r.finish(nil, opErr)
			return nil, opErr
		}

		if err := r.wait(ctx, r.CalculateDelay(attempt)); err != nil {
			return nil, err
		}
	}
}

// Cancel aborts the in-flight attempt and suppresses any scheduled retry.
// No success or failure callbacks fire for the aborted work.
func (r *Retrier) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = true
	r.state.Loading = false
	if r.abortCurr != nil {
		r.abortCurr()
	}
}

// Reset clears cancellation state and attempt counters back to zero.
func (r *Retrier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = false
	r.maxFired = false
	r.state = State{}
	r.abortCurr = nil
}

// State returns a snapshot of the retrier's progress.
func (r *Retrier) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CalculateDelay computes the backoff delay for the given attempt:
// min(initial * factor^attempt, max) plus uniform jitter.
func (r *Retrier) CalculateDelay(attempt int) time.Duration {
	backoff := float64(r.cfg.InitialDelay) * math.Pow(r.cfg.BackoffFactor, float64(attempt))
	if backoff > float64(r.cfg.MaxDelay) {
		backoff = float64(r.cfg.MaxDelay)
	}
	jitter := time.Duration(r.rand() * float64(r.cfg.MaxJitter))
	return time.Duration(backoff) + jitter
}

// beginAttempt issues a fresh abort handle for the attempt.
func (r *Retrier) beginAttempt(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canceled {
		return nil, ErrCanceled
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	r.abortCurr = cancel
	r.state.Loading = true
	r.state.LastAttempt = r.clock()
	return attemptCtx, nil
}

func (r *Retrier) endAttempt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abortCurr != nil {
		r.abortCurr()
		r.abortCurr = nil
	}
}

func (r *Retrier) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

func (r *Retrier) recordFailure(err error, retryCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Err = err
	r.state.RetryCount = retryCount
}

func (r *Retrier) finish(data any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Loading = false
	r.state.Data = data
	r.state.Err = err
}

func (r *Retrier) fireMaxRetries(err error) {
	r.mu.Lock()
	fire := !r.maxFired && r.onMax != nil
	r.maxFired = true
	r.mu.Unlock()
	if fire {
		r.onMax(err)
	}
}

// wait sleeps for the backoff delay, abortable by Cancel or ctx expiry.
func (r *Retrier) wait(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	if r.canceled {
		r.mu.Unlock()
		return ErrCanceled
	}
	waitCtx, cancel := context.WithCancel(ctx)
	r.abortCurr = cancel
	r.mu.Unlock()

	err := r.sleep(waitCtx, d)
	cancel()

	if r.isCanceled() {
		return ErrCanceled
	}
	return err
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
