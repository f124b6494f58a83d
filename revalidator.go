package httpcache

import (
	"context"
	"sync"
	"time"
)

// ScheduledExecutor abstracts "run fn after d" so tests can substitute a
// virtual clock instead of waiting on wall-clock timers.
type ScheduledExecutor interface {
	Schedule(d time.Duration, fn func())
}

// realScheduledExecutor schedules against wall-clock time via time.AfterFunc.
type realScheduledExecutor struct{}

func (realScheduledExecutor) Schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// NewRealScheduledExecutor returns the production ScheduledExecutor backed
// by time.AfterFunc.
func NewRealScheduledExecutor() ScheduledExecutor { return realScheduledExecutor{} }

// CacheRevalidatorBase tracks, per storage key, whether a revalidation is
// already in flight so concurrent triggers collapse into a single attempt,
// and how many consecutive attempts have failed so SchedulingStrategy can
// back off.
type CacheRevalidatorBase struct {
	Executor ScheduledExecutor
	Strategy SchedulingStrategy

	mu        sync.Mutex
	scheduled map[string]bool
	failures  map[string]int
}

func (b *CacheRevalidatorBase) init() {
	if b.scheduled == nil {
		b.scheduled = make(map[string]bool)
		b.failures = make(map[string]int)
	}
	if b.Executor == nil {
		b.Executor = NewRealScheduledExecutor()
	}
	if b.Strategy == nil {
		b.Strategy = DefaultExponentialBackOffSchedulingStrategy()
	}
}

// schedule queues attempt for key if none is already pending, returning
// false if one was already scheduled.
func (b *CacheRevalidatorBase) schedule(key string, attempt func()) bool {
	b.mu.Lock()
	b.init()
	if b.scheduled[key] {
		b.mu.Unlock()
		return false
	}
	b.scheduled[key] = true
	failures := b.failures[key]
	b.mu.Unlock()

	delay := b.Strategy.NextDelay(failures)
	b.Executor.Schedule(delay, attempt)
	return true
}

func (b *CacheRevalidatorBase) recordResult(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	delete(b.scheduled, key)
	if err != nil {
		b.failures[key]++
		return
	}
	delete(b.failures, key)
}

// AsynchronousValidator drives background revalidation of stale entries
// being served under stale-while-revalidate, per RFC 5861.
type AsynchronousValidator struct {
	CacheRevalidatorBase
	// Revalidate performs one conditional-request attempt for key. A
	// non-nil error counts as a failure for backoff purposes.
	Revalidate func(ctx context.Context, key string) error
}

// NewAsynchronousValidator constructs a validator using strategy/executor,
// falling back to the production defaults when either is nil.
func NewAsynchronousValidator(strategy SchedulingStrategy, executor ScheduledExecutor, revalidate func(context.Context, string) error) *AsynchronousValidator {
	return &AsynchronousValidator{
		CacheRevalidatorBase: CacheRevalidatorBase{Executor: executor, Strategy: strategy},
		Revalidate:           revalidate,
	}
}

// TriggerRevalidation schedules a background revalidation of key unless one
// is already pending. It returns immediately; the caller keeps serving the
// stale entry in the meantime.
func (v *AsynchronousValidator) TriggerRevalidation(key string) {
	v.schedule(key, func() {
		err := v.Revalidate(context.Background(), key)
		v.recordResult(key, err)
		if err != nil && GetLogger() != nil {
			GetLogger().Warn("background revalidation failed", "key", key, "error", err)
		}
	})
}
