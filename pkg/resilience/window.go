// Package resilience provides a sliding-window rate limiter and a circuit
// breaker used around external API calls.
package resilience

import (
	"context"
	"sync"
	"time"
)

// Window limits calls to at most limit per interval, measured over a sliding
// window of call timestamps.
type Window struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	calls    []time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewWindow creates a sliding-window limiter allowing limit calls per interval.
func NewWindow(limit int, interval time.Duration) *Window {
	if limit <= 0 {
		limit = 1
	}
	return &Window{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait blocks until a call slot is free or ctx is cancelled. On success the
// call is recorded in the window.
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		w.prune(now)
		if len(w.calls) < w.limit {
			w.calls = append(w.calls, now)
			w.mu.Unlock()
			return nil
		}
		// Oldest call ages out of the window first.
		wait := w.interval - now.Sub(w.calls[0])
		w.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Allow records a call if a slot is free (non-blocking).
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.prune(now)
	if len(w.calls) < w.limit {
		w.calls = append(w.calls, now)
		return true
	}
	return false
}

// InFlight returns how many calls are currently inside the window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.calls)
}

// prune drops timestamps older than the window. Must hold mu.
func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.calls) && now.Sub(w.calls[cut]) >= w.interval {
		cut++
	}
	if cut > 0 {
		w.calls = append(w.calls[:0], w.calls[cut:]...)
	}
}
