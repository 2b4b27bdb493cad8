// Package backoff provides delay schedules and an injectable sleeper for retry loops.
package backoff

import (
	"context"
	"math"
	"sync"
	"time"
)

// Func returns the delay to wait after the failed attempt with the given
// zero-based index. Implementations must be pure.
type Func func(attempt int) time.Duration

// Exponential returns base * factor^attempt, capped at maxDelay when maxDelay > 0.
func Exponential(base time.Duration, factor float64, maxDelay time.Duration) Func {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		d := time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
		if maxDelay > 0 && d > maxDelay {
			return maxDelay
		}
		return d
	}
}

// Linear returns step * (attempt + 1).
func Linear(step time.Duration) Func {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		return step * time.Duration(attempt+1)
	}
}

// Constant always returns d.
func Constant(d time.Duration) Func {
	return func(int) time.Duration { return d }
}

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type realSleeper struct{}

// Real returns a Sleeper backed by a timer.
func Real() Sleeper {
	return realSleeper{}
}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a Sleeper that returns immediately and remembers every requested delay.
type Recorder struct {
	delays []time.Duration
	mu     sync.Mutex
}

// Sleep records d and honors cancellation without waiting.
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Delays returns a copy of the recorded delays.
func (r *Recorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}
