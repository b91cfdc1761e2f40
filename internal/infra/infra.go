// Package infra provides shared infrastructure used by the acquisition and
// service layers: a clock, key/value caches, rate limiting and logging setup.
package infra

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Clock supplies the current time. Components that expire or timestamp
// data take a Clock so that tests can control time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// --- Rate limiter ---

// Default request rate for remote sources.
const (
	DefaultRatePerSecond = 5
	DefaultBurst         = 5
)

// Limiter is a token-bucket limiter shared by the outbound HTTP clients.
// A nil *Limiter never blocks.
type Limiter struct {
	l *rate.Limiter
}

// NewLimiter allows perSecond requests per second with the given burst.
// A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		return &Limiter{l: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *Limiter) Wait(ctx context.Context) error {
	if rl == nil || rl.l == nil {
		return ctx.Err()
	}
	return rl.l.Wait(ctx)
}

// Allow reports whether a request may proceed now without waiting.
func (rl *Limiter) Allow() bool {
	if rl == nil || rl.l == nil {
		return true
	}
	return rl.l.Allow()
}
