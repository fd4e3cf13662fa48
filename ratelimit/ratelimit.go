// Package ratelimit paces outgoing provider calls at a fixed interval shared
// by every caller in the process.
package ratelimit

import (
	"context"
	"time"

	"playlist-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultCallsPerSecond matches the provider's recommended sustained rate.
const DefaultCallsPerSecond = 2.0

// Limiter enforces a minimum interval between calls. It has no burst
// allowance: a burst of one token means each caller reserves the next free
// slot atomically, so concurrent callers are serialized through the gate.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New creates a limiter allowing callsPerSecond calls. Non-positive rates
// fall back to DefaultCallsPerSecond.
func New(callsPerSecond float64) *Limiter {
	if callsPerSecond <= 0 {
		callsPerSecond = DefaultCallsPerSecond
	}
	interval := time.Duration(float64(time.Second) / callsPerSecond)

	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the caller may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		log.Debugf("%s Waited %v before provider call", logcolors.LogRateLimit, waited.Round(time.Millisecond))
	}
	return nil
}

// Interval returns the minimum spacing between two calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
