// Package ratelimit spaces outbound requests to stay under a fixed requests/second ceiling.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRatePerSecond Hyperliquid allows 1200 weight/min, clearinghouseState weighs 2.
const DefaultRatePerSecond = 10

// Limiter hands out request slots spaced 1/rate apart.
// Every Acquire claims its own slot before sleeping, so concurrent callers never share one.
type Limiter struct {
	lim         *rate.Limiter
	minInterval time.Duration
}

// New creates a limiter for ratePerSecond requests per second.
// Non-positive values fall back to DefaultRatePerSecond.
func New(ratePerSecond float64) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = DefaultRatePerSecond
	}
	return &Limiter{
		// burst 1: no slot may be taken ahead of its spacing
		lim:         rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		minInterval: time.Duration(float64(time.Second) / ratePerSecond),
	}
}

// Acquire blocks until the caller's slot arrives.
// It fails only when ctx is done before the slot.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

// MinInterval spacing between two consecutive slots.
func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}
