// Package ratelimit guards abuse-prone routes with a per-key quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/nutrikit/nutrikit/internal/clock"
)

type Limiter interface {
	// Allow consumes one unit of the key's quota and reports whether the
	// request may proceed. Failing open on backend errors is the
	// caller's choice; in-memory limiting never errors.
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// FixedWindowLimiter counts requests per key in fixed windows held in
// process memory. Quotas reset lazily when a window expires and do not
// survive a restart. Counts are exact per process but only approximate
// across replicas.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	clock   clock.Clock
}

func NewFixedWindow(limit int, period time.Duration, clk clock.Clock) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		clock:   clk,
	}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}
