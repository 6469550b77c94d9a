// Package ratelimit implements the per-sender inbound message limit: a
// fixed 60 second window per key, counting messages and rejecting once the
// limit is hit. Windows reset on the first message after expiry.
package ratelimit

import (
	"sync"
	"time"
)

const DefaultPerMinute = 20

type window struct {
	start time.Time
	count int
}

// Limiter tracks fixed windows per sender key.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// New creates a limiter allowing limit messages per minute per key.
func New(limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultPerMinute
	}
	return &Limiter{
		limit:   limit,
		period:  time.Minute,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one message for key and reports whether it is within the
// limit for the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{start: now, count: 1}
		return true
	}

	w.count++
	return w.count <= l.limit
}

// Prune drops windows that expired before now. Callers run it periodically
// to bound memory on long-lived processes.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
