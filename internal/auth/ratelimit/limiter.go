// Package ratelimit implements a per-key token bucket used to throttle XP
// award submissions. Buckets refill continuously at the configured rate and
// hold at most one minute's worth of tokens.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter is a token-bucket rate limiter keyed by caller identity. A zero or
// negative rate disables limiting.
type Limiter struct {
	mu            sync.Mutex
	buckets       map[string]*bucket
	ratePerMinute int
	lastSweep     time.Time
}

func NewLimiter(ratePerMinute int) *Limiter {
	return &Limiter{
		buckets:       make(map[string]*bucket),
		ratePerMinute: ratePerMinute,
		lastSweep:     time.Now(),
	}
}

// Allow consumes one token from the key's bucket, reporting whether the
// request is within the rate.
func (l *Limiter) Allow(key string) bool {
	if l.ratePerMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.ratePerMinute), lastSeen: now}
		l.buckets[key] = b
	}

	refill := now.Sub(b.lastSeen).Minutes() * float64(l.ratePerMinute)
	b.tokens = min(b.tokens+refill, float64(l.ratePerMinute))
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle long enough to have fully refilled, bounding
// memory under churning keys. Caller holds the lock.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > 2*time.Minute {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
