package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxKeys = 10000
)

// MemoryLimiter is a per-key token bucket held in process memory.
// Idle keys expire after ttl and the number of tracked keys is capped.
type MemoryLimiter struct {
	mu            sync.Mutex
	visitors      map[string]*visitor
	ratePerMinute float64
	burst         float64
	ttl           time.Duration
	maxKeys       int
	lastSweep     time.Time
	now           func() time.Time
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// NewMemoryLimiter builds a limiter allowing requestsPerMinute with the given burst.
func NewMemoryLimiter(requestsPerMinute, burst, maxKeys int) *MemoryLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &MemoryLimiter{
		visitors:      make(map[string]*visitor),
		ratePerMinute: float64(requestsPerMinute),
		burst:         float64(burst),
		ttl:           defaultTTL,
		maxKeys:       maxKeys,
		now:           time.Now,
	}
}

// Allow consumes a token for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) > l.ttl/5 {
		l.cleanupLocked(now)
		l.lastSweep = now
	}
	v, ok := l.visitors[key]
	if !ok {
		if len(l.visitors) >= l.maxKeys {
			l.cleanupLocked(now)
			if len(l.visitors) >= l.maxKeys {
				l.evictOldestLocked()
			}
		}
		v = &visitor{tokens: l.burst, lastSeen: now}
		l.visitors[key] = v
	} else {
		elapsed := now.Sub(v.lastSeen).Minutes()
		if elapsed > 0 {
			v.tokens = math.Min(l.burst, v.tokens+elapsed*l.ratePerMinute)
		}
		v.lastSeen = now
	}
	if v.tokens < 1 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

// Len reports how many keys are tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *MemoryLimiter) cleanupLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

func (l *MemoryLimiter) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, v := range l.visitors {
		if oldestKey == "" || v.lastSeen.Before(oldest) {
			oldestKey, oldest = key, v.lastSeen
		}
	}
	delete(l.visitors, oldestKey)
}
