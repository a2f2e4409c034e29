package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// minSweepInterval bounds how often idle buckets are scanned.
const minSweepInterval = time.Minute

// Limiter is a keyed token bucket. Every key shares the same capacity and
// refill rate. Buckets that have refilled completely are dropped on the next
// sweep; a full bucket and a missing one behave the same.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time
	lastSweep  time.Time
}

func New(refillPerSec float64, capacity int) *Limiter {
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   float64(capacity),
		refillRate: refillPerSec,
		now:        time.Now,
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// refillTime is how long an empty bucket takes to fill up.
func (l *Limiter) refillTime() time.Duration {
	return time.Duration(l.capacity / l.refillRate * float64(time.Second))
}

// sweep drops buckets that are full at now. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	interval := l.refillTime()
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	if l.lastSweep.IsZero() {
		l.lastSweep = now
		return
	}
	if now.Sub(l.lastSweep) < interval {
		return
	}
	l.lastSweep = now
	for k, b := range l.m {
		if b.tokens+now.Sub(b.last).Seconds()*l.refillRate >= l.capacity {
			delete(l.m, k)
		}
	}
}

// Allow returns true if one token can be consumed for key. A limiter with a
// zero refill rate allows everything.
func (l *Limiter) Allow(key string) bool {
	if l.refillRate <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
