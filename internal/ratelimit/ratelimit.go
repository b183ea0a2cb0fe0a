// Package ratelimit provides keyed token buckets over golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with convenience methods.
type Limiter struct {
	limiter *rate.Limiter
}

// NewWithBurst creates a new rate limiter with explicit burst.
func NewWithBurst(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

type keyedEntry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// Keyed holds one Limiter per key, typically a client address. Keys idle
// for longer than the idle TTL are dropped on the next Allow.
type Keyed struct {
	mu      sync.Mutex
	rps     float64
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	entries map[string]*keyedEntry
	swept   time.Time
}

// NewKeyed creates a keyed limiter handing out rps/burst buckets.
func NewKeyed(rps float64, burst int, idleTTL time.Duration) *Keyed {
	return &Keyed{
		rps:     rps,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*keyedEntry),
	}
}

// Allow reports whether key may act now.
func (k *Keyed) Allow(key string) bool {
	return k.get(key).Allow()
}

func (k *Keyed) get(key string) *Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if k.idleTTL > 0 && now.Sub(k.swept) > k.idleTTL {
		for key, e := range k.entries {
			if now.Sub(e.lastSeen) > k.idleTTL {
				delete(k.entries, key)
			}
		}
		k.swept = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{limiter: NewWithBurst(k.rps, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len returns how many keys are tracked.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
