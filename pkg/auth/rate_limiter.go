package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// KeyedLimiter keeps one token bucket per key. Buckets idle for longer than
// idleTTL are dropped by Sweep.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*keyedBucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type keyedBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows perMinute events per key, bursting up to burst
func NewKeyedLimiter(perMinute, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &KeyedLimiter{
		buckets: make(map[string]*keyedBucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idleTTL: time.Hour,
		now:     time.Now,
	}
}

// Allow consumes one token for key
func (l *KeyedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.allow(key), nil
}

func (l *KeyedLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Reset forgets the bucket of key
func (l *KeyedLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// Sweep drops idle buckets and returns how many remain
func (l *KeyedLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
	return len(l.buckets)
}

// RunSweeper sweeps every interval until ctx is done
func (l *KeyedLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// ExpansionLimiter throttles AI expansions per owner. Local-only sessions
// share the empty owner key.
type ExpansionLimiter struct {
	limiter *KeyedLimiter
}

// NewExpansionLimiter allows perMinute expansions per owner; zero or less
// disables the limit
func NewExpansionLimiter(perMinute int) *ExpansionLimiter {
	if perMinute <= 0 {
		return &ExpansionLimiter{}
	}
	return &ExpansionLimiter{limiter: NewKeyedLimiter(perMinute, perMinute)}
}

// Allow implements ports.ExpansionLimiter
func (e *ExpansionLimiter) Allow(ownerID string) bool {
	if e == nil || e.limiter == nil {
		return true
	}
	return e.limiter.allow("owner:" + ownerID)
}
