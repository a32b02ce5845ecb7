package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"SigCouncil/internal/domain/models"
)

// Limiter is a keyed token bucket. One bucket per external dependency, shared
// by every worker that calls it; burst capacity is separate from the sustained
// rate so a scan can fire an initial volley without tripping the limit.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	defRate  rate.Limit
	defBurst int
}

// New creates a Limiter with default per-key rate and burst, used for keys
// never configured explicitly.
func New(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets:  make(map[string]*rate.Limiter),
		defRate:  rate.Limit(perSecond),
		defBurst: burst,
	}
}

// Configure sets a dedicated rate and burst for one key, replacing any
// existing bucket.
func (l *Limiter) Configure(key string, perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Allow consumes one token for key without blocking.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait suspends until a token for key is available or ctx is done. This is
// the call data-fetch collaborators make before hitting an external API.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := l.bucket(key).Wait(ctx); err != nil {
		return fmt.Errorf("wait for %s token (%v): %w", key, err, models.ErrRateLimited)
	}
	return nil
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.defRate, l.defBurst)
		l.buckets[key] = b
	}
	return b
}
