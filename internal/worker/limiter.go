package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles analyzer passes with one token bucket per pass name
type Limiter struct {
	limiters     map[Pass]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter; every pass starts with the same rate
func NewLimiter(passesPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:     make(map[Pass]*rate.Limiter),
		defaultRate:  rate.Limit(passesPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the pass may run or ctx is done
func (l *Limiter) Wait(ctx context.Context, pass Pass) error {
	return l.get(pass).Wait(ctx)
}

// Allow reports whether the pass may run now, consuming a token if so
func (l *Limiter) Allow(pass Pass) bool {
	return l.get(pass).Allow()
}

func (l *Limiter) get(pass Pass) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[pass]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[pass]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[pass] = limiter
	return limiter
}

// SetPassRate overrides the rate of a single pass
func (l *Limiter) SetPassRate(pass Pass, passesPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[pass] = rate.NewLimiter(rate.Limit(passesPerSecond), burst)
}
