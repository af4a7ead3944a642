package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter bounds outstanding calls per external service. The extraction
// and similarity services are the pipeline's main suspension points;
// limiting them here gives backpressure without any article noticing the
// others.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter with a shared default rate per service key
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the named service's limiter admits one call, or the
// context is cancelled
func (l *Limiter) Wait(ctx context.Context, service string) error {
	return l.get(service).Wait(ctx)
}

// Allow reports whether one call to the named service is admitted right
// now, without waiting
func (l *Limiter) Allow(service string) bool {
	return l.get(service).Allow()
}

// SetServiceRate overrides the rate for one service
func (l *Limiter) SetServiceRate(service string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[service] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) get(service string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[service]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[service]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[service] = limiter

	return limiter
}
