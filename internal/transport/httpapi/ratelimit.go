package httpapi

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const minLimiterIdle = time.Minute

// keyedLimiter hands out one token bucket per key. Buckets untouched for idle
// are evicted; by then they have refilled, so a fresh bucket behaves the same.
type keyedLimiter struct {
	buckets *gocache.Cache
	limit   rate.Limit
	burst   int
	idle    time.Duration
}

// newKeyedLimiter returns nil when perSecond is not positive, which disables limiting.
func newKeyedLimiter(perSecond float64, burst int) *keyedLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	idle := 2 * time.Duration(float64(burst)/perSecond*float64(time.Second))
	if idle < minLimiterIdle {
		idle = minLimiterIdle
	}
	return newKeyedLimiterWithIdle(perSecond, burst, idle)
}

func newKeyedLimiterWithIdle(perSecond float64, burst int, idle time.Duration) *keyedLimiter {
	return &keyedLimiter{
		buckets: gocache.New(idle, idle),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    idle,
	}
}

func (l *keyedLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.get(key).Allow()
}

func (l *keyedLimiter) get(key string) *rate.Limiter {
	if cached, ok := l.buckets.Get(key); ok {
		limiter := cached.(*rate.Limiter)
		l.buckets.Set(key, limiter, l.idle)
		return limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	if err := l.buckets.Add(key, limiter, l.idle); err != nil {
		// Another request created the bucket first.
		if cached, ok := l.buckets.Get(key); ok {
			return cached.(*rate.Limiter)
		}
		l.buckets.Set(key, limiter, l.idle)
	}
	return limiter
}
