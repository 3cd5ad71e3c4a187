package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter decides whether a caller identified by key may proceed.
type Limiter interface {
	TryAcquire(key string) bool
}

// InMemory keeps one token bucket per key inside this process. Buckets that
// see no traffic for idleTTL are evicted.
type InMemory struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewInMemory allows perMinute requests per key per minute with a burst of
// the same size.
func NewInMemory(perMinute int, idleTTL time.Duration) *InMemory {
	if perMinute < 1 {
		perMinute = 1
	}
	return &InMemory{
		buckets: cache.New(idleTTL, idleTTL),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (l *InMemory) WithClock(now func() time.Time) *InMemory {
	l.now = now
	return l
}

func (l *InMemory) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var bucket *rate.Limiter
	if v, ok := l.buckets.Get(key); ok {
		bucket = v.(*rate.Limiter)
	} else {
		bucket = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-set on every hit so the idle expiry slides.
	l.buckets.SetDefault(key, bucket)

	return bucket.AllowN(l.now(), 1)
}

// Len reports how many keys currently hold a bucket.
func (l *InMemory) Len() int {
	return l.buckets.ItemCount()
}
