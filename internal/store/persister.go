package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/resonance/internal/cache"
	"github.com/ppiankov/resonance/internal/worker"
)

// RateLimitedPersister waits for the limiter before every call to next
type RateLimitedPersister struct {
	next    Persister
	limiter *worker.Limiter
	key     string
}

// NewRateLimitedPersister limits calls to next under the limiter bucket key
func NewRateLimitedPersister(next Persister, limiter *worker.Limiter, key string) *RateLimitedPersister {
	return &RateLimitedPersister{next: next, limiter: limiter, key: key}
}

// Persist waits for clearance and persists data
func (p *RateLimitedPersister) Persist(ctx context.Context, data []byte) (string, error) {
	if err := p.limiter.Wait(ctx, p.key); err != nil {
		return "", fmt.Errorf("rate limit %s: %w", p.key, err)
	}
	return p.next.Persist(ctx, data)
}

// CachingPersister remembers the locator of every payload it persisted and
// skips next for payloads it has seen. Keys are scoped by namespace, which
// must identify the store behind next.
type CachingPersister struct {
	next      Persister
	cache     cache.Cache
	namespace string
	ttl       time.Duration
}

// NewCachingPersister caches next's locators in c for ttl (0 uses the cache default)
func NewCachingPersister(next Persister, c cache.Cache, namespace string, ttl time.Duration) *CachingPersister {
	return &CachingPersister{next: next, cache: c, namespace: namespace, ttl: ttl}
}

// Persist returns the cached locator for data or persists it
func (p *CachingPersister) Persist(ctx context.Context, data []byte) (string, error) {
	key := cache.ScopedKey(p.namespace, data)
	if locator, ok := p.cache.Get(key); ok {
		return string(locator), nil
	}

	locator, err := p.next.Persist(ctx, data)
	if err != nil {
		return "", err
	}

	// a cache write failure only costs a repeated persist later
	_ = p.cache.Set(key, []byte(locator), p.ttl)
	return locator, nil
}
