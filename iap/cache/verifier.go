package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ReneKroon/ttlcache"

	"github.com/code-payments/iap-verifier/iap"
)

// Cache remembers successful provider responses for a short while, so the
// same receipt presented repeatedly only reaches the provider once per TTL.
// Failures are never cached, and hits don't extend an entry's lifetime.
//
// The cache runs an expiry goroutine until Close is called. Once closed,
// requests go straight to the wrapped verifier.
type Cache struct {
	verifier iap.Verifier

	mu     sync.RWMutex
	closed bool
	cache  *ttlcache.Cache
}

func NewInCache(verifier iap.Verifier, ttl time.Duration) *Cache {
	cache := ttlcache.NewCache()
	cache.SetTTL(ttl)
	cache.SkipTtlExtensionOnHit(true)
	return &Cache{
		verifier: verifier,
		cache:    cache,
	}
}

func (c *Cache) Provider() iap.Provider {
	return c.verifier.Provider()
}

func (c *Cache) Verify(ctx context.Context, receipt string) (iap.RawResponse, error) {
	cacheKey := iap.GetReceiptID(receipt)

	if cached, ok := c.get(cacheKey); ok {
		return cached.Clone(), nil
	}

	response, err := c.verifier.Verify(ctx, receipt)
	if err != nil {
		return nil, err
	}

	c.set(cacheKey, response.Clone())

	return response, nil
}

// Close stops the expiry goroutine and drops all entries. It's safe to call
// more than once.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cache.Close()
	return nil
}

func (c *Cache) get(key string) (iap.RawResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, false
	}
	cached, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cached.(iap.RawResponse), true
}

func (c *Cache) set(key string, response iap.RawResponse) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}
	c.cache.Set(key, response)
}
