package identity

import (
	"context"
	"sync"
	"time"
)

// CachedVerifier memoizes successful lookups for a bounded TTL so hot
// tokens do not hit the upstream on every request. Failures are never
// cached; a revoked token stays wrong for at most one TTL.
type CachedVerifier struct {
	inner Verifier
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	userID    string
	expiresAt time.Time
}

func NewCachedVerifier(inner Verifier, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedVerifier) Verify(ctx context.Context, token string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[token]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		return e.userID, nil
	}

	userID, err := c.inner.Verify(ctx, token)
	if err != nil {
		if ok {
			c.mu.Lock()
			delete(c.entries, token)
			c.mu.Unlock()
		}
		return "", err
	}

	c.mu.Lock()
	c.entries[token] = cacheEntry{userID: userID, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return userID, nil
}
