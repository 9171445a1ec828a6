package geocode

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheEntry is one memoized lookup. Found is false for negative answers.
type CacheEntry struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Region   string    `json:"region,omitempty"`
	Found    bool      `json:"found"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache stores lookup results by key.
type Cache interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Set(ctx context.Context, e CacheEntry) error
}

// Store is a persistent cache that can be listed and emptied.
type Store interface {
	Cache
	List(ctx context.Context) ([]CacheEntry, error)
	Clear(ctx context.Context) (int, error)
	Close() error
}

// CacheKey builds the lookup key for a name within a country namespace.
func CacheKey(namespace, name string) string {
	return strings.ToLower(strings.TrimSpace(namespace)) + "|" + strings.ToLower(strings.TrimSpace(name))
}

// MemoryCache is the run-scoped cache. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CacheEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, e CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = e
	return nil
}

// Len returns the number of memoized names.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CachingResolver memoizes another resolver. Answers (hits and ordinary
// misses) go to both the run cache and the optional persistent store;
// transport failures are remembered for the run only.
type CachingResolver struct {
	next      Resolver
	run       *MemoryCache
	store     Cache
	namespace string
	logger    *zap.Logger
	now       func() time.Time
}

// NewCachingResolver wraps next. store may be nil.
func NewCachingResolver(next Resolver, namespace string, store Cache, logger *zap.Logger) *CachingResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingResolver{
		next:      next,
		run:       NewMemoryCache(),
		store:     store,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve answers from the run cache, then the store, then the wrapped resolver.
func (c *CachingResolver) Resolve(ctx context.Context, name string) (string, error) {
	key := CacheKey(c.namespace, name)
	if e, ok, _ := c.run.Get(ctx, key); ok {
		return entryResult(e)
	}
	if c.store != nil {
		e, ok, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Warn("location cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			_ = c.run.Set(ctx, e)
			return entryResult(e)
		}
	}

	region, err := c.next.Resolve(ctx, name)
	e := CacheEntry{Key: key, Name: name, Region: region, Found: err == nil, StoredAt: c.now()}
	_ = c.run.Set(ctx, e)
	switch {
	case err == nil, IsMiss(err):
		if c.store != nil {
			if serr := c.store.Set(ctx, e); serr != nil {
				c.logger.Warn("location cache write failed", zap.String("key", key), zap.Error(serr))
			}
		}
	default:
		c.logger.Warn("location lookup failed", zap.String("name", name), zap.Error(err))
	}
	return region, err
}

// Lookups returns how many distinct names were memoized this run.
func (c *CachingResolver) Lookups() int { return c.run.Len() }

func entryResult(e CacheEntry) (string, error) {
	if !e.Found {
		return "", ErrNotFound
	}
	return e.Region, nil
}
