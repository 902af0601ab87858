package objectstore

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CachedStore is a layered read-through cache over any two ObjectStore
// values. It favors archival over freshness: a refresh failure never
// evicts data the cache already holds, and an upstream ObjectNotFound is
// never reflected back into the cache. Lookup order for both Stat and Get
// is: fresh cache entry (age < ttu) → backend (writing through on
// success) → stale cache entry (any age) → give up.
type CachedStore struct {
	mu      sync.Mutex
	backend ObjectStore
	cache   ObjectStore
	ttu     time.Duration
	log     zerolog.Logger
}

var _ ObjectStore = (*CachedStore)(nil)

// NewCachedStore builds a CachedStore. ttu is the time-to-use: it replaces
// a non-positive TTL reported by the backend and caps a longer one (see
// setTTL); it must be non-negative.
func NewCachedStore(backend, cache ObjectStore, ttu time.Duration, log zerolog.Logger) *CachedStore {
	return &CachedStore{
		backend: backend,
		cache:   cache,
		ttu:     ttu,
		log:     log.With().Str("module", "objectstore.cached").Logger(),
	}
}

// setTTL clamps obj's own TTL against the cache's ttu: a non-positive TTL
// from the backend is replaced by ttu outright, a positive one is capped
// at ttu so nothing outlives the cache's own freshness policy.
func (c *CachedStore) setTTL(st Stat) Stat {
	if st.TTL <= 0 {
		st.TTL = c.ttu
	} else if c.ttu < st.TTL {
		st.TTL = c.ttu
	}
	return st
}

func (c *CachedStore) headCache(ctx context.Context, name string, maxAge time.Duration) (Stat, bool) {
	st, err := c.cache.Stat(ctx, name)
	if err != nil {
		return Stat{}, false
	}
	if st.IsExpired(maxAge, time.Now()) {
		return Stat{}, false
	}
	return c.setTTL(st), true
}

func (c *CachedStore) getCache(ctx context.Context, name string, maxAge time.Duration) (Object, bool) {
	st, err := c.cache.Stat(ctx, name)
	if err != nil {
		return Object{}, false
	}
	if st.IsExpired(maxAge, time.Now()) {
		c.log.Debug().Str("name", name).Msg("cache entry outdated")
		return Object{}, false
	}
	obj, err := c.cache.Get(ctx, name)
	if err != nil {
		return Object{}, false
	}
	obj.Stat = c.setTTL(obj.Stat)
	return obj, true
}

func (c *CachedStore) headBackend(ctx context.Context, name string) (Stat, bool) {
	st, err := c.backend.Stat(ctx, name)
	if err != nil {
		return Stat{}, false
	}
	return c.setTTL(st), true
}

func (c *CachedStore) getBackend(ctx context.Context, name string) (Object, bool) {
	obj, err := c.backend.Get(ctx, name)
	if err != nil {
		c.log.Debug().Err(err).Str("name", name).Msg("not found in backend")
		return Object{}, false
	}
	obj.Stat = c.setTTL(obj.Stat)
	return obj, true
}

const forever = time.Duration(math.MaxInt64)

func (c *CachedStore) Stat(ctx context.Context, name string) (Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.headCache(ctx, name, c.ttu); ok {
		return st, nil
	}
	if st, ok := c.headBackend(ctx, name); ok {
		return st, nil
	}
	if st, ok := c.headCache(ctx, name, forever); ok {
		return st, nil
	}
	return Stat{}, errors.Wrapf(ErrObjectNotFound, "%q", name)
}

func (c *CachedStore) Get(ctx context.Context, name string) (Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if obj, ok := c.getCache(ctx, name, c.ttu); ok {
		return obj, nil
	}
	if obj, ok := c.getBackend(ctx, name); ok {
		if err := c.cache.Put(ctx, name, obj); err != nil {
			c.log.Debug().Err(err).Str("name", name).Msg("failed to write through to cache")
		}
		return obj, nil
	}
	if obj, ok := c.getCache(ctx, name, forever); ok {
		return obj, nil
	}
	return Object{}, errors.Wrapf(ErrObjectNotFound, "%q", name)
}

// Put writes through to the backend first; if the backend accepts the
// write (it may refuse with ErrWriteNotSupported), the cache entry is kept
// coherent with it.
func (c *CachedStore) Put(ctx context.Context, name string, obj Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Put(ctx, name, obj); err != nil {
		return err
	}
	return c.cache.Put(ctx, name, obj)
}
