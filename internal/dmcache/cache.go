// Package dmcache is a short-TTL read-through cache over a datasource
// row joined to its owning project, keyed by (datasource_id,
// requester_id, is_root) so that two requesters (or root vs
// non-root) never share a cached authorization decision.
//
// The locking discipline mirrors the teacher's in-memory session
// cache (internal/store/pg/sessions.go): the mutex guards only the map,
// loads from the backing store happen outside the lock.
package dmcache

import (
	"context"
	"sync"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

// Entry is the cached shape of a datasource plus enough project context
// to answer "can requester touch this datasource" without a join.
type Entry struct {
	DatasourceID     string
	ProjectID        string
	ClientID         string
	Type             model.DatasourceType
	ConnectionConfig []byte
}

// Loader resolves a cache miss. It is expected to check that requesterID
// (or root) is allowed to see datasourceID and return model.ErrForbidden
// or model.ErrNotFound otherwise.
type Loader func(ctx context.Context, datasourceID, requesterID string, isRoot bool) (*Entry, error)

type key struct {
	datasourceID string
	requesterID  string
	isRoot       bool
}

type item struct {
	entry     *Entry
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	items  map[key]item
	ttl    time.Duration
	load   Loader
	stopCh chan struct{}
}

// New constructs a Cache with the given TTL (suggested 60s) and Loader.
func New(ttl time.Duration, load Loader) *Cache {
	return &Cache{
		items:  make(map[key]item),
		ttl:    ttl,
		load:   load,
		stopCh: make(chan struct{}),
	}
}

// Get returns the cached entry for the (datasourceID, requesterID, isRoot)
// triple, loading and caching it on a miss or expiry.
func (c *Cache) Get(ctx context.Context, datasourceID, requesterID string, isRoot bool) (*Entry, error) {
	k := key{datasourceID: datasourceID, requesterID: requesterID, isRoot: isRoot}

	c.mu.RLock()
	it, ok := c.items[k]
	c.mu.RUnlock()
	if ok && time.Now().Before(it.expiresAt) {
		return it.entry, nil
	}

	entry, err := c.load(ctx, datasourceID, requesterID, isRoot)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[k] = item{entry: entry, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return entry, nil
}

// Invalidate drops every cached entry for datasourceID, regardless of
// which requester or root-ness it was cached under. Called from every
// write path that mutates or soft-deletes a datasource.
func (c *Cache) Invalidate(datasourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if k.datasourceID == datasourceID {
			delete(c.items, k)
		}
	}
}

// RunSweep evicts expired entries every interval until ctx is cancelled.
// It is a background hygiene pass, not a correctness requirement — Get
// already refuses to serve an expired entry.
func (c *Cache) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, it := range c.items {
				if now.After(it.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
