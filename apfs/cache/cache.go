// Package cache implements the object cache every mounted container and
// volume shares: a hashtable keyed by object identifier backed by an LRU
// eviction list, with ephemeral objects (checkpoint-only structures that
// are never written to a stable paddr) tracked separately so they survive
// LRU pressure for the lifetime of the checkpoint that created them.
package cache

import (
	"container/list"
	"sync"

	"go.uber.org/atomic"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Loader fetches and decodes the object behind oid/xid/paddr when it
// isn't already cached. I/O happens here, outside the cache's lock.
type Loader[T any] func(oid types.OidT, xid types.XidT, paddr types.Paddr) (T, error)

type entry[T any] struct {
	key        types.OidT
	xid        types.XidT
	val        T
	ephemeral  bool
	lruElement *list.Element
}

// Cache is a generic object cache, grounded on apfs-fuse's ObjCache: a
// hashtable for lookup and an LRU list for eviction of physical/virtual
// objects. Ephemeral objects are flagged hashtable entries with no LRU
// element, so eviction never reaches them.
// A single mutex guards the hashtable and the LRU list;
// Loader calls happen outside the lock so a slow read from one oid
// doesn't block lookups of others already cached.
type Cache[T any] struct {
	mu    sync.Mutex
	byOid map[types.OidT]*entry[T]
	lru   *list.List

	limit int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache that evicts non-ephemeral entries once more than
// limit of them are resident. limit <= 0 means unbounded.
func New[T any](limit int) *Cache[T] {
	return &Cache[T]{
		byOid: make(map[types.OidT]*entry[T]),
		lru:   list.New(),
		limit: limit,
	}
}

// Get returns the cached value for oid if present, loading it with load
// otherwise. xid and paddr are passed to load verbatim; xid is also used
// to invalidate a stale cached entry from an older checkpoint when the
// caller asks for a newer one (oid reuse across checkpoints is why
// objects are keyed by oid alone but validated against xid).
func (c *Cache[T]) Get(oid types.OidT, xid types.XidT, paddr types.Paddr, ephemeral bool, load Loader[T]) (T, error) {
	c.mu.Lock()
	if e, ok := c.byOid[oid]; ok && (xid == 0 || e.xid == xid) {
		if !e.ephemeral {
			c.lru.MoveToFront(e.lruElement)
		}
		c.mu.Unlock()
		c.hits.Inc()
		return e.val, nil
	}
	c.mu.Unlock()
	c.misses.Inc()

	val, err := load(oid, xid, paddr)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: oid, xid: xid, val: val, ephemeral: ephemeral}
	if old, ok := c.byOid[oid]; ok {
		c.removeLocked(old)
	}
	c.byOid[oid] = e
	if !ephemeral {
		// Ephemeral objects are exempt from LRU eviction: they're kept
		// alive purely by the hashtable entry until InvalidateEphemeral
		// drops them at the next checkpoint boundary.
		e.lruElement = c.lru.PushFront(e)
		c.shrinkLocked()
	}
	return val, nil
}

// Invalidate drops oid from the cache unconditionally, used when a
// caller knows an object has been superseded by a newer checkpoint.
func (c *Cache[T]) Invalidate(oid types.OidT) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byOid[oid]; ok {
		c.removeLocked(e)
	}
}

func (c *Cache[T]) removeLocked(e *entry[T]) {
	delete(c.byOid, e.key)
	if e.lruElement != nil {
		c.lru.Remove(e.lruElement)
	}
}

// InvalidateEphemeral drops every ephemeral entry, called once a new
// checkpoint has been adopted and the old one's ephemeral structures
// (spaceman, reaper state, ...) are no longer reachable.
func (c *Cache[T]) InvalidateEphemeral() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for oid, e := range c.byOid {
		if e.ephemeral {
			delete(c.byOid, oid)
		}
	}
}

func (c *Cache[T]) shrinkLocked() {
	if c.limit <= 0 {
		return
	}
	for c.lru.Len() > c.limit {
		back := c.lru.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry[T])
		c.removeLocked(e)
	}
}

// Stats reports cumulative hit/miss counters for diagnostics.
func (c *Cache[T]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
