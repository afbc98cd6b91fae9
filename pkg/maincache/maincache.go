// Package maincache implements the MainCache (spec.md component C3): a
// bounded, in-memory cache of full entity records with a pluggable
// eviction policy, optional TTL, and hit/miss/eviction/invalidation
// statistics.
//
// LRU eviction is backed by github.com/hashicorp/golang-lru/v2/simplelru,
// the idiomatic in-process LRU used across the retrieved corpus (e.g.
// smartramana-developer-mesh, steveyegge-beads); Add's own capacity-eviction
// return value feeds the Evictions counter, since its OnEvict callback fires
// on every removal path (including plain Remove) and would double-count
// TTL-driven invalidations otherwise. FIFO has no equivalent library in the
// corpus, so its ordered-eviction ring is hand-rolled on top of the
// standard library's container/list (see DESIGN.md).
package maincache

import (
	"container/list"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/jecitDev/corebank/pkg/entitycore"
)

// EvictionPolicy selects how MainCache picks a victim when insert would
// exceed MaxEntries.
type EvictionPolicy int

const (
	// LRU evicts the least recently accessed entry; Get updates recency.
	LRU EvictionPolicy = iota
	// FIFO evicts the least recently inserted entry; Get never reorders.
	FIFO
)

// Config configures a MainCache.
type Config struct {
	MaxEntries     int
	EvictionPolicy EvictionPolicy
	// TTL, if non-zero, makes entries older than TTL count as absent on
	// Get and lazily removes them (incrementing Invalidations, not
	// Evictions).
	TTL time.Duration
}

// Statistics snapshots a MainCache's counters.
type Statistics struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	Size          int
}

type wrapped[T any] struct {
	value      T
	insertedAt time.Time
}

// MainCache is safe for concurrent use.
type MainCache[T any] struct {
	cfg Config

	mu      sync.Mutex
	stats   Statistics
	zeroCap bool

	lru  *simplelru.LRU[entitycore.PrimaryKey, *wrapped[T]]
	fifo *list.List // list.Element.Value is *fifoElem[T]
	idx  map[entitycore.PrimaryKey]*list.Element
}

type fifoElem[T any] struct {
	key entitycore.PrimaryKey
	w   *wrapped[T]
}

// New builds a MainCache per cfg. A MaxEntries of zero or less yields a
// cache that evicts immediately: every insert counts as an eviction and
// every Get is a miss (spec.md §8 boundary behavior).
func New[T any](cfg Config) *MainCache[T] {
	c := &MainCache[T]{cfg: cfg}
	if cfg.MaxEntries <= 0 {
		c.zeroCap = true
		return c
	}

	switch cfg.EvictionPolicy {
	case FIFO:
		c.fifo = list.New()
		c.idx = make(map[entitycore.PrimaryKey]*list.Element, cfg.MaxEntries)
	default:
		// onEvict fires from simplelru's removeElement on every removal
		// path, not just capacity eviction — Remove/RemoveOldest trigger
		// it too. Evictions is counted explicitly in insertLocked instead
		// of trusting this callback, so plain removals don't inflate it.
		l, err := simplelru.NewLRU[entitycore.PrimaryKey, *wrapped[T]](cfg.MaxEntries, nil)
		if err != nil {
			// NewLRU only errors on size <= 0, already handled above.
			panic("maincache: " + err.Error())
		}
		c.lru = l
	}
	return c
}

// Insert adds or replaces entity under its primary key, refreshing
// insertion/access metadata.
func (c *MainCache[T]) Insert(pk entitycore.PrimaryKey, entity T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(pk, entity)
}

// Update is semantically equivalent to Insert (spec.md §4.3).
func (c *MainCache[T]) Update(pk entitycore.PrimaryKey, entity T) {
	c.Insert(pk, entity)
}

func (c *MainCache[T]) insertLocked(pk entitycore.PrimaryKey, entity T) {
	w := &wrapped[T]{value: entity, insertedAt: time.Now()}

	if c.zeroCap {
		c.stats.Evictions++
		return
	}

	switch c.cfg.EvictionPolicy {
	case FIFO:
		if old, ok := c.idx[pk]; ok {
			c.fifo.Remove(old)
			delete(c.idx, pk)
		}
		el := c.fifo.PushBack(&fifoElem[T]{key: pk, w: w})
		c.idx[pk] = el
		for c.fifo.Len() > c.cfg.MaxEntries {
			victim := c.fifo.Front()
			c.fifo.Remove(victim)
			delete(c.idx, victim.Value.(*fifoElem[T]).key)
			c.stats.Evictions++
		}
	default:
		// Add's own return value is capacity-eviction only (it's false
		// when the key already existed and was just updated), unlike
		// onEvict which also fires from Remove/RemoveOldest.
		if c.lru.Add(pk, w) {
			c.stats.Evictions++
		}
	}
}

// Remove drops pk. Idempotent.
func (c *MainCache[T]) Remove(pk entitycore.PrimaryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zeroCap {
		return
	}
	switch c.cfg.EvictionPolicy {
	case FIFO:
		if el, ok := c.idx[pk]; ok {
			c.fifo.Remove(el)
			delete(c.idx, pk)
		}
	default:
		c.lru.Remove(pk)
	}
}

// Get returns entity for pk. A hit updates LRU recency (no-op under
// FIFO); a miss, or a TTL-expired entry (which is lazily removed and
// counted as an invalidation rather than an eviction), returns false.
func (c *MainCache[T]) Get(pk entitycore.PrimaryKey) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if c.zeroCap {
		c.stats.Misses++
		return zero, false
	}

	var w *wrapped[T]
	var ok bool
	switch c.cfg.EvictionPolicy {
	case FIFO:
		var el *list.Element
		el, ok = c.idx[pk]
		if ok {
			w = el.Value.(*fifoElem[T]).w
		}
	default:
		w, ok = c.lru.Get(pk)
	}
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	if c.cfg.TTL > 0 && time.Since(w.insertedAt) > c.cfg.TTL {
		c.removeLocked(pk)
		c.stats.Invalidations++
		c.stats.Misses++
		return zero, false
	}

	c.stats.Hits++
	return w.value, true
}

// Contains reports whether pk is present and unexpired, without updating
// LRU recency or hit/miss statistics.
func (c *MainCache[T]) Contains(pk entitycore.PrimaryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zeroCap {
		return false
	}

	var w *wrapped[T]
	var ok bool
	switch c.cfg.EvictionPolicy {
	case FIFO:
		var el *list.Element
		el, ok = c.idx[pk]
		if ok {
			w = el.Value.(*fifoElem[T]).w
		}
	default:
		w, ok = c.lru.Peek(pk)
	}
	if !ok {
		return false
	}
	if c.cfg.TTL > 0 && time.Since(w.insertedAt) > c.cfg.TTL {
		return false
	}
	return true
}

// Statistics returns a snapshot of the cache's counters.
func (c *MainCache[T]) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.sizeLocked()
	return s
}

func (c *MainCache[T]) sizeLocked() int {
	if c.zeroCap {
		return 0
	}
	switch c.cfg.EvictionPolicy {
	case FIFO:
		return c.fifo.Len()
	default:
		return c.lru.Len()
	}
}

func (c *MainCache[T]) removeLocked(pk entitycore.PrimaryKey) {
	switch c.cfg.EvictionPolicy {
	case FIFO:
		if el, ok := c.idx[pk]; ok {
			c.fifo.Remove(el)
			delete(c.idx, pk)
		}
	default:
		c.lru.Remove(pk)
	}
}
