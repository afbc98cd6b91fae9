// Package indexcache implements the IndexCache (spec.md component C2): a
// never-evicted, in-memory map from primary key to index
// record, plus reverse maps for exact-match secondary-key lookups.
package indexcache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jecitDev/corebank/pkg/entitycore"
)

// IndexCache is safe for concurrent use. It holds no reference to any
// database handle and loads nothing itself; entries arrive only through
// Add/Remove calls, made by TxAwareCache commits, NotificationListener
// applies, or a caller seeding it directly. No package in this module
// preloads it from the {table}_idx table.
type IndexCache struct {
	mu sync.RWMutex

	byPrimary map[entitycore.PrimaryKey]entitycore.IndexRecord
	byI64     map[string]map[int64]map[entitycore.PrimaryKey]struct{}
	byUUID    map[string]map[uuid.UUID]map[entitycore.PrimaryKey]struct{}
}

// New returns an empty IndexCache.
func New() *IndexCache {
	return &IndexCache{
		byPrimary: make(map[entitycore.PrimaryKey]entitycore.IndexRecord),
		byI64:     make(map[string]map[int64]map[entitycore.PrimaryKey]struct{}),
		byUUID:    make(map[string]map[uuid.UUID]map[entitycore.PrimaryKey]struct{}),
	}
}

// Add inserts or replaces idx by primary key, rebuilding its secondary-key
// reverse-map entries. Replacing an existing primary key removes every old
// reverse entry before the new ones are written, even when old and new
// share secondary-key values (spec.md §4.2 edge case).
func (c *IndexCache) Add(idx entitycore.IndexRecord) {
	idx = idx.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byPrimary[idx.PrimaryKey]; ok {
		c.unindexLocked(old)
	}
	c.byPrimary[idx.PrimaryKey] = idx
	c.indexLocked(idx)
}

// Remove deletes the record for pk, dropping it from every secondary map
// it was present in. Returns the removed record, if any.
func (c *IndexCache) Remove(pk entitycore.PrimaryKey) (entitycore.IndexRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.byPrimary[pk]
	if !ok {
		return entitycore.IndexRecord{}, false
	}
	c.unindexLocked(old)
	delete(c.byPrimary, pk)
	return old, true
}

// GetByPrimary returns the record for pk, if present.
func (c *IndexCache) GetByPrimary(pk entitycore.PrimaryKey) (entitycore.IndexRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byPrimary[pk]
	return r, ok
}

// ContainsPrimary reports whether pk is present, without copying the record.
func (c *IndexCache) ContainsPrimary(pk entitycore.PrimaryKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byPrimary[pk]
	return ok
}

// GetByI64Index returns every record whose declared i64 secondary key
// keyName equals value. Order is unspecified.
func (c *IndexCache) GetByI64Index(keyName string, value int64) []entitycore.IndexRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pks := c.byI64[keyName][value]
	out := make([]entitycore.IndexRecord, 0, len(pks))
	for pk := range pks {
		out = append(out, c.byPrimary[pk])
	}
	return out
}

// GetByUUIDIndex returns every record whose declared UUID secondary key
// keyName equals value. Order is unspecified.
func (c *IndexCache) GetByUUIDIndex(keyName string, value uuid.UUID) []entitycore.IndexRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pks := c.byUUID[keyName][value]
	out := make([]entitycore.IndexRecord, 0, len(pks))
	for pk := range pks {
		out = append(out, c.byPrimary[pk])
	}
	return out
}

// Len returns the number of primary keys held.
func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byPrimary)
}

func (c *IndexCache) indexLocked(idx entitycore.IndexRecord) {
	for name, v := range idx.I64Keys {
		if v == nil {
			continue
		}
		byVal, ok := c.byI64[name]
		if !ok {
			byVal = make(map[int64]map[entitycore.PrimaryKey]struct{})
			c.byI64[name] = byVal
		}
		set, ok := byVal[*v]
		if !ok {
			set = make(map[entitycore.PrimaryKey]struct{})
			byVal[*v] = set
		}
		set[idx.PrimaryKey] = struct{}{}
	}
	for name, v := range idx.UUIDKeys {
		if v == nil {
			continue
		}
		byVal, ok := c.byUUID[name]
		if !ok {
			byVal = make(map[uuid.UUID]map[entitycore.PrimaryKey]struct{})
			c.byUUID[name] = byVal
		}
		set, ok := byVal[*v]
		if !ok {
			set = make(map[entitycore.PrimaryKey]struct{})
			byVal[*v] = set
		}
		set[idx.PrimaryKey] = struct{}{}
	}
}

func (c *IndexCache) unindexLocked(idx entitycore.IndexRecord) {
	for name, v := range idx.I64Keys {
		if v == nil {
			continue
		}
		if set, ok := c.byI64[name][*v]; ok {
			delete(set, idx.PrimaryKey)
			if len(set) == 0 {
				delete(c.byI64[name], *v)
			}
		}
	}
	for name, v := range idx.UUIDKeys {
		if v == nil {
			continue
		}
		if set, ok := c.byUUID[name][*v]; ok {
			delete(set, idx.PrimaryKey)
			if len(set) == 0 {
				delete(c.byUUID[name], *v)
			}
		}
	}
}
