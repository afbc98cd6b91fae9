// Package txcache implements the TxAwareCache (spec.md component C4): a
// per-transaction staging layer over a shared IndexCache or MainCache.
// Mutations are journaled, not applied, until OnCommit replays them against
// the shared cache; OnRollback discards the journal untouched.
//
// The staging journal has its own lock, distinct from the shared cache's
// internal lock, per spec.md §5's invariant that a transaction never holds
// both a transaction lock and a cache lock at once: reads and writes against
// the journal are cheap, uncontended, and release before touching the
// shared cache.
package txcache

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/indexcache"
	"github.com/jecitDev/corebank/pkg/maincache"
)

// OpKind identifies a staged mutation.
type OpKind int

const (
	OpAdd OpKind = iota
	OpUpdate
	OpRemove
)

// --- Index cache staging -----------------------------------------------

// IndexOp is one staged mutation against an IndexCache.
type IndexOp struct {
	Kind   OpKind
	Record entitycore.IndexRecord // set for OpAdd/OpUpdate
	PK     entitycore.PrimaryKey  // set for OpRemove
}

func (op IndexOp) key() entitycore.PrimaryKey {
	if op.Kind == OpRemove {
		return op.PK
	}
	return op.Record.PrimaryKey
}

// TxIndexCache stages Add/Update/Remove against a shared *indexcache.IndexCache.
type TxIndexCache struct {
	shared *indexcache.IndexCache

	mu      sync.Mutex
	journal []IndexOp
}

// NewTxIndexCache binds a new per-transaction staging layer to shared.
func NewTxIndexCache(shared *indexcache.IndexCache) *TxIndexCache {
	return &TxIndexCache{shared: shared}
}

// Add appends an insert-or-replace to the journal. Does not touch shared.
func (t *TxIndexCache) Add(r entitycore.IndexRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = append(t.journal, IndexOp{Kind: OpAdd, Record: r})
}

// Update appends a replace to the journal. Does not touch shared.
func (t *TxIndexCache) Update(r entitycore.IndexRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = append(t.journal, IndexOp{Kind: OpUpdate, Record: r})
}

// Remove appends a removal to the journal. Does not touch shared.
func (t *TxIndexCache) Remove(pk entitycore.PrimaryKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = append(t.journal, IndexOp{Kind: OpRemove, PK: pk})
}

// GetByPrimary returns the merged view: the journal's pending state for pk
// if staged, else the shared cache's current state.
func (t *TxIndexCache) GetByPrimary(pk entitycore.PrimaryKey) (entitycore.IndexRecord, bool) {
	if op, ok := t.pendingFor(pk); ok {
		if op.Kind == OpRemove {
			return entitycore.IndexRecord{}, false
		}
		return op.Record, true
	}
	return t.shared.GetByPrimary(pk)
}

// ContainsPrimary is the merged-view existence check.
func (t *TxIndexCache) ContainsPrimary(pk entitycore.PrimaryKey) bool {
	_, ok := t.GetByPrimary(pk)
	return ok
}

// GetByI64Index overlays staged mutations on top of the shared cache's
// current matches for (keyName, value).
func (t *TxIndexCache) GetByI64Index(keyName string, value int64) []entitycore.IndexRecord {
	base := t.shared.GetByI64Index(keyName, value)
	latest := t.latestPerKey()
	result := make(map[entitycore.PrimaryKey]entitycore.IndexRecord, len(base))
	for _, r := range base {
		result[r.PrimaryKey] = r
	}
	for pk, op := range latest {
		if op.Kind == OpRemove {
			delete(result, pk)
			continue
		}
		if v, ok := op.Record.I64Keys[keyName]; ok && v != nil && *v == value {
			result[pk] = op.Record
		} else {
			delete(result, pk)
		}
	}
	out := make([]entitycore.IndexRecord, 0, len(result))
	for _, r := range result {
		out = append(out, r)
	}
	return out
}

// GetByUUIDIndex overlays staged mutations on top of the shared cache's
// current matches for (keyName, value).
func (t *TxIndexCache) GetByUUIDIndex(keyName string, value uuid.UUID) []entitycore.IndexRecord {
	base := t.shared.GetByUUIDIndex(keyName, value)
	latest := t.latestPerKey()
	result := make(map[entitycore.PrimaryKey]entitycore.IndexRecord, len(base))
	for _, r := range base {
		result[r.PrimaryKey] = r
	}
	for pk, op := range latest {
		if op.Kind == OpRemove {
			delete(result, pk)
			continue
		}
		if v, ok := op.Record.UUIDKeys[keyName]; ok && v != nil && *v == value {
			result[pk] = op.Record
		} else {
			delete(result, pk)
		}
	}
	out := make([]entitycore.IndexRecord, 0, len(result))
	for _, r := range result {
		out = append(out, r)
	}
	return out
}

// OnCommit replays the journal against the shared cache in order and
// clears it. Never fails: a staged mutation that cannot be applied is
// logged and skipped (spec.md §4.4, CacheApplyWarning).
func (t *TxIndexCache) OnCommit() {
	t.mu.Lock()
	journal := t.journal
	t.journal = nil
	t.mu.Unlock()

	for _, op := range journal {
		applyIndexOp(t.shared, op)
	}
}

// OnRollback discards the journal without touching the shared cache.
func (t *TxIndexCache) OnRollback() {
	t.mu.Lock()
	t.journal = nil
	t.mu.Unlock()
}

func applyIndexOp(shared *indexcache.IndexCache, op IndexOp) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[txcache] CacheApplyWarning: index op %v panicked: %v; skipped", op.Kind, r)
		}
	}()
	switch op.Kind {
	case OpAdd, OpUpdate:
		shared.Add(op.Record)
	case OpRemove:
		shared.Remove(op.PK)
	}
}

func (t *TxIndexCache) pendingFor(pk entitycore.PrimaryKey) (IndexOp, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.journal) - 1; i >= 0; i-- {
		if t.journal[i].key() == pk {
			return t.journal[i], true
		}
	}
	return IndexOp{}, false
}

func (t *TxIndexCache) latestPerKey() map[entitycore.PrimaryKey]IndexOp {
	t.mu.Lock()
	defer t.mu.Unlock()
	latest := make(map[entitycore.PrimaryKey]IndexOp, len(t.journal))
	for _, op := range t.journal {
		latest[op.key()] = op
	}
	return latest
}

// --- Main cache staging --------------------------------------------------

// MainOp is one staged mutation against a MainCache[T].
type MainOp[T any] struct {
	Kind  OpKind
	PK    entitycore.PrimaryKey
	Value T
}

// TxMainCache stages Add/Update/Remove against a shared *maincache.MainCache[T].
type TxMainCache[T any] struct {
	shared *maincache.MainCache[T]

	mu      sync.Mutex
	journal []MainOp[T]
}

// NewTxMainCache binds a new per-transaction staging layer to shared.
func NewTxMainCache[T any](shared *maincache.MainCache[T]) *TxMainCache[T] {
	return &TxMainCache[T]{shared: shared}
}

func (t *TxMainCache[T]) Add(pk entitycore.PrimaryKey, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = append(t.journal, MainOp[T]{Kind: OpAdd, PK: pk, Value: v})
}

func (t *TxMainCache[T]) Update(pk entitycore.PrimaryKey, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = append(t.journal, MainOp[T]{Kind: OpUpdate, PK: pk, Value: v})
}

func (t *TxMainCache[T]) Remove(pk entitycore.PrimaryKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = append(t.journal, MainOp[T]{Kind: OpRemove, PK: pk})
}

// Get returns the merged view: pending journal state for pk if staged,
// else the shared cache's current state. Consulting the journal does not
// itself affect the shared cache's LRU recency or statistics.
func (t *TxMainCache[T]) Get(pk entitycore.PrimaryKey) (T, bool) {
	if op, ok := t.pendingFor(pk); ok {
		var zero T
		if op.Kind == OpRemove {
			return zero, false
		}
		return op.Value, true
	}
	return t.shared.Get(pk)
}

// Contains is the merged-view existence check.
func (t *TxMainCache[T]) Contains(pk entitycore.PrimaryKey) bool {
	if op, ok := t.pendingFor(pk); ok {
		return op.Kind != OpRemove
	}
	return t.shared.Contains(pk)
}

// OnCommit replays the journal against the shared cache in order and
// clears it.
func (t *TxMainCache[T]) OnCommit() {
	t.mu.Lock()
	journal := t.journal
	t.journal = nil
	t.mu.Unlock()

	for _, op := range journal {
		applyMainOp(t.shared, op)
	}
}

// OnRollback discards the journal without touching the shared cache.
func (t *TxMainCache[T]) OnRollback() {
	t.mu.Lock()
	t.journal = nil
	t.mu.Unlock()
}

func applyMainOp[T any](shared *maincache.MainCache[T], op MainOp[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[txcache] CacheApplyWarning: main op %v panicked: %v; skipped", op.Kind, r)
		}
	}()
	switch op.Kind {
	case OpAdd, OpUpdate:
		shared.Insert(op.PK, op.Value)
	case OpRemove:
		shared.Remove(op.PK)
	}
}

func (t *TxMainCache[T]) pendingFor(pk entitycore.PrimaryKey) (MainOp[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.journal) - 1; i >= 0; i-- {
		if t.journal[i].PK == pk {
			return t.journal[i], true
		}
	}
	return MainOp[T]{}, false
}
