package txcache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/indexcache"
	"github.com/jecitDev/corebank/pkg/maincache"
)

func idxRecord(pk entitycore.PrimaryKey, nameHash int64) entitycore.IndexRecord {
	return entitycore.IndexRecord{
		PrimaryKey: pk,
		I64Keys:    map[string]*int64{"name_hash": &nameHash},
		UUIDKeys:   map[string]*uuid.UUID{},
	}
}

func TestTxIndexCache_AddIsInvisibleToSharedBeforeCommit(t *testing.T) {
	shared := indexcache.New()
	tx := NewTxIndexCache(shared)

	pk := uuid.New()
	tx.Add(idxRecord(pk, 1))

	assert.False(t, shared.ContainsPrimary(pk))
	_, ok := shared.GetByPrimary(pk)
	assert.False(t, ok)
}

func TestTxIndexCache_GetByPrimaryMergesPendingAdd(t *testing.T) {
	shared := indexcache.New()
	tx := NewTxIndexCache(shared)

	pk := uuid.New()
	tx.Add(idxRecord(pk, 1))

	got, ok := tx.GetByPrimary(pk)
	require.True(t, ok)
	assert.Equal(t, pk, got.PrimaryKey)
}

func TestTxIndexCache_PendingRemoveHidesSharedRecord(t *testing.T) {
	shared := indexcache.New()
	pk := uuid.New()
	shared.Add(idxRecord(pk, 1))

	tx := NewTxIndexCache(shared)
	tx.Remove(pk)

	_, ok := tx.GetByPrimary(pk)
	assert.False(t, ok)
	assert.True(t, shared.ContainsPrimary(pk), "shared cache untouched until commit")
}

func TestTxIndexCache_OnCommitReplaysJournalInOrder(t *testing.T) {
	shared := indexcache.New()
	tx := NewTxIndexCache(shared)

	pk := uuid.New()
	tx.Add(idxRecord(pk, 1))
	tx.Update(idxRecord(pk, 2))

	tx.OnCommit()

	assert.Empty(t, shared.GetByI64Index("name_hash", 1))
	matches := shared.GetByI64Index("name_hash", 2)
	require.Len(t, matches, 1)
	assert.Equal(t, pk, matches[0].PrimaryKey)
}

func TestTxIndexCache_OnRollbackDiscardsJournal(t *testing.T) {
	shared := indexcache.New()
	tx := NewTxIndexCache(shared)

	pk := uuid.New()
	tx.Add(idxRecord(pk, 1))
	tx.OnRollback()

	assert.False(t, shared.ContainsPrimary(pk))
	// a later commit after rollback must be a no-op: journal was cleared.
	tx.OnCommit()
	assert.False(t, shared.ContainsPrimary(pk))
}

func TestTxIndexCache_GetByI64IndexOverlaysPendingRemove(t *testing.T) {
	shared := indexcache.New()
	pk := uuid.New()
	shared.Add(idxRecord(pk, 5))

	tx := NewTxIndexCache(shared)
	tx.Remove(pk)

	assert.Empty(t, tx.GetByI64Index("name_hash", 5))
}

func TestTxIndexCache_GetByI64IndexOverlaysPendingAdd(t *testing.T) {
	shared := indexcache.New()
	tx := NewTxIndexCache(shared)

	pk := uuid.New()
	tx.Add(idxRecord(pk, 9))

	matches := tx.GetByI64Index("name_hash", 9)
	require.Len(t, matches, 1)
	assert.Equal(t, pk, matches[0].PrimaryKey)
}

func TestTxMainCache_StagedUpdateMergedOverShared(t *testing.T) {
	shared := maincache.New[int](maincache.Config{MaxEntries: 10, EvictionPolicy: maincache.LRU})
	pk := uuid.New()
	shared.Insert(pk, 1)

	tx := NewTxMainCache(shared)
	tx.Update(pk, 2)

	got, ok := tx.Get(pk)
	require.True(t, ok)
	assert.Equal(t, 2, got)

	sharedGot, _ := shared.Get(pk)
	assert.Equal(t, 1, sharedGot, "shared cache untouched until commit")
}

func TestTxMainCache_OnCommitAppliesStagedRemove(t *testing.T) {
	shared := maincache.New[int](maincache.Config{MaxEntries: 10, EvictionPolicy: maincache.LRU})
	pk := uuid.New()
	shared.Insert(pk, 1)

	tx := NewTxMainCache(shared)
	tx.Remove(pk)
	tx.OnCommit()

	assert.False(t, shared.Contains(pk))
}

func TestTxMainCache_OnRollbackLeavesSharedUntouched(t *testing.T) {
	shared := maincache.New[int](maincache.Config{MaxEntries: 10, EvictionPolicy: maincache.LRU})
	pk := uuid.New()

	tx := NewTxMainCache(shared)
	tx.Add(pk, 7)
	tx.OnRollback()

	assert.False(t, shared.Contains(pk))
	_, ok := tx.Get(pk)
	assert.False(t, ok)
}

func TestTxMainCache_ContainsReflectsPendingState(t *testing.T) {
	shared := maincache.New[int](maincache.Config{MaxEntries: 10, EvictionPolicy: maincache.LRU})
	tx := NewTxMainCache(shared)

	pk := uuid.New()
	assert.False(t, tx.Contains(pk))
	tx.Add(pk, 1)
	assert.True(t, tx.Contains(pk))
	tx.Remove(pk)
	assert.False(t, tx.Contains(pk))
}
