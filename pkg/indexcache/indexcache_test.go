package indexcache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/entitycore"
)

func idxRecord(pk entitycore.PrimaryKey, nameHash int64, ownerID *uuid.UUID) entitycore.IndexRecord {
	r := entitycore.IndexRecord{
		PrimaryKey: pk,
		I64Keys:    map[string]*int64{"name_hash": &nameHash},
		UUIDKeys:   map[string]*uuid.UUID{},
	}
	if ownerID != nil {
		r.UUIDKeys["owner_id"] = ownerID
	}
	return r
}

func TestIndexCache_AddGetRemove(t *testing.T) {
	c := New()
	pk := uuid.New()
	r := idxRecord(pk, 42, nil)

	c.Add(r)
	assert.True(t, c.ContainsPrimary(pk))
	got, ok := c.GetByPrimary(pk)
	require.True(t, ok)
	assert.Equal(t, pk, got.PrimaryKey)

	matches := c.GetByI64Index("name_hash", 42)
	require.Len(t, matches, 1)
	assert.Equal(t, pk, matches[0].PrimaryKey)

	removed, ok := c.Remove(pk)
	require.True(t, ok)
	assert.Equal(t, pk, removed.PrimaryKey)
	assert.False(t, c.ContainsPrimary(pk))
	assert.Empty(t, c.GetByI64Index("name_hash", 42))
}

func TestIndexCache_ReplaceDropsStaleSecondaryEntries(t *testing.T) {
	c := New()
	pk := uuid.New()
	c.Add(idxRecord(pk, 1, nil))
	c.Add(idxRecord(pk, 2, nil))

	assert.Empty(t, c.GetByI64Index("name_hash", 1))
	matches := c.GetByI64Index("name_hash", 2)
	require.Len(t, matches, 1)
	assert.Equal(t, pk, matches[0].PrimaryKey)
	assert.Equal(t, 1, c.Len())
}

func TestIndexCache_SharedSecondaryValueAcrossReplace(t *testing.T) {
	// Edge case from spec.md §4.2: old and new index records sharing a
	// secondary-key value must still end up correctly indexed exactly once.
	c := New()
	pk := uuid.New()
	c.Add(idxRecord(pk, 7, nil))
	c.Add(idxRecord(pk, 7, nil))

	matches := c.GetByI64Index("name_hash", 7)
	require.Len(t, matches, 1)
}

func TestIndexCache_NilSecondaryValueNotIndexed(t *testing.T) {
	c := New()
	pk := uuid.New()
	r := entitycore.IndexRecord{
		PrimaryKey: pk,
		I64Keys:    map[string]*int64{"name_hash": nil},
		UUIDKeys:   map[string]*uuid.UUID{},
	}
	c.Add(r)
	assert.Empty(t, c.GetByI64Index("name_hash", 0))
}

func TestIndexCache_UUIDSecondaryIndex(t *testing.T) {
	c := New()
	pk := uuid.New()
	owner := uuid.New()
	c.Add(idxRecord(pk, 1, &owner))

	matches := c.GetByUUIDIndex("owner_id", owner)
	require.Len(t, matches, 1)
	assert.Equal(t, pk, matches[0].PrimaryKey)
}

func TestIndexCache_RemoveUnknownIsNoop(t *testing.T) {
	c := New()
	_, ok := c.Remove(uuid.New())
	assert.False(t, ok)
}
