package maincache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID      uuid.UUID
	Balance int64
}

func TestMainCache_InsertGetHitMiss(t *testing.T) {
	c := New[account](Config{MaxEntries: 10, EvictionPolicy: LRU})
	pk := uuid.New()

	_, ok := c.Get(pk)
	assert.False(t, ok)

	c.Insert(pk, account{ID: pk, Balance: 10})
	got, ok := c.Get(pk)
	require.True(t, ok)
	assert.Equal(t, int64(10), got.Balance)

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestMainCache_RemoveIdempotent(t *testing.T) {
	c := New[account](Config{MaxEntries: 10, EvictionPolicy: LRU})
	pk := uuid.New()
	c.Insert(pk, account{ID: pk})
	c.Remove(pk)
	c.Remove(pk) // idempotent, must not panic
	_, ok := c.Get(pk)
	assert.False(t, ok)
}

func TestMainCache_ContainsDoesNotAffectStats(t *testing.T) {
	c := New[account](Config{MaxEntries: 10, EvictionPolicy: LRU})
	pk := uuid.New()
	c.Insert(pk, account{ID: pk})

	assert.True(t, c.Contains(pk))
	assert.False(t, c.Contains(uuid.New()))

	stats := c.Statistics()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
}

func TestMainCache_LRUEvictsLeastRecentlyAccessed(t *testing.T) {
	c := New[account](Config{MaxEntries: 2, EvictionPolicy: LRU})
	a, b, d := uuid.New(), uuid.New(), uuid.New()
	c.Insert(a, account{ID: a})
	c.Insert(b, account{ID: b})

	_, _ = c.Get(a) // touch a so b becomes the LRU victim

	c.Insert(d, account{ID: d})

	assert.True(t, c.Contains(a))
	assert.False(t, c.Contains(b))
	assert.True(t, c.Contains(d))
	assert.Equal(t, int64(1), c.Statistics().Evictions)
}

func TestMainCache_FIFOEvictsLeastRecentlyInserted(t *testing.T) {
	c := New[account](Config{MaxEntries: 2, EvictionPolicy: FIFO})
	a, b, d := uuid.New(), uuid.New(), uuid.New()
	c.Insert(a, account{ID: a})
	c.Insert(b, account{ID: b})

	_, _ = c.Get(a) // FIFO: access must not change eviction order

	c.Insert(d, account{ID: d})

	assert.False(t, c.Contains(a), "FIFO evicts by insertion order regardless of access")
	assert.True(t, c.Contains(b))
	assert.True(t, c.Contains(d))
}

func TestMainCache_TTLExpiryCountsAsInvalidationNotEviction(t *testing.T) {
	c := New[account](Config{MaxEntries: 10, EvictionPolicy: LRU, TTL: time.Millisecond})
	pk := uuid.New()
	c.Insert(pk, account{ID: pk})

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(pk)
	assert.False(t, ok)

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Invalidations)
	assert.Zero(t, stats.Evictions)
}

func TestMainCache_ZeroCapacityEvictsImmediatelyAndAlwaysMisses(t *testing.T) {
	c := New[account](Config{MaxEntries: 0, EvictionPolicy: LRU})
	pk := uuid.New()

	c.Insert(pk, account{ID: pk})
	_, ok := c.Get(pk)
	assert.False(t, ok)

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 0, stats.Size)
}

func TestMainCache_UpdateIsReplace(t *testing.T) {
	c := New[account](Config{MaxEntries: 10, EvictionPolicy: LRU})
	pk := uuid.New()
	c.Insert(pk, account{ID: pk, Balance: 1})
	c.Update(pk, account{ID: pk, Balance: 2})

	got, ok := c.Get(pk)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Balance)
	assert.Equal(t, 1, c.Statistics().Size)
}
