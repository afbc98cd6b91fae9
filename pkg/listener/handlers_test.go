package listener

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/indexcache"
	"github.com/jecitDev/corebank/pkg/maincache"
)

type accountPayload struct {
	NameHash int64 `json:"name_hash"`
}

func TestIndexCacheHandler_InsertThenDelete(t *testing.T) {
	cache := indexcache.New()
	h := IndexCacheHandler{
		Cache: cache,
		Decode: func(payload json.RawMessage) (entitycore.IndexRecord, error) {
			var p accountPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return entitycore.IndexRecord{}, err
			}
			return entitycore.IndexRecord{I64Keys: map[string]*int64{"name_hash": &p.NameHash}}, nil
		},
	}

	pk := uuid.New()
	payload, err := json.Marshal(accountPayload{NameHash: 42})
	require.NoError(t, err)

	require.NoError(t, h.Apply(Event{Op: OpInsert, PK: pk.String(), Payload: payload}))
	assert.True(t, cache.ContainsPrimary(pk))

	require.NoError(t, h.Apply(Event{Op: OpDelete, PK: pk.String()}))
	assert.False(t, cache.ContainsPrimary(pk))
}

func TestIndexCacheHandler_BadPrimaryKeyIsError(t *testing.T) {
	h := IndexCacheHandler{Cache: indexcache.New()}
	err := h.Apply(Event{Op: OpDelete, PK: "not-a-uuid"})
	assert.Error(t, err)
}

type balance struct {
	Amount int64
}

func TestMainCacheHandler_InsertThenDelete(t *testing.T) {
	cache := maincache.New[balance](maincache.Config{MaxEntries: 10, EvictionPolicy: maincache.LRU})
	h := MainCacheHandler[balance]{
		Cache: cache,
		Decode: func(payload json.RawMessage) (balance, error) {
			var b balance
			err := json.Unmarshal(payload, &b)
			return b, err
		},
	}

	pk := uuid.New()
	payload, err := json.Marshal(balance{Amount: 500})
	require.NoError(t, err)

	require.NoError(t, h.Apply(Event{Op: OpUpdate, PK: pk.String(), Payload: payload}))
	got, ok := cache.Get(pk)
	require.True(t, ok)
	assert.Equal(t, int64(500), got.Amount)

	require.NoError(t, h.Apply(Event{Op: OpDelete, PK: pk.String()}))
	assert.False(t, cache.Contains(pk))
}
