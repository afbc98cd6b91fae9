package listener

import (
	"encoding/json"
	"fmt"

	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/indexcache"
	"github.com/jecitDev/corebank/pkg/maincache"
)

// IndexCacheHandler applies {table}_idx channel events to a shared
// IndexCache. decode turns a raw insert/update payload into an
// IndexRecord; delete events only need Event.PK.
type IndexCacheHandler struct {
	Cache  *indexcache.IndexCache
	Decode func(payload json.RawMessage) (entitycore.IndexRecord, error)
}

func (h IndexCacheHandler) Apply(ev Event) error {
	pk, err := entitycore.ParsePrimaryKey(ev.PK)
	if err != nil {
		return fmt.Errorf("listener: index handler: bad primary key %q: %w", ev.PK, err)
	}

	switch ev.Op {
	case OpInsert, OpUpdate:
		rec, err := h.Decode(ev.Payload)
		if err != nil {
			return fmt.Errorf("listener: index handler: decode: %w", err)
		}
		rec.PrimaryKey = pk
		h.Cache.Add(rec)
	case OpDelete:
		h.Cache.Remove(pk)
	default:
		return fmt.Errorf("listener: index handler: unknown op %q", ev.Op)
	}
	return nil
}

// MainCacheHandler applies {table} channel events to a shared
// MainCache[T]. decode turns a raw insert/update payload into a full
// entity record.
type MainCacheHandler[T any] struct {
	Cache  *maincache.MainCache[T]
	Decode func(payload json.RawMessage) (T, error)
}

func (h MainCacheHandler[T]) Apply(ev Event) error {
	pk, err := entitycore.ParsePrimaryKey(ev.PK)
	if err != nil {
		return fmt.Errorf("listener: main handler: bad primary key %q: %w", ev.PK, err)
	}

	switch ev.Op {
	case OpInsert, OpUpdate:
		v, err := h.Decode(ev.Payload)
		if err != nil {
			return fmt.Errorf("listener: main handler: decode: %w", err)
		}
		h.Cache.Insert(pk, v)
	case OpDelete:
		h.Cache.Remove(pk)
	default:
		return fmt.Errorf("listener: main handler: unknown op %q", ev.Op)
	}
	return nil
}
