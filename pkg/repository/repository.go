// Package repository implements RepositoryRuntime (spec.md component C7):
// the uniform façade over one entity kind's AuditEngine and tx-aware
// caches, plus the module-scoped Factory that owns the shared,
// process-wide IndexCache/MainCache instances (spec.md §9's "shared
// ownership of caches by the factory, longest-lived holder; repositories
// hold back-references, never ownership").
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/redis/go-redis/v9"

	"github.com/jecitDev/corebank/pkg/auditengine"
	customvalidator "github.com/jecitDev/corebank/pkg/customValidator"
	"github.com/jecitDev/corebank/pkg/datachangelog"
	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/indexcache"
	"github.com/jecitDev/corebank/pkg/listener"
	"github.com/jecitDev/corebank/pkg/maincache"
	patchtools "github.com/jecitDev/corebank/pkg/patchTools"
	"github.com/jecitDev/corebank/pkg/repoerrors"
	"github.com/jecitDev/corebank/pkg/txcache"
	"github.com/jecitDev/corebank/pkg/txsession"
)

// Factory owns the shared caches for one entity kind and builds a
// Repository bound to the current unit of work. Build one Factory per
// entity kind at startup and keep it for the process lifetime.
type Factory[T any] struct {
	engine     *auditengine.Engine[T]
	sharedIdx  *indexcache.IndexCache     // nil if the kind is not indexed
	sharedMain *maincache.MainCache[T]    // nil if the kind is not cacheable
}

// NewFactory builds a Factory for desc. Pass nil for sharedIdx/sharedMain
// when the entity kind is not indexed/cacheable, respectively.
func NewFactory[T any](desc auditengine.Descriptor[T], sharedIdx *indexcache.IndexCache, sharedMain *maincache.MainCache[T]) *Factory[T] {
	return &Factory[T]{
		engine:     auditengine.New(desc),
		sharedIdx:  sharedIdx,
		sharedMain: sharedMain,
	}
}

// WithComplianceSink wires sink into this factory's AuditEngine so every
// create/update/delete is mirrored to the compliance trail (spec.md
// §4.6): entityType names this kind in the mirrored record, and
// changedBy resolves the acting user at call time. A nil sink disables
// mirroring and leaves Descriptor.Mirror unset.
func (f *Factory[T]) WithComplianceSink(sink *datachangelog.Sink, entityType string, changedBy func() string) *Factory[T] {
	if sink != nil {
		f.engine.Desc.Mirror = sink.MirrorFunc(entityType, changedBy)
	}
	return f
}

// WithValidator wires v into this factory's AuditEngine so every
// create/update validates entity struct tags before any SQL runs,
// surfacing failures as repoerrors.InvalidInput (spec.md §4.7). A nil v
// leaves validation disabled.
func (f *Factory[T]) WithValidator(v *customvalidator.CustomValidator) *Factory[T] {
	if v != nil {
		f.engine.Desc.Validator = v
	}
	return f
}

// MirrorCacheStats starts a background publisher of this kind's shared
// MainCache statistics to redisClient under key, for cross-node
// dashboards (spec.md §4.3's observability-mirror addendum); it is a
// no-op if the kind has no shared MainCache. Run it in its own
// goroutine; it blocks until ctx is done.
func (f *Factory[T]) MirrorCacheStats(ctx context.Context, redisClient *redis.Client, key string, interval time.Duration) {
	if f.sharedMain == nil {
		return
	}
	maincache.MirrorStats(ctx, f.sharedMain, redisClient, key, interval)
}

// RegisterListenerHandlers wires this kind's {table}_idx and {table}
// channels onto l, so that the shared caches stay in sync with
// out-of-band writes and with other nodes (spec.md §4.5).
func (f *Factory[T]) RegisterListenerHandlers(
	l *listener.Listener,
	idxTable, mainTable string,
	decodeIndex func(json.RawMessage) (entitycore.IndexRecord, error),
	decodeMain func(json.RawMessage) (T, error),
) {
	if f.sharedIdx != nil && idxTable != "" {
		l.RegisterHandler(idxTable, listener.IndexCacheHandler{Cache: f.sharedIdx, Decode: decodeIndex})
	}
	if f.sharedMain != nil && mainTable != "" {
		l.RegisterHandler(mainTable, listener.MainCacheHandler[T]{Cache: f.sharedMain, Decode: decodeMain})
	}
}

// New builds a Repository using session's executor and this factory's
// shared caches, and registers it with session so its staged cache
// mutations are applied/discarded on commit/rollback.
func (f *Factory[T]) New(session txsession.UnitOfWorkSession) *Repository[T] {
	r := &Repository[T]{
		engine: f.engine,
		exec:   session.Executor(),
	}
	if f.sharedIdx != nil {
		r.txIdx = txcache.NewTxIndexCache(f.sharedIdx)
	}
	if f.sharedMain != nil {
		r.txMain = txcache.NewTxMainCache(f.sharedMain)
	}
	session.Register(r)
	return r
}

// Repository is the uniform façade over one entity kind for the
// lifetime of a single unit of work.
type Repository[T any] struct {
	engine *auditengine.Engine[T]
	exec   txsession.Executor
	txIdx  *txcache.TxIndexCache
	txMain *txcache.TxMainCache[T]
}

// OnCommit implements txsession.Participant.
func (r *Repository[T]) OnCommit() {
	if r.txIdx != nil {
		r.txIdx.OnCommit()
	}
	if r.txMain != nil {
		r.txMain.OnCommit()
	}
}

// OnRollback implements txsession.Participant.
func (r *Repository[T]) OnRollback() {
	if r.txIdx != nil {
		r.txIdx.OnRollback()
	}
	if r.txMain != nil {
		r.txMain.OnRollback()
	}
}

// CreateBatch implements the create_batch operation.
func (r *Repository[T]) CreateBatch(ctx context.Context, entities []T, callerAuditLogID uuid.UUID) ([]T, error) {
	return r.engine.CreateBatch(ctx, r.exec, r.txIdx, r.txMain, entities, callerAuditLogID)
}

// LoadBatch implements the load_batch operation.
func (r *Repository[T]) LoadBatch(ctx context.Context, pks []entitycore.PrimaryKey) ([]*T, error) {
	return r.engine.LoadBatch(ctx, r.exec, r.txMain, pks)
}

// UpdateBatch implements the update_batch operation.
func (r *Repository[T]) UpdateBatch(ctx context.Context, entities []T, callerAuditLogID uuid.UUID) ([]T, error) {
	return r.engine.UpdateBatch(ctx, r.exec, r.txIdx, r.txMain, entities, callerAuditLogID)
}

// DeleteBatch implements the delete_batch operation.
func (r *Repository[T]) DeleteBatch(ctx context.Context, pks []entitycore.PrimaryKey, callerAuditLogID uuid.UUID) (int, error) {
	return r.engine.DeleteBatch(ctx, r.exec, r.txIdx, r.txMain, pks, callerAuditLogID)
}

// ExistByIds implements the exist_by_ids operation.
func (r *Repository[T]) ExistByIds(ctx context.Context, pks []entitycore.PrimaryKey) ([]auditengine.Existence, error) {
	return r.engine.ExistByIds(ctx, r.exec, r.txIdx, pks)
}

// LoadAudits implements the load_audits operation.
func (r *Repository[T]) LoadAudits(ctx context.Context, pk entitycore.PrimaryKey, limit, offset int) (auditengine.AuditPage[T], error) {
	return r.engine.LoadAudits(ctx, r.exec, pk, limit, offset)
}

// FindByI64Index implements find_by_<secondary_key> for an i64-kind key.
func (r *Repository[T]) FindByI64Index(keyName string, value int64) ([]entitycore.IndexRecord, error) {
	if r.txIdx == nil {
		return nil, repoerrors.New(repoerrors.InvalidInput, "entity kind is not indexed")
	}
	return r.txIdx.GetByI64Index(keyName, value), nil
}

// FindByUUIDIndex implements find_by_<secondary_key> for a UUID-kind key.
func (r *Repository[T]) FindByUUIDIndex(keyName string, value uuid.UUID) ([]entitycore.IndexRecord, error) {
	if r.txIdx == nil {
		return nil, repoerrors.New(repoerrors.InvalidInput, "entity kind is not indexed")
	}
	return r.txIdx.GetByUUIDIndex(keyName, value), nil
}

// ApplyPatch applies a sparse set of field/value pairs (e.g. from a PATCH
// request body) onto existing, producing the updated entity UpdateBatch
// expects. existing is copied; the caller is still responsible for
// resolving patch.Field names against the entity's json tags and for
// calling UpdateBatch with the result.
func ApplyPatch[T any](existing T, patch []patchtools.Data) (T, error) {
	updated := existing
	if err := patchtools.PopulateStruct(patch, &updated); err != nil {
		return existing, repoerrors.Wrap(repoerrors.InvalidInput, "apply patch", err)
	}
	return updated, nil
}
