// Package auditengine implements the hash-chain write protocol (spec.md
// component C6, §4.6): create/update/delete/load/load-audits/exist-by-ids
// over one entity kind, enforcing invariants I1-I6 via ordered SQL and
// the change-detection gate.
//
// Column lists and statement text are entity-specific and supplied by the
// caller as a Descriptor — the "single descriptor value per kind" design
// note in spec.md §9, expressed here as plain SQL text plus small
// accessor closures rather than a generated/reflected schema, since Go
// has no compile-time struct-to-column mapping outside what
// github.com/jmoiron/sqlx already buys us for reads (struct scanning via
// `db` tags, used below for every multi-row SELECT).
package auditengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	customvalidator "github.com/jecitDev/corebank/pkg/customValidator"
	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/entityhash"
	"github.com/jecitDev/corebank/pkg/repoerrors"
	"github.com/jecitDev/corebank/pkg/txcache"
	"github.com/jecitDev/corebank/pkg/txsession"
)

// Descriptor binds the write protocol to one entity kind T.
type Descriptor[T any] struct {
	Table      string
	AuditTable string
	IdxTable   string // empty if T is not indexed
	EntityType string // audit_link.entity_type value

	PK       func(e T) entitycore.PrimaryKey
	Audit    func(e T) entitycore.AuditFields
	SetAudit func(e *T, af entitycore.AuditFields)
	Index    func(e T) entitycore.IndexRecord // nil if T is not indexed

	InsertMainSQL  string
	InsertMainArgs func(e T) []interface{}

	InsertAuditSQL  string
	InsertAuditArgs func(e T) []interface{}

	// UpdateMainSQL must guard on (hash, audit_log_id); UpdateMainArgs
	// supplies the previous values for that guard alongside the new
	// field values, in the order the SQL text expects.
	UpdateMainSQL  string
	UpdateMainArgs func(e T, previousHash int64, previousAuditLogID uuid.UUID) []interface{}

	DeleteMainSQL string // "DELETE FROM t WHERE id = $1"

	InsertIdxSQL  string
	InsertIdxArgs func(idx entitycore.IndexRecord) []interface{}

	SelectMainByIDsSQL string // dest []T; arg: pq.Array(ids as text)
	SelectAuditPageSQL string // dest []T; args: id, limit, offset
	CountAuditSQL      string // dest *int64; arg: id
	SelectExistSQL     string // dest []string (ids); arg: pq.Array(ids as text)

	// Mirror, if set, is called after a successful create/update/delete
	// to feed a best-effort compliance sink (pkg/datachangelog.Sink). It
	// must not block; a nil Mirror disables mirroring entirely.
	Mirror func(op string, pk string, af entitycore.AuditFields)

	// Validator, if set, runs go-playground/validator struct-tag checks
	// over the caller-supplied entity before create/update proceed to
	// hashing and SQL; a failure surfaces as repoerrors.InvalidInput
	// instead of reaching the database. A nil Validator skips this step.
	Validator *customvalidator.CustomValidator
}

func (d Descriptor[T]) indexed() bool { return d.IdxTable != "" }

// Engine runs the write protocol for one entity kind. Stateless across
// transactions: every method takes the executor and tx-aware caches for
// the transaction it is operating under.
type Engine[T any] struct {
	Desc Descriptor[T]
}

// New builds an Engine for desc.
func New[T any](desc Descriptor[T]) *Engine[T] {
	return &Engine[T]{Desc: desc}
}

func pkStrings(pks []entitycore.PrimaryKey) []string {
	out := make([]string, len(pks))
	for i, pk := range pks {
		out[i] = pk.String()
	}
	return out
}

// CreateBatch runs the create path for each entity in order, staging
// cache mutations into txIdx/txMain (either may be nil when the kind is
// not indexed/cacheable).
func (e *Engine[T]) CreateBatch(
	ctx context.Context,
	exec txsession.Executor,
	txIdx *txcache.TxIndexCache,
	txMain *txcache.TxMainCache[T],
	entities []T,
	callerAuditLogID uuid.UUID,
) ([]T, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	out := make([]T, len(entities))
	for i, entity := range entities {
		result, err := e.create(ctx, exec, txIdx, txMain, entity, callerAuditLogID)
		if err != nil {
			return nil, err
		}
		out[i] = result
	}
	return out, nil
}

func (e *Engine[T]) create(
	ctx context.Context,
	exec txsession.Executor,
	txIdx *txcache.TxIndexCache,
	txMain *txcache.TxMainCache[T],
	entity T,
	callerAuditLogID uuid.UUID,
) (T, error) {
	var zero T
	d := e.Desc

	if d.Validator != nil {
		if err := d.Validator.ValidateEntity(entity); err != nil {
			return zero, err
		}
	}

	d.SetAudit(&entity, entitycore.AuditFields{
		Hash:                 0,
		AuditLogID:           &callerAuditLogID,
		AntecedentHash:       0,
		AntecedentAuditLogID: uuid.Nil,
	})

	h, err := entityhash.Hash(entity)
	if err != nil {
		return zero, repoerrors.Wrap(repoerrors.EncodingError, "create: hash entity", err)
	}
	af := d.Audit(entity)
	af.Hash = h
	d.SetAudit(&entity, af)

	if _, err := exec.ExecContext(ctx, d.InsertAuditSQL, d.InsertAuditArgs(entity)...); err != nil {
		return zero, repoerrors.Wrap(repoerrors.DatabaseError, "create: insert audit row", err)
	}
	if _, err := exec.ExecContext(ctx, d.InsertMainSQL, d.InsertMainArgs(entity)...); err != nil {
		return zero, repoerrors.Wrap(repoerrors.DatabaseError, "create: insert main row", err)
	}

	var idx entitycore.IndexRecord
	if d.indexed() {
		idx = d.Index(entity)
		if _, err := exec.ExecContext(ctx, d.InsertIdxSQL, d.InsertIdxArgs(idx)...); err != nil {
			return zero, repoerrors.Wrap(repoerrors.DatabaseError, "create: insert index row", err)
		}
	}

	if err := insertAuditLink(ctx, exec, callerAuditLogID, d.PK(entity), d.EntityType); err != nil {
		return zero, err
	}

	if d.indexed() && txIdx != nil {
		txIdx.Add(idx)
	}
	if txMain != nil {
		txMain.Add(d.PK(entity), entity)
	}

	if d.Mirror != nil {
		d.Mirror("CREATE", d.PK(entity).String(), af)
	}

	return entity, nil
}

// UpdateBatch runs the update path (including the change-detection gate)
// for each entity in order.
func (e *Engine[T]) UpdateBatch(
	ctx context.Context,
	exec txsession.Executor,
	txIdx *txcache.TxIndexCache,
	txMain *txcache.TxMainCache[T],
	entities []T,
	callerAuditLogID uuid.UUID,
) ([]T, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	out := make([]T, len(entities))
	for i, entity := range entities {
		result, err := e.update(ctx, exec, txIdx, txMain, entity, callerAuditLogID)
		if err != nil {
			return nil, err
		}
		out[i] = result
	}
	return out, nil
}

func (e *Engine[T]) update(
	ctx context.Context,
	exec txsession.Executor,
	txIdx *txcache.TxIndexCache,
	txMain *txcache.TxMainCache[T],
	entity T,
	callerAuditLogID uuid.UUID,
) (T, error) {
	var zero T
	d := e.Desc

	if d.Validator != nil {
		if err := d.Validator.ValidateEntity(entity); err != nil {
			return zero, err
		}
	}

	previous := d.Audit(entity)
	if previous.AuditLogID == nil {
		return zero, repoerrors.New(repoerrors.InvalidInput, "update: input record has no audit_log_id")
	}
	previousHash := previous.Hash
	previousAuditLogID := *previous.AuditLogID

	candidate := entity
	d.SetAudit(&candidate, entitycore.AuditFields{
		Hash:                 0,
		AuditLogID:           previous.AuditLogID,
		AntecedentHash:       previous.AntecedentHash,
		AntecedentAuditLogID: previous.AntecedentAuditLogID,
	})
	candidateHash, err := entityhash.Hash(candidate)
	if err != nil {
		return zero, repoerrors.Wrap(repoerrors.EncodingError, "update: hash candidate", err)
	}
	if candidateHash == previousHash {
		return entity, nil // change-detection gate: no-op update
	}

	d.SetAudit(&entity, entitycore.AuditFields{
		Hash:                 0,
		AuditLogID:           &callerAuditLogID,
		AntecedentHash:       previousHash,
		AntecedentAuditLogID: previousAuditLogID,
	})
	finalHash, err := entityhash.Hash(entity)
	if err != nil {
		return zero, repoerrors.Wrap(repoerrors.EncodingError, "update: hash final", err)
	}
	af := d.Audit(entity)
	af.Hash = finalHash
	d.SetAudit(&entity, af)

	if _, err := exec.ExecContext(ctx, d.InsertAuditSQL, d.InsertAuditArgs(entity)...); err != nil {
		return zero, repoerrors.Wrap(repoerrors.DatabaseError, "update: insert audit row", err)
	}

	res, err := exec.ExecContext(ctx, d.UpdateMainSQL, d.UpdateMainArgs(entity, previousHash, previousAuditLogID)...)
	if err != nil {
		return zero, repoerrors.Wrap(repoerrors.DatabaseError, "update: guarded update", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return zero, repoerrors.Wrap(repoerrors.DatabaseError, "update: rows affected", err)
	}
	if rows == 0 {
		return zero, repoerrors.New(repoerrors.ConcurrentUpdate, "update: guarded update affected zero rows")
	}

	if err := insertAuditLink(ctx, exec, callerAuditLogID, d.PK(entity), d.EntityType); err != nil {
		return zero, err
	}

	if d.indexed() && txIdx != nil {
		txIdx.Update(d.Index(entity))
	}
	if txMain != nil {
		txMain.Update(d.PK(entity), entity)
	}

	if d.Mirror != nil {
		d.Mirror("UPDATE", d.PK(entity).String(), af)
	}

	return entity, nil
}

// DeleteBatch runs the delete path for each live entity among pks and
// returns the number of rows removed.
func (e *Engine[T]) DeleteBatch(
	ctx context.Context,
	exec txsession.Executor,
	txIdx *txcache.TxIndexCache,
	txMain *txcache.TxMainCache[T],
	pks []entitycore.PrimaryKey,
	callerAuditLogID uuid.UUID,
) (int, error) {
	if len(pks) == 0 {
		return 0, nil
	}
	d := e.Desc

	var live []T
	if err := exec.SelectContext(ctx, &live, d.SelectMainByIDsSQL, pq.Array(pkStrings(pks))); err != nil {
		return 0, repoerrors.Wrap(repoerrors.DatabaseError, "delete: load live rows", err)
	}

	for _, entity := range live {
		af := d.Audit(entity)
		if af.AuditLogID == nil {
			return 0, repoerrors.New(repoerrors.InvalidInput, "delete: live record has no audit_log_id")
		}
		pk := d.PK(entity)

		finalEntity := entity
		d.SetAudit(&finalEntity, entitycore.AuditFields{
			Hash:                 0,
			AuditLogID:           &callerAuditLogID,
			AntecedentHash:       af.Hash,
			AntecedentAuditLogID: *af.AuditLogID,
		})
		h, err := entityhash.Hash(finalEntity)
		if err != nil {
			return 0, repoerrors.Wrap(repoerrors.EncodingError, "delete: hash final audit record", err)
		}
		finalAf := d.Audit(finalEntity)
		finalAf.Hash = h
		d.SetAudit(&finalEntity, finalAf)

		if _, err := exec.ExecContext(ctx, d.InsertAuditSQL, d.InsertAuditArgs(finalEntity)...); err != nil {
			return 0, repoerrors.Wrap(repoerrors.DatabaseError, "delete: insert final audit row", err)
		}
		if _, err := exec.ExecContext(ctx, d.DeleteMainSQL, pk); err != nil {
			return 0, repoerrors.Wrap(repoerrors.DatabaseError, "delete: delete main row", err)
		}
		if err := insertAuditLink(ctx, exec, callerAuditLogID, pk, d.EntityType); err != nil {
			return 0, err
		}

		if d.indexed() && txIdx != nil {
			txIdx.Remove(pk)
		}
		if txMain != nil {
			txMain.Remove(pk)
		}

		if d.Mirror != nil {
			d.Mirror("DELETE", pk.String(), finalAf)
		}
	}

	return len(live), nil
}

// LoadBatch returns entities positionally aligned with pks, nil where
// absent. When mainCache is non-nil, hits avoid the database and misses
// are used to warm it.
func (e *Engine[T]) LoadBatch(
	ctx context.Context,
	exec txsession.Executor,
	mainCache *txcache.TxMainCache[T],
	pks []entitycore.PrimaryKey,
) ([]*T, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	d := e.Desc

	out := make([]*T, len(pks))
	var missing []entitycore.PrimaryKey
	missingIdx := make([]int, 0, len(pks))

	for i, pk := range pks {
		if mainCache != nil {
			if v, ok := mainCache.Get(pk); ok {
				cp := v
				out[i] = &cp
				continue
			}
		}
		missing = append(missing, pk)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	var rows []T
	if err := exec.SelectContext(ctx, &rows, d.SelectMainByIDsSQL, pq.Array(pkStrings(missing))); err != nil {
		return nil, repoerrors.Wrap(repoerrors.DatabaseError, "load: select by ids", err)
	}

	byPK := make(map[entitycore.PrimaryKey]T, len(rows))
	for _, r := range rows {
		byPK[d.PK(r)] = r
	}
	for n, i := range missingIdx {
		pk := missing[n]
		if v, ok := byPK[pk]; ok {
			cp := v
			out[i] = &cp
			if mainCache != nil {
				mainCache.Add(pk, v)
			}
		}
	}
	return out, nil
}

// ExistByIds returns a slice of (pk, exists) aligned with pks' order.
type Existence struct {
	PK     entitycore.PrimaryKey
	Exists bool
}

func (e *Engine[T]) ExistByIds(
	ctx context.Context,
	exec txsession.Executor,
	txIdx *txcache.TxIndexCache,
	pks []entitycore.PrimaryKey,
) ([]Existence, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	d := e.Desc
	out := make([]Existence, len(pks))

	if d.indexed() && txIdx != nil {
		for i, pk := range pks {
			out[i] = Existence{PK: pk, Exists: txIdx.ContainsPrimary(pk)}
		}
		return out, nil
	}

	var ids []string
	if err := exec.SelectContext(ctx, &ids, d.SelectExistSQL, pq.Array(pkStrings(pks))); err != nil {
		return nil, repoerrors.Wrap(repoerrors.DatabaseError, "exist_by_ids: select", err)
	}
	present := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}
	for i, pk := range pks {
		_, ok := present[pk.String()]
		out[i] = Existence{PK: pk, Exists: ok}
	}
	return out, nil
}

// AuditPage is the paginated result of LoadAudits.
type AuditPage[T any] struct {
	Items  []T
	Total  int64
	Limit  int
	Offset int
}

// LoadAudits returns a page of audit rows for pk ordered by audit_log_id
// descending, plus the total row count.
func (e *Engine[T]) LoadAudits(
	ctx context.Context,
	exec txsession.Executor,
	pk entitycore.PrimaryKey,
	limit, offset int,
) (AuditPage[T], error) {
	d := e.Desc

	var total int64
	if err := exec.GetContext(ctx, &total, d.CountAuditSQL, pk); err != nil {
		return AuditPage[T]{}, repoerrors.Wrap(repoerrors.DatabaseError, "load_audits: count", err)
	}
	if total == 0 {
		return AuditPage[T]{Items: nil, Total: 0, Limit: limit, Offset: offset}, nil
	}

	var items []T
	if err := exec.SelectContext(ctx, &items, d.SelectAuditPageSQL, pk, limit, offset); err != nil {
		return AuditPage[T]{}, repoerrors.Wrap(repoerrors.DatabaseError, "load_audits: select page", err)
	}
	return AuditPage[T]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func insertAuditLink(ctx context.Context, exec txsession.Executor, auditLogID uuid.UUID, entityID entitycore.PrimaryKey, entityType string) error {
	const q = `INSERT INTO audit_link (audit_log_id, entity_id, entity_type) VALUES ($1, $2, $3)`
	if _, err := exec.ExecContext(ctx, q, auditLogID, entityID, entityType); err != nil {
		return repoerrors.Wrap(repoerrors.DatabaseError, fmt.Sprintf("insert audit_link for %s", entityType), err)
	}
	return nil
}
