package auditengine

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/entitycore"
	"github.com/jecitDev/corebank/pkg/txcache"
)

type widget struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`

	Hash                 int64      `db:"hash"`
	AuditLogID           *uuid.UUID `db:"audit_log_id"`
	AntecedentHash       int64      `db:"antecedent_hash"`
	AntecedentAuditLogID uuid.UUID  `db:"antecedent_audit_log_id"`
}

func widgetDescriptor() Descriptor[widget] {
	return Descriptor[widget]{
		Table:      "widgets",
		AuditTable: "widgets_audit",
		EntityType: "Widget", // IdxTable left empty: widgets carry no secondary key

		PK: func(e widget) entitycore.PrimaryKey { return e.ID },
		Audit: func(e widget) entitycore.AuditFields {
			return entitycore.AuditFields{
				Hash:                 e.Hash,
				AuditLogID:           e.AuditLogID,
				AntecedentHash:       e.AntecedentHash,
				AntecedentAuditLogID: e.AntecedentAuditLogID,
			}
		},
		SetAudit: func(e *widget, af entitycore.AuditFields) {
			e.Hash = af.Hash
			e.AuditLogID = af.AuditLogID
			e.AntecedentHash = af.AntecedentHash
			e.AntecedentAuditLogID = af.AntecedentAuditLogID
		},

		InsertMainSQL:  `INSERT INTO widgets (id, name, hash, audit_log_id, antecedent_hash, antecedent_audit_log_id) VALUES ($1,$2,$3,$4,$5,$6)`,
		InsertMainArgs: func(e widget) []interface{} { return []interface{}{e.ID, e.Name, e.Hash, e.AuditLogID, e.AntecedentHash, e.AntecedentAuditLogID} },

		InsertAuditSQL:  `INSERT INTO widgets_audit (id, name, hash, audit_log_id, antecedent_hash, antecedent_audit_log_id) VALUES ($1,$2,$3,$4,$5,$6)`,
		InsertAuditArgs: func(e widget) []interface{} { return []interface{}{e.ID, e.Name, e.Hash, e.AuditLogID, e.AntecedentHash, e.AntecedentAuditLogID} },

		DeleteMainSQL: `DELETE FROM widgets WHERE id = $1`,

		SelectMainByIDsSQL: `SELECT id, name, hash, audit_log_id, antecedent_hash, antecedent_audit_log_id FROM widgets WHERE id = ANY($1)`,
		SelectExistSQL:     `SELECT id FROM widgets WHERE id = ANY($1)`,
	}
}

func newMockExec(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestEngine_CreateBatchEmptyIsNoOp(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	eng := New(widgetDescriptor())
	out, err := eng.CreateBatch(context.Background(), db, nil, nil, nil, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_UpdateBatchEmptyIsNoOp(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	eng := New(widgetDescriptor())
	out, err := eng.UpdateBatch(context.Background(), db, nil, nil, nil, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_DeleteBatchEmptyIsNoOp(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	eng := New(widgetDescriptor())
	n, err := eng.DeleteBatch(context.Background(), db, nil, nil, nil, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_LoadBatchEmptyIsNoOp(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	eng := New(widgetDescriptor())
	out, err := eng.LoadBatch(context.Background(), db, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ExistByIdsEmptyIsNoOp(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	eng := New(widgetDescriptor())
	out, err := eng.ExistByIds(context.Background(), db, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_LoadBatchFallsThroughToDatabaseOnCacheMiss(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	pk := uuid.New()
	auditLogID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "name", "hash", "audit_log_id", "antecedent_hash", "antecedent_audit_log_id"}).
		AddRow(pk, "gadget", int64(999), auditLogID, int64(0), uuid.Nil)
	mock.ExpectQuery("SELECT .* FROM widgets WHERE id = ANY").WillReturnRows(rows)

	eng := New(widgetDescriptor())
	out, err := eng.LoadBatch(context.Background(), db, nil, []entitycore.PrimaryKey{pk})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0])
	assert.Equal(t, "gadget", out[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_LoadBatchMissingIdReturnsNilEntry(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	requested := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "name", "hash", "audit_log_id", "antecedent_hash", "antecedent_audit_log_id"})
	mock.ExpectQuery("SELECT .* FROM widgets WHERE id = ANY").WillReturnRows(rows)

	eng := New(widgetDescriptor())
	out, err := eng.LoadBatch(context.Background(), db, nil, []entitycore.PrimaryKey{requested})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ExistByIdsWithoutIndexQueriesDatabase(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	present := uuid.New()
	absent := uuid.New()
	rows := sqlmock.NewRows([]string{"id"}).AddRow(present.String())
	mock.ExpectQuery("SELECT id FROM widgets WHERE id = ANY").WillReturnRows(rows)

	eng := New(widgetDescriptor())
	out, err := eng.ExistByIds(context.Background(), db, nil, []entitycore.PrimaryKey{present, absent})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Exists)
	assert.False(t, out[1].Exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_CreateThenDeleteWritesFinalAuditRow(t *testing.T) {
	db, mock := newMockExec(t)
	defer db.Close()

	pk := uuid.New()
	createAuditLogID := uuid.New()

	mock.ExpectExec("INSERT INTO widgets_audit").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO widgets \(`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_link").WillReturnResult(sqlmock.NewResult(1, 1))

	eng := New(widgetDescriptor())
	txMain := txcache.NewTxMainCache(nil)
	created, err := eng.CreateBatch(context.Background(), db, nil, txMain, []widget{{ID: pk, Name: "gadget"}}, createAuditLogID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	deleteAuditLogID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "name", "hash", "audit_log_id", "antecedent_hash", "antecedent_audit_log_id"}).
		AddRow(pk, "gadget", created[0].Hash, createAuditLogID, int64(0), uuid.Nil)
	mock.ExpectQuery("SELECT .* FROM widgets WHERE id = ANY").WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO widgets_audit").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM widgets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_link").WillReturnResult(sqlmock.NewResult(1, 1))

	n, err := eng.DeleteBatch(context.Background(), db, nil, txMain, []entitycore.PrimaryKey{pk}, deleteAuditLogID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
