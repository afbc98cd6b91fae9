package txsession

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/repoerrors"
)

type recordingParticipant struct {
	name      string
	committed *[]string
	rolled    *[]string
}

func (p recordingParticipant) OnCommit()   { *p.committed = append(*p.committed, p.name) }
func (p recordingParticipant) OnRollback() { *p.rolled = append(*p.rolled, p.name) }

func newMockSession(t *testing.T) (*Session, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()
	session, err := Begin(context.Background(), sqlxDB)
	require.NoError(t, err)

	return session, mock, func() { db.Close() }
}

func TestSession_CommitInvokesParticipantsInRegistrationOrder(t *testing.T) {
	session, mock, closeDB := newMockSession(t)
	defer closeDB()
	mock.ExpectCommit()

	var committed, rolled []string
	session.Register(recordingParticipant{name: "first", committed: &committed, rolled: &rolled})
	session.Register(recordingParticipant{name: "second", committed: &committed, rolled: &rolled})

	require.NoError(t, session.Commit(context.Background()))
	assert.Equal(t, []string{"first", "second"}, committed)
	assert.Empty(t, rolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_RollbackInvokesParticipantsInReverseOrder(t *testing.T) {
	session, mock, closeDB := newMockSession(t)
	defer closeDB()
	mock.ExpectRollback()

	var committed, rolled []string
	session.Register(recordingParticipant{name: "first", committed: &committed, rolled: &rolled})
	session.Register(recordingParticipant{name: "second", committed: &committed, rolled: &rolled})

	require.NoError(t, session.Rollback(context.Background()))
	assert.Equal(t, []string{"second", "first"}, rolled)
	assert.Empty(t, committed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_DoubleCommitFailsWithTransactionConsumed(t *testing.T) {
	session, mock, closeDB := newMockSession(t)
	defer closeDB()
	mock.ExpectCommit()

	require.NoError(t, session.Commit(context.Background()))
	err := session.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, repoerrors.Is(err, repoerrors.TransactionConsumed))
}

func TestSession_RollbackAfterCommitFailsWithTransactionConsumed(t *testing.T) {
	session, mock, closeDB := newMockSession(t)
	defer closeDB()
	mock.ExpectCommit()

	require.NoError(t, session.Commit(context.Background()))
	err := session.Rollback(context.Background())
	require.Error(t, err)
	assert.True(t, repoerrors.Is(err, repoerrors.TransactionConsumed))
}
