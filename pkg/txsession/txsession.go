// Package txsession implements the unit-of-work session described as a
// "consumed interface" in spec.md §6: it begins/commits/rolls back one
// database transaction and drives the commit/rollback hooks of every
// transaction-aware participant registered during the transaction's
// lifetime (C4 staging layers, chiefly).
//
// The reference implementation wraps github.com/jmoiron/sqlx's *sqlx.DB
// and *sqlx.Tx, the driver the teacher repo already depends on, so it can
// be exercised in tests against github.com/DATA-DOG/go-sqlmock.
package txsession

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jecitDev/corebank/pkg/repoerrors"
)

// Executor is the minimal SQL surface a RepositoryRuntime needs. Both
// *sqlx.DB and *sqlx.Tx satisfy it structurally.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Participant is a transaction-aware resource staged during a unit of
// work. OnCommit and OnRollback must never panic and must never fail the
// enclosing transaction (spec.md §4.4, §7).
type Participant interface {
	OnCommit()
	OnRollback()
}

// UnitOfWorkSession begins/commits/rolls back a transaction and invokes
// registered participants' hooks in registration order on commit, reverse
// order on rollback (spec.md §6).
type UnitOfWorkSession interface {
	Executor() Executor
	Register(p Participant)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// sqlxTx is the subset of *sqlx.Tx this package depends on, narrowed so
// tests can substitute a fake without a live database.
type sqlxTx interface {
	Executor
	Commit() error
	Rollback() error
}

// Session is the reference UnitOfWorkSession implementation over a
// database/sql-compatible transaction.
type Session struct {
	tx Executor
	txCommit func() error
	txRollback func() error

	mu           sync.Mutex
	participants []Participant
	consumed     bool
}

// NewSession wraps an already-begun transaction. Most callers use Begin
// instead; NewSession exists so tests can inject a fake transaction.
func NewSession(tx Executor, commit, rollback func() error) *Session {
	return &Session{tx: tx, txCommit: commit, txRollback: rollback}
}

// Executor returns the transaction's SQL surface.
func (s *Session) Executor() Executor {
	return s.tx
}

// Register adds p to the set of participants notified on commit/rollback.
// Not safe to call concurrently with Commit/Rollback.
func (s *Session) Register(p Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, p)
}

// Commit commits the underlying transaction, then — only if that
// succeeds — invokes every registered participant's OnCommit in
// registration order. Calling Commit or Rollback a second time fails with
// TransactionConsumed.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return repoerrors.New(repoerrors.TransactionConsumed, "session already committed or rolled back")
	}
	s.consumed = true
	participants := append([]Participant(nil), s.participants...)
	s.mu.Unlock()

	if err := s.txCommit(); err != nil {
		return repoerrors.Wrap(repoerrors.DatabaseError, "commit failed", err)
	}

	for _, p := range participants {
		p.OnCommit()
	}
	return nil
}

// Rollback rolls back the underlying transaction, then invokes every
// registered participant's OnRollback in reverse registration order.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return repoerrors.New(repoerrors.TransactionConsumed, "session already committed or rolled back")
	}
	s.consumed = true
	participants := append([]Participant(nil), s.participants...)
	s.mu.Unlock()

	err := s.txRollback()
	for i := len(participants) - 1; i >= 0; i-- {
		participants[i].OnRollback()
	}
	if err != nil {
		return repoerrors.Wrap(repoerrors.DatabaseError, "rollback failed", err)
	}
	return nil
}
