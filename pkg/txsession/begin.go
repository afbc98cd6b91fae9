package txsession

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Begin opens a new transaction on db and wraps it in a Session.
func Begin(ctx context.Context, db *sqlx.DB) (*Session, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return NewSession(tx, tx.Commit, tx.Rollback), nil
}
