package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"stockcrew/pkg/errors"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories run
// unchanged inside a test transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// inTx runs fn in a new transaction, or directly when db already is one.
func inTx(ctx context.Context, db DBTX, fn func(DBTX) error) error {
	conn, ok := db.(*sqlx.DB)
	if !ok {
		return fn(db)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}
