package dbutil

import (
	"context"
	"database/sql"
)

// Querier is what *sql.DB and *sql.Tx have in common.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ Querier = &sql.DB{}
var _ Querier = &sql.Tx{}

// Tx remembers whether it has been finished, so MaybeRollback can be
// deferred unconditionally.
type Tx struct {
	tx *sql.Tx
}

func (tt *Tx) Tx() *sql.Tx {
	return tt.tx
}

func NewTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (tt *Tx) MaybeRollback() {
	if tt.tx != nil {
		tt.tx.Rollback()
		tt.tx = nil
	}
}

func (tt *Tx) Commit() error {
	err := tt.tx.Commit()
	if err == nil {
		tt.tx = nil
	}
	return err
}

// Run runs fn in a transaction, committing if fn succeeds.
func Run(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tt, err := NewTx(ctx, db, nil)
	if err != nil {
		return err
	}
	defer tt.MaybeRollback()

	if err := fn(ctx, tt.Tx()); err != nil {
		return err
	}
	return tt.Commit()
}
