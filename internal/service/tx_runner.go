package service

import (
	"context"
	"database/sql"

	"github.com/gatherly/gatherly-api/internal/store"
)

// TxRunner runs a function inside a database transaction. Services depend on
// this interface rather than *sql.DB directly so unit tests can substitute a
// runner that serializes transactions without a live database.
type TxRunner interface {
	// RunInTransaction executes fn within a transaction, committing on nil
	// and rolling back on error.
	RunInTransaction(ctx context.Context, fn store.TxFn) error
}

// dbTxRunner is the production TxRunner backed by a *sql.DB connection pool.
type dbTxRunner struct {
	db *sql.DB
}

var _ TxRunner = (*dbTxRunner)(nil)

// NewDBTxRunner creates a TxRunner that opens real transactions on db.
func NewDBTxRunner(db *sql.DB) TxRunner {
	if db == nil {
		panic("db cannot be nil")
	}
	return &dbTxRunner{db: db}
}

// RunInTransaction implements TxRunner.
func (r *dbTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return store.RunInTransaction(ctx, r.db, fn)
}
