package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the database handle so stores can run against either a
// *sql.DB or a *sql.Tx. WithTx on each store swaps the handle without
// changing any query code.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
