// Package pgx implements the GraphStorage port on PostgreSQL using
// jackc/pgx/v5. Upserts are idempotent ON CONFLICT statements, edge
// replacement runs in a transaction, and score updates go through a single
// bulk UPDATE with unnested arrays.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface backed by PostgreSQL.
// It relies on the database for concurrency control: keyed ON CONFLICT
// upserts guarantee that concurrent writes of the same node never create
// duplicates.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorage creates a GraphDBStorage using an existing connection or
// pool.
func NewGraphDBStorage(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}
