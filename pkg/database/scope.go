package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope wraps a single pooled connection checked out for one request.
// Repositories pull it from the request context so that every statement in a
// request, including explicit transactions, runs on the same connection.
type Scope struct {
	Conn *pgxpool.Conn
}

// Close releases the connection back to the pool.
// It MUST be called when the request finishes.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
}

// AcquireScope checks a connection out of the pool for the duration of a
// request. The returned Scope MUST be closed with defer scope.Close().
func (db *DB) AcquireScope(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}
