// Package pgxstore implements the durable key-value backend on PostgreSQL.
package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamplay/rewards/kv"
)

// Sentinel errors for store operations
var (
	ErrGetFailed  = errors.New("kv get failed")
	ErrSetFailed  = errors.New("kv set failed")
	ErrListFailed = errors.New("kv list failed")
)

// SQL queries
const (
	getSQL = `SELECT value FROM kv_entries WHERE key = $1`

	setSQL = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	listSQL = `SELECT key FROM kv_entries WHERE starts_with(key, $1) ORDER BY key`
)

// Store implements kv.Store on a kv_entries table
type Store struct {
	pool *pgxpool.Pool
}

var _ kv.Store = (*Store)(nil)

// New creates a new PostgreSQL store with an existing connection pool.
// The store takes ownership of the pool: the returned closer closes it.
func New(pool *pgxpool.Pool) (*Store, func()) {
	store := &Store{pool: pool}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// Get returns the JSON value stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, getSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGetFailed, err)
	}
	return value, nil
}

// Set upserts the JSON value under key
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, setSQL, key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrSetFailed, err)
	}
	return nil
}

// List returns all keys starting with prefix
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, listSQL, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}
