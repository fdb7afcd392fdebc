// Package store is the relational persistence layer: profiles, catalogs,
// catalog items, feed posts and the engagement signals the feed ranking
// reads. All access goes through a pgx connection pool; no business logic
// lives here.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row is missing or not owned by the caller.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when a uniqueness constraint would be violated,
// such as creating a second profile for the same user.
var ErrExists = errors.New("already exists")

// Store wraps a pgx pool with typed queries.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewPool creates and verifies a pgxpool connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}
