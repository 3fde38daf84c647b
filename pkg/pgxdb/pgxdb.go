package pgxdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for pgxdb package operations
var (
	ErrInvalidConnectionString = errors.New("invalid database connection string")
	ErrConnectionPoolCreation  = errors.New("failed to create database connection pool")
	ErrDatabaseConnection      = errors.New("failed to connect to database")
)

// Option tunes the pool configuration
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithConnectTimeout bounds establishing a new connection
func WithConnectTimeout(d time.Duration) Option {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.ConnConfig.ConnectTimeout = d
		}
	}
}

// NewConnection creates a pgx connection pool and verifies it with a ping.
// The claim ledger holds no long transactions, so a small warm pool suffices.
func NewConnection(ctx context.Context, connectionString string, opts ...Option) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	config.MinConns = 2
	config.MaxConns = 10

	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	config.ConnConfig.ConnectTimeout = 10 * time.Second

	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionPoolCreation, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}

	return pool, nil
}
