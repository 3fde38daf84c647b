package pgxdbtest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewTestConnection creates a connection pool sized for integration tests:
// a small pool, short lifecycles and fast failure detection.
func NewTestConnection(ctx context.Context, connectionString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, err
	}

	config.MinConns = 1
	config.MaxConns = 4 // the ledger tests issue a few concurrent awards

	config.MaxConnLifetime = 10 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	config.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, config)
}
