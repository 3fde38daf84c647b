package migratortest

import (
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peterldowns/pgtestdb"
	"github.com/stretchr/testify/require"

	"github.com/dreamplay/rewards/migrator"
	"github.com/dreamplay/rewards/pkg/pgxdb/pgxdbtest"
)

// CreateTestDatabase creates an isolated test database with the kv schema applied.
// Returns the connection pool ready for use; it is closed on test cleanup.
func CreateTestDatabase(t *testing.T, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	dbConfig := pgtestdb.Custom(t, createTestDatabaseConfig(), migrator.NewSchemaMigrator(migrationsDir))

	pool, err := pgxdbtest.NewTestConnection(t.Context(), dbConfig.URL())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	t.Logf("testdbconf: %s", dbConfig.URL())

	return pool
}

// createTestDatabaseConfig creates the standard pgtestdb configuration for rewards tests
func createTestDatabaseConfig() pgtestdb.Config {
	return pgtestdb.Config{
		DriverName: "pgx",
		User:       "dreamplay",
		Password:   "dreamplay",
		Host:       "localhost",
		Port:       "5432",
		Options:    "sslmode=disable",
	}
}
