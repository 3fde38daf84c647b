package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"
)

// Migration constants
const (
	migrationsTableName = "schema_migrations"
	schemaHashPrefix    = "schema_only_"
)

// Migration-related errors
var (
	ErrMigrationExecution = errors.New("migration execution failed")
	ErrMigrationStatus    = errors.New("migration status lookup failed")
)

// SchemaMigrator applies the kv_entries schema migrations.
// It satisfies pgtestdb.Migrator so tests get template databases with the same schema.
type SchemaMigrator struct {
	migrationsDir string
}

// NewSchemaMigrator creates a migrator that applies schema migrations only
func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{
		migrationsDir: migrationsDir,
	}
}

func (m *SchemaMigrator) Hash() (string, error) {
	sqlMigrator := sqlmigrator.New(m.source(), migrationSet())

	baseHash, err := sqlMigrator.Hash()
	if err != nil {
		return "", fmt.Errorf("failed to calculate migration hash for %s: %w", m.migrationsDir, err)
	}

	return schemaHashPrefix + baseHash, nil
}

func (m *SchemaMigrator) Migrate(_ context.Context, db *sql.DB, _ pgtestdb.Config) error {
	_, err := applyMigrations(db, m.migrationsDir)
	return err
}

func (m *SchemaMigrator) source() *migrate.FileMigrationSource {
	return &migrate.FileMigrationSource{Dir: m.migrationsDir}
}

// ApplyMigrations applies database migrations using sql-migrate with the provided pgx pool.
// It returns the number of migrations applied.
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) (int, error) {
	// Create sql.DB from the pgx pool for sql-migrate
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return applyMigrations(db, migrationsDir)
}

// PendingMigrations reports how many migrations in migrationsDir are not yet applied.
func PendingMigrations(pool *pgxpool.Pool, migrationsDir string) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	planned, _, err := migrationSet().PlanMigration(db, "postgres", &migrate.FileMigrationSource{Dir: migrationsDir}, migrate.Up, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMigrationStatus, err)
	}
	return len(planned), nil
}

func migrationSet() *migrate.MigrationSet {
	return &migrate.MigrationSet{TableName: migrationsTableName}
}

// applyMigrations applies database migrations using sql-migrate
func applyMigrations(db *sql.DB, migrationsDir string) (int, error) {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}

	n, err := migrationSet().Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return n, nil
}
