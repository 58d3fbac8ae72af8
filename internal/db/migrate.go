// Package db provides database schema migration management.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// SchemaVersion is the schema version this build expects.
const SchemaVersion = 2

// versionTable is goose's default version table.
const versionTable = "goose_db_version"

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migration represents an applied or pending database schema migration.
type Migration struct {
	Version     int64
	Description string
	Applied     bool
	AppliedAt   time.Time
}

// Migrator applies the embedded, forward-only schema migrations.
// Every migration is additive; none drops a table or a column.
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
}

// NewMigrator creates a new Migrator over the embedded migrations.
func NewMigrator(db *sql.DB) (*Migrator, error) {
	return newMigrator(db, embedMigrations, "migrations")
}

func newMigrator(db *sql.DB, fsys fs.FS, dir string) (*Migrator, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations directory: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return &Migrator{db: db, provider: provider}, nil
}

// CurrentVersion returns the current schema version (0 on a fresh database).
func (m *Migrator) CurrentVersion(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Migrations returns every known migration with its applied state.
func (m *Migrator) Migrations(ctx context.Context) ([]Migration, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	migrations := make([]Migration, 0, len(statuses))
	for _, s := range statuses {
		migrations = append(migrations, Migration{
			Version:     s.Source.Version,
			Description: describe(s.Source.Path),
			Applied:     s.State == goose.StateApplied,
			AppliedAt:   s.AppliedAt,
		})
	}
	return migrations, nil
}

// Up applies all pending migrations and returns how many were applied.
// Calling Up on an up-to-date database is a no-op.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.baseline(ctx); err != nil {
		return 0, err
	}
	results, err := m.provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, res := range results {
		logging.Info("schema migration applied", map[string]interface{}{
			"version":     res.Source.Version,
			"description": describe(res.Source.Path),
			"duration_ms": res.Duration.Milliseconds(),
		})
	}
	return len(results), nil
}

// baseline records migrations already applied to a database that was
// versioned with PRAGMA user_version only. It does nothing once the goose
// version table exists or when the database has no repairs table.
func (m *Migrator) baseline(ctx context.Context) error {
	hasRepairs, err := m.tableExists(ctx, "repairs")
	if err != nil {
		return err
	}
	hasGoose, err := m.tableExists(ctx, versionTable)
	if err != nil {
		return err
	}
	if hasGoose || !hasRepairs {
		return nil
	}

	var userVersion int64
	if err := m.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&userVersion); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}
	if userVersion <= 0 {
		return nil
	}
	if userVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", userVersion, SchemaVersion)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin baseline: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+versionTable+` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id INTEGER NOT NULL,
		is_applied INTEGER NOT NULL,
		tstamp TIMESTAMP DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}
	for v := int64(0); v <= userVersion; v++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+versionTable+` (version_id, is_applied) VALUES (?, 1)`, v); err != nil {
			return fmt.Errorf("failed to record version %d: %w", v, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit baseline: %w", err)
	}

	logging.Info("schema baselined from user_version", map[string]interface{}{"version": userVersion})
	return nil
}

func (m *Migrator) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return n > 0, nil
}

// describe turns "00002_repair_completion.sql" into "repair_completion".
func describe(p string) string {
	name := strings.TrimSuffix(path.Base(p), ".sql")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[i+1:]
	}
	return name
}
