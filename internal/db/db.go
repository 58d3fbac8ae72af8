// Package db provides database connection management and operations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/kimhsiao/fixdesk/backend/internal/errors"
)

// FileName is the database file created inside the data directory.
const FileName = "fixdesk.db"

// DB wraps the sql.DB with FixDesk-specific configuration.
type DB struct {
	*sql.DB
	path string
}

// Open opens a SQLite database with FixDesk configuration.
// The database is opened with:
// - a single connection (SQLite has one writer)
// - WAL mode
// - foreign key constraints enabled
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &DB{DB: db, path: dbPath}, nil
}

// OpenMemory opens a private in-memory database. Used by tests and tools.
func OpenMemory() (*DB, error) {
	db, err := openSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	return &DB{DB: db, path: ":memory:"}, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	// modernc.org/sqlite, pure Go, no CGO
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// OpenAndMigrate opens the database in dataDir and applies pending migrations.
func OpenAndMigrate(ctx context.Context, dataDir string) (*DB, error) {
	database, err := Open(dataDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "open database", err)
	}

	migrator, err := NewMigrator(database.DB)
	if err != nil {
		database.Close()
		return nil, apperrors.Wrap(apperrors.ErrMigration, "create migrator", err)
	}
	if _, err := migrator.Up(ctx); err != nil {
		database.Close()
		return nil, apperrors.Wrap(apperrors.ErrMigration, "apply migrations", err)
	}
	return database, nil
}

// Path returns the database file path, or ":memory:".
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
