// Package db opens the sqlite database and applies the embedded migrations.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

//go:embed *.sql
var migrations embed.FS

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_pragma=foreign_keys(1)", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, err
}

// New opens the database and applies any migrations that haven't run yet.
func New(path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	fileMeta, err := migrations.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	sort.Slice(fileMeta, func(i, j int) bool {
		return fileMeta[i].Name() < fileMeta[j].Name()
	})
	files := make([]string, len(fileMeta))
	for i, file := range fileMeta {
		migration, err := migrations.ReadFile(file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration: %w", err)
		}
		files[i] = string(migration)
	}

	// Migrate the database in a transaction
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting txn: %w", err)
	}
	defer tx.Rollback()

	for i, meta := range fileMeta {
		_, err = tx.Exec("INSERT INTO migrations (name) VALUES (?)", meta.Name())
		if err != nil && !strings.Contains(err.Error(), "no such table: migrations") {
			continue // already applied
		}
		slog.Info("migrating db", "migration", meta.Name())
		_, err = tx.Exec(files[i])
		if err != nil {
			return nil, fmt.Errorf("migrating db: %w", err)
		}
	}

	return db, tx.Commit()
}

func NewTest(t *testing.T) *sql.DB {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating db: %s", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
