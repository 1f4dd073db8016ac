// Package db owns the embedded DuckDB connection. Loaded point attributes
// are mirrored into one long-format table per preset so they can be
// explored with SQL through /api/v1/query.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// lockdown keeps SQL away from files and the network and stops SET from
// undoing it. The database file itself stays writable.
const lockdown = "?enable_external_access=false&lock_configuration=true"

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}

		instance, initErr = Open(filepath.Join(duckdbDir, cfg.DBName+".duckdb"))
	})
	return instance, initErr
}

// Open opens a locked-down DuckDB database at path, or in memory when path
// is empty.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", path+lockdown)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// AttributeRow is one feature/attribute observation.
type AttributeRow struct {
	Feature   string
	Attribute string
	Year      string
	Value     sql.NullFloat64
}

// Store writes attribute tables into DuckDB.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// TableName returns the attribute table for a preset, e.g.
// "texas-msa" → "attributes_texas_msa".
func TableName(preset string) string {
	var b strings.Builder
	b.WriteString("attributes_")
	for _, r := range strings.ToLower(preset) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Ingest replaces the preset's attribute table with rows.
func (s *Store) Ingest(ctx context.Context, preset string, rows []AttributeRow) error {
	table := TableName(preset)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf(`CREATE OR REPLACE TABLE %s (
		feature VARCHAR,
		attribute VARCHAR,
		year VARCHAR,
		value DOUBLE
	)`, table)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?)", table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Feature, row.Attribute, row.Year, row.Value); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return tx.Commit()
}
