package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-moments/internal/logger"
)

// Migrator applies embedded SQL migrations and records them in schema_migrations.
type Migrator struct {
	DB  *sql.DB
	FS  fs.FS
	Dir string
	// Placeholder is the bind parameter of the driver: "$1" for postgres, "?" for sqlite.
	Placeholder string
	Log         *logger.Logger
}

// appliedMigrations returns a set of already-applied migration versions.
func (m *Migrator) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	_, err := m.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := m.DB.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// pendingFiles returns sorted SQL migration filenames not yet applied.
func (m *Migrator) pendingFiles(applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(m.FS, m.Dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Up applies all pending migrations in filename order, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	log := logger.OrNop(m.Log)
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := m.pendingFiles(applied)
	if err != nil {
		return err
	}

	insert := "INSERT INTO schema_migrations (version) VALUES (" + m.Placeholder + ")"
	for _, file := range files {
		content, err := fs.ReadFile(m.FS, m.Dir+"/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := m.DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, insert, file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}

		log.Info("applied migration", "version", file)
	}

	return nil
}

// Applied returns the list of applied migrations
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}
	return versions, nil
}
