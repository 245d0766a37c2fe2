package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS holds the migration files. The migrations package registers
// its embedded files here from init; tests substitute an fstest.MapFS.
var MigrationsFS fs.FS

// MigrationsDir is the directory within MigrationsFS containing migration
// files. Use "." when the files are at the root.
var MigrationsDir = "."

const (
	upSuffix = ".up.sql"

	createMigrationsTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`
)

// migration is one forward schema step.
type migration struct {
	version string // YYYYMMDD_HHMMSS
	name    string
	file    string
}

// Migrate applies every pending *.up.sql file in version order and returns
// the versions it applied.
//
// Each migration runs in its own transaction: if one fails, earlier ones
// stay committed and later ones are not attempted, so re-running Migrate
// resumes from the failed one. Down files are for operators rolling back by
// hand and are never executed.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	steps, err := listMigrations()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if len(steps) == 0 {
		return nil, nil
	}

	done, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range steps {
		if done[m.version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return applied, fmt.Errorf("applying migration %s (%s): %w", m.version, m.name, err)
		}
		applied = append(applied, m.version)
	}
	return applied, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		done[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return done, nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	sqlText, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, m.file))
	if err != nil {
		return fmt.Errorf("reading %s: %w", m.file, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, string(sqlText)); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}

// listMigrations returns the up migrations in MigrationsFS, oldest first.
// Two files with the same version are an error.
func listMigrations() ([]migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", MigrationsDir, err)
	}

	byVersion := make(map[string]migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, ok := parseMigrationFile(entry.Name())
		if !ok {
			continue
		}
		if prev, dup := byVersion[m.version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", m.version, prev.file, m.file)
		}
		byVersion[m.version] = m
	}

	steps := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		steps = append(steps, m)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// parseMigrationFile accepts YYYYMMDD_HHMMSS_description.up.sql.
func parseMigrationFile(file string) (migration, bool) {
	base, ok := strings.CutSuffix(file, upSuffix)
	if !ok {
		return migration{}, false
	}
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || len(parts[0]) != 8 || len(parts[1]) != 6 || parts[2] == "" {
		return migration{}, false
	}
	return migration{version: parts[0] + "_" + parts[1], name: parts[2], file: file}, true
}
