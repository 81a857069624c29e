package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/db"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

//go:embed sql
var embedded embed.FS

const migrationsTable = "schema_migrations"

// Migrator manages database migrations
type Migrator struct {
	db *db.Database
	sb squirrel.StatementBuilderType
}

// NewMigrator creates a new migrator
func NewMigrator(database *db.Database) *Migrator {
	return &Migrator{
		db: database,
		sb: database.StatementBuilder(),
	}
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := m.db.SQL.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// isMigrationApplied checks if a specific migration has already been applied
func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	query, args, err := m.sb.Select("COUNT(1)").
		From(migrationsTable).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build migration status query: %w", err)
	}

	var count int
	if err := m.db.SQL.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

// Applied lists applied versions in order
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return nil, err
	}

	query, args, err := m.sb.Select("version").From(migrationsTable).OrderBy("version ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build applied migrations query: %w", err)
	}

	rows, err := m.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// applyFile executes one SQL file and records its version in the same transaction
func (m *Migrator) applyFile(ctx context.Context, fsys fs.FS, name string) error {
	filename := path.Base(name)
	version := strings.Split(filename, "_")[0]

	applied, err := m.isMigrationApplied(ctx, version)
	if err != nil {
		return err
	}
	if applied {
		logger.Debug().Str("file", filename).Msg("Migration already applied, skipping")
		return nil
	}

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	insertSQL, insertArgs, err := m.sb.Insert(migrationsTable).
		Columns("version", "applied_at").
		Values(version, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build migration record query: %w", err)
	}

	err = m.db.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("error occurred during SQL migration %s: %w", filename, err)
		}
		if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().Str("file", filename).Str("version", version).Msg("Migration applied")
	return nil
}

// MigrateFromFS applies every .sql file found at the root of fsys, in name order
func (m *Migrator) MigrateFromFS(ctx context.Context, fsys fs.FS) error {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, file := range sqlFiles {
		if err := m.applyFile(ctx, fsys, file); err != nil {
			return err
		}
	}
	return nil
}

// MigrateFromDirectory applies the SQL files of an on-disk directory
func (m *Migrator) MigrateFromDirectory(ctx context.Context, dirPath string) error {
	return m.MigrateFromFS(ctx, os.DirFS(dirPath))
}

// MigrateEmbedded applies the schema bundled with the binary for the database dialect
func (m *Migrator) MigrateEmbedded(ctx context.Context) error {
	sub, err := fs.Sub(embedded, path.Join("sql", string(m.db.Dialect)))
	if err != nil {
		return fmt.Errorf("no embedded migrations for dialect %s: %w", m.db.Dialect, err)
	}
	return m.MigrateFromFS(ctx, sub)
}
