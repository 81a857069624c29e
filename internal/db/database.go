package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/config"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

// Dialect identifies the SQL flavour behind a Database
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Placeholder returns the squirrel placeholder format for the dialect
func (d Dialect) Placeholder() squirrel.PlaceholderFormat {
	if d == DialectPostgres {
		return squirrel.Dollar
	}
	return squirrel.Question
}

// Database wraps a database/sql handle plus whatever owns the underlying connections
type Database struct {
	SQL     *sql.DB
	Dialect Dialect
	closer  func()
}

// Open connects to the driver selected in the configuration
func Open(cfg *config.Config) (*Database, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return OpenPostgres(cfg)
	case config.DriverSQLite:
		return OpenSQLite(cfg.Database.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Ping checks the connection within a short timeout
func (db *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.SQL.PingContext(ctx)
}

// StatementBuilder returns a squirrel builder bound to the dialect placeholders
func (db *Database) StatementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(db.Dialect.Placeholder())
}

// Close releases the sql handle and the owning pool
func (db *Database) Close() {
	if db.SQL != nil {
		if err := db.SQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing sql handle")
		}
	}
	if db.closer != nil {
		db.closer()
	}
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx *sql.Tx) error

// WithTransaction runs fn inside a single transaction. Only schema work uses it:
// record operations are single statements.
func (db *Database) WithTransaction(ctx context.Context, fn TransactionFn) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
