package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// OpenSQLite opens (or creates) a SQLite database file.
// SQLite serialises writers, so the handle keeps a single connection.
func OpenSQLite(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path
	if path != MemoryDSN && !strings.Contains(path, "?") {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to establish sqlite connection: %w", err)
	}

	return &Database{SQL: sqlDB, Dialect: DialectSQLite}, nil
}
