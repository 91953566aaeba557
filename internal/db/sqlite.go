package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    publish_status TEXT NOT NULL DEFAULT 'draft',
    url_slug TEXT,
    title TEXT NOT NULL DEFAULT '',
    tagline TEXT NOT NULL DEFAULT '',
    body BLOB,
    body_hash TEXT,
    theme TEXT NOT NULL DEFAULT 'light',
    last_edited DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS projects_owner ON projects(owner);
CREATE INDEX IF NOT EXISTS projects_status ON projects(publish_status);

CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS roles (
    user_id TEXT PRIMARY KEY,
    role TEXT NOT NULL
);`

type SQLite struct {
	path string
	conn *sql.DB
}

func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

func (s *SQLite) InitDB() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.path)
	if err != nil {
		return err
	}

	// Every connection to ":memory:" gets its own database.
	if s.path == MemoryPath {
		s.conn.SetMaxOpenConns(1)
	}

	res, err := s.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}

	dbLogger.Info().Any("db_result", res).Str("path", s.path).Msg("Database initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *SQLite) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return s.conn.QueryRowContext(ctx, query, args...)
}

func (s *SQLite) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *SQLite) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			dbLogger.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	return tx.Commit()
}

var _ DB = (*SQLite)(nil)
