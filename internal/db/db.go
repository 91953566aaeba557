// Package db owns the SQLite connection and schema of the project service.
package db

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
)

type DB interface {
	InitDB() error

	Get() *sql.DB
	Close() error

	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// WithTx runs fn in a transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

var dbLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}
