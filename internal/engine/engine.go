// Package engine executes client-submitted statement text against the
// backing SQLite store and streams result rows back to the caller.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Field is one column of one result row. Null distinguishes SQL NULL from
// an empty string.
type Field struct {
	Column string
	Value  string
	Null   bool
}

// Row is one result row in column order.
type Row []Field

// RowFunc receives each result row as it is produced. A non-nil return
// aborts the rest of the request.
type RowFunc func(Row) error

// Engine owns the store handle. The server drives it from a single flow,
// so the handle is capped at one open connection.
type Engine struct {
	db   *sql.DB
	path string
}

// Open opens the SQLite database at path, creating it when absent. In
// read-only mode the file must already exist and statements that modify it
// fail with a per-request error.
func Open(path string, readOnly bool) (*Engine, error) {
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	// sql.Open defers the real open; force it so a bad path fails at
	// startup instead of on the first request.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Engine{db: db, path: path}, nil
}

// Path returns the store's file path.
func (e *Engine) Path() string {
	return e.path
}

// Close releases the store handle. Closing twice is harmless.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Execute runs every statement in text in order, streaming each result row
// through emit. Execution stops at the first failing statement and returns
// its error; rows already emitted stand. Text holding no statements
// succeeds without emitting anything.
func (e *Engine) Execute(ctx context.Context, text string, emit RowFunc) error {
	for _, stmt := range Split(text) {
		if err := e.run(ctx, stmt, emit); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) run(ctx context.Context, stmt string, emit RowFunc) error {
	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]sql.NullString, len(columns))
	scan := make([]interface{}, len(columns))
	for i := range values {
		scan[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return err
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[i] = Field{Column: column, Value: values[i].String, Null: !values[i].Valid}
		}
		if err := emit(row); err != nil {
			return err
		}
	}

	return rows.Err()
}
