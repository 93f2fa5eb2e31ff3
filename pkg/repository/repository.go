// Package repository provides generic helpers shared by the SQL-backed
// domain repositories: transaction wrapping, typed row scanning, and
// affected-row accounting.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Querier runs read statements. *sql.DB, *sql.Tx, and *sql.Conn satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor runs write statements. *sql.DB, *sql.Tx, and *sql.Conn satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is the subset of *sql.Row and *sql.Rows that scan functions need.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row into a typed value. Each domain package supplies
// scan functions for its own entities.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. A rollback failure is joined onto fn's error.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("begin transaction: %w", err)
	}

	out, err := fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return zero, errors.Join(err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

// QueryOne runs a statement expected to produce a single row and scans it.
func QueryOne[T any](ctx context.Context, q Querier, stmt string, args []any, scan ScanFunc[T]) (T, error) {
	out, err := scan(q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// QueryMany runs a statement and scans every row it produces. No rows
// yields an empty, non-nil slice.
func QueryMany[T any](ctx context.Context, q Querier, stmt string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecCount runs a write statement and reports how many rows it touched.
// Zero is a valid outcome.
func ExecCount(ctx context.Context, e Executor, stmt string, args ...any) (int64, error) {
	result, err := e.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExecExpectOne runs a write statement that must touch at least one row,
// returning sql.ErrNoRows when it touches none. Guarded updates rely on
// this to detect that their WHERE clause filtered everything out.
func ExecExpectOne(ctx context.Context, e Executor, stmt string, args ...any) error {
	n, err := ExecCount(ctx, e, stmt, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
