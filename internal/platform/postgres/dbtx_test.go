package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// execCall records a single ExecContext invocation.
type execCall struct {
	query string
	args  []any
}

// recordingDB captures ExecContext arguments so tests can assert the
// exact values handed to the driver for each column.
type recordingDB struct {
	calls []execCall
	err   error
}

func (r *recordingDB) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r.calls = append(r.calls, execCall{query: query, args: args})
	if r.err != nil {
		return nil, r.err
	}
	return execResult{rows: 1}, nil
}

func (r *recordingDB) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, nil
}

func (r *recordingDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, nil
}

func (r *recordingDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type execResult struct {
	rows int64
}

func (e execResult) LastInsertId() (int64, error) { return 0, nil }
func (e execResult) RowsAffected() (int64, error) { return e.rows, nil }
