package db

import (
	"context"
	"time"
)

// Executor runs one statement and materialises all of its rows.
//
// On failure Execute returns an empty Result (zero columns, zero rows) together
// with a *DBError, so callers that only inspect the Result treat failure and
// "no matching rows" alike while callers that check the error can tell them
// apart. Execute never panics on a malformed statement.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (*Result, error)
	Dialect() Dialect
}

// Conn is an Executor that owns the single connection to a store.
type Conn interface {
	Executor
	Ping(ctx context.Context) error
	Close() error
}

// Execute rebinds query for the store, runs it and collects every row. The
// rows handle is released on every exit path.
func (d *DB) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	ctx, cancel := d.withDefaultTimeout(ctx)
	defer cancel()

	query = d.dialect.Rebind(query)
	start := time.Now()
	d.hooks.Before(ctx, query, args)
	res, err := d.execute(ctx, query, args)
	d.hooks.After(ctx, query, args, time.Since(start), err)
	if err != nil {
		return EmptyResult(), err
	}
	return res, nil
}

func (d *DB) execute(ctx context.Context, query string, args []any) (*Result, error) {
	rows, err := d.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, AsQueryError(d.errMap, err)
	}
	defer rows.Close()

	res, err := CollectRows(rows)
	if err != nil {
		return nil, AsQueryError(d.errMap, err)
	}
	return res, nil
}

var _ Conn = (*DB)(nil)
