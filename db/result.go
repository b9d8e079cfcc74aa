package db

import (
	"database/sql"
	"fmt"
)

// Result is the labeled tabular outcome of one statement: ordered column
// names and ordered rows keyed by column name. It is created per execution
// and never persisted.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// EmptyResult returns a result with zero columns and zero rows.
func EmptyResult() *Result {
	return &Result{Columns: []string{}, Rows: []map[string]any{}}
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool { return r.Len() == 0 }

// Values returns row i in column order.
func (r *Result) Values(i int) []any {
	row := r.Rows[i]
	out := make([]any, len(r.Columns))
	for j, c := range r.Columns {
		out[j] = row[c]
	}
	return out
}

// Column returns every value of the named column, in row order.
func (r *Result) Column(name string) []any {
	out := make([]any, 0, r.Len())
	for _, row := range r.Rows {
		out = append(out, row[name])
	}
	return out
}

// CollectRows drains rows into a Result. It does not close rows.
func CollectRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("moviewarehouse/db: columns: %w", err)
	}

	res := &Result{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("moviewarehouse/db: scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// normalizeValue turns driver byte slices into strings so results print and
// compare the same way across stores.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
