// db/db_test.go: unit tests for the execution layer.
// Uses an in-memory SQLite database; no external services required.
//
// Run:  go test ./db/... -v -race
package db_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Skryldev/movie-warehouse/db"
	_ "github.com/mattn/go-sqlite3"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test helpers
// ─────────────────────────────────────────────────────────────────────────────

const insertMovie = `INSERT INTO movies (movie_id, title, genres, release_date) VALUES (?, ?, ?, ?)`

func openMemory(t *testing.T, hooks ...db.Hook) *db.DB {
	t.Helper()
	d, err := db.Open(db.Config{
		DSN:          ":memory:",
		DriverName:   "sqlite3",
		MaxOpenConns: 1,
		Hooks:        hooks,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	d := openMemory(t, db.NewLogHook(db.LogHookConfig{LogArgs: true}))

	_, err := d.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS movies (
			movie_id     INTEGER PRIMARY KEY,
			title        TEXT NOT NULL,
			genres       TEXT NOT NULL,
			release_date TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return d
}

func countMovies(t *testing.T, d *db.DB, where string, args ...any) int {
	t.Helper()
	var n int
	if err := d.QueryRow(context.Background(), `SELECT COUNT(*) FROM movies `+where, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Open / Ping
// ─────────────────────────────────────────────────────────────────────────────

func TestOpen(t *testing.T) {
	d := newTestDB(t)
	if err := d.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if d.Dialect() != db.SQLite {
		t.Fatalf("expected sqlite dialect, got %s", d.Dialect().Name())
	}
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := db.Open(db.Config{DSN: "", DriverName: "sqlite3"})
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open(db.Config{DSN: "x", DriverName: "nope"})
	if !db.IsConnectionFailed(err) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Exec / QueryRow
// ─────────────────────────────────────────────────────────────────────────────

func TestExec_Insert(t *testing.T) {
	d := newTestDB(t)

	res, err := d.Exec(context.Background(), insertMovie, 1, "Toy Story (1995)", "Animation|Children's|Comedy", "01-Jan-1995")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	n, _ := res.RowsAffected()
	if n != 1 {
		t.Fatalf("expected 1 row affected, got %d", n)
	}
}

func TestQueryRow_Scan(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	if _, err := d.Exec(ctx, insertMovie, 2, "GoldenEye (1995)", "Action|Adventure|Thriller", "01-Jan-1995"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var title, genres string
	err := d.QueryRow(ctx, `SELECT title, genres FROM movies WHERE movie_id = ?`, 2).Scan(&title, &genres)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if title != "GoldenEye (1995)" || genres != "Action|Adventure|Thriller" {
		t.Fatalf("unexpected values: title=%q genres=%q", title, genres)
	}
}

func TestQueryRow_NotFound(t *testing.T) {
	d := newTestDB(t)

	var title string
	err := d.QueryRow(context.Background(), `SELECT title FROM movies WHERE movie_id = ?`, 99999).Scan(&title)
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Query: multiple rows
// ─────────────────────────────────────────────────────────────────────────────

func TestQuery_MultipleRows(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	for i, title := range []string{"Heat (1995)", "Casino (1995)", "Babe (1995)"} {
		if _, err := d.Exec(ctx, insertMovie, i+1, title, "Drama", "01-Jan-1995"); err != nil {
			t.Fatalf("insert %s: %v", title, err)
		}
	}

	rows, err := d.Query(ctx, `SELECT title FROM movies ORDER BY title`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		titles = append(titles, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err: %v", err)
	}
	if len(titles) != 3 || titles[0] != "Babe (1995)" {
		t.Fatalf("unexpected titles: %v", titles)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Execute: materialised results
// ─────────────────────────────────────────────────────────────────────────────

func TestExecute_CollectsRowsInColumnOrder(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	for _, m := range []struct {
		id    int
		title string
	}{{3, "Four Rooms (1995)"}, {1, "Toy Story (1995)"}, {2, "GoldenEye (1995)"}} {
		if _, err := d.Exec(ctx, insertMovie, m.id, m.title, "Comedy", "01-Jan-1995"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	res, err := d.Execute(ctx, `SELECT movie_id, title FROM movies ORDER BY movie_id LIMIT ?`, 2)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "movie_id" || res.Columns[1] != "title" {
		t.Fatalf("unexpected columns: %v", res.Columns)
	}
	if res.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", res.Len())
	}
	if got := res.Rows[0]["title"]; got != "Toy Story (1995)" {
		t.Fatalf("unexpected first title %v", got)
	}
	if got := res.Values(1); got[0] != int64(2) || got[1] != "GoldenEye (1995)" {
		t.Fatalf("unexpected second row %v", got)
	}
	ids := res.Column("movie_id")
	if len(ids) != 2 || ids[0] != int64(1) {
		t.Fatalf("unexpected id column %v", ids)
	}
}

func TestExecute_NoRowsKeepsColumns(t *testing.T) {
	d := newTestDB(t)

	res, err := d.Execute(context.Background(), `SELECT movie_id, title FROM movies WHERE movie_id = ?`, 42)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected no rows, got %d", res.Len())
	}
	if len(res.Columns) != 2 {
		t.Fatalf("expected columns to survive an empty result, got %v", res.Columns)
	}
}

func TestExecute_BytesBecomeStrings(t *testing.T) {
	d := openMemory(t)

	res, err := d.Execute(context.Background(), `SELECT CAST('drama' AS BLOB) AS genre`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got, ok := res.Rows[0]["genre"].(string); !ok || got != "drama" {
		t.Fatalf("expected string \"drama\", got %#v", res.Rows[0]["genre"])
	}
}

func TestExecute_SyntaxErrorReturnsEmptyResult(t *testing.T) {
	d := newTestDB(t)

	res, err := d.Execute(context.Background(), `SELEC movie_id FROM movies`)
	if !db.IsSyntax(err) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
	if !db.IsQueryError(err) {
		t.Fatalf("expected a *DBError, got %T", err)
	}
	if res == nil || !res.Empty() || len(res.Columns) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestExecute_UnknownTableIsQueryFailed(t *testing.T) {
	d := openMemory(t)

	res, err := d.Execute(context.Background(), `SELECT * FROM ratings`)
	if !errors.Is(err, db.ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no such table") {
		t.Fatalf("expected the driver cause in %q", err)
	}
	if !res.Empty() {
		t.Fatal("expected empty result")
	}
}

func TestExecute_ReleaseYear(t *testing.T) {
	d := openMemory(t)
	q := `SELECT ` + d.Dialect().ReleaseYear("?") + ` AS year`

	res, err := d.Execute(context.Background(), q, "01-Jan-1995")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := res.Rows[0]["year"]; got != int64(1995) {
		t.Fatalf("expected 1995, got %#v", got)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ExecTx: commit
// ─────────────────────────────────────────────────────────────────────────────

func TestExecTx_Commit(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	err := d.ExecTx(ctx, func(tx *db.Tx) error {
		_, err := tx.Exec(ctx, insertMovie, 10, "Seven (Se7en) (1995)", "Crime|Thriller", "01-Jan-1995")
		return err
	})
	if err != nil {
		t.Fatalf("tx commit: %v", err)
	}
	if n := countMovies(t, d, `WHERE movie_id = ?`, 10); n != 1 {
		t.Fatalf("expected 1 committed row, got %d", n)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ExecTx: rollback on error
// ─────────────────────────────────────────────────────────────────────────────

func TestExecTx_RollbackOnError(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	sentinelErr := errors.New("intentional failure")

	err := d.ExecTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, insertMovie, 11, "Usual Suspects, The (1995)", "Crime|Thriller", "14-Aug-1995"); err != nil {
			return err
		}
		return sentinelErr // force rollback
	})
	if !errors.Is(err, sentinelErr) {
		t.Fatalf("expected sentinelErr, got %v", err)
	}
	if n := countMovies(t, d, `WHERE movie_id = ?`, 11); n != 0 {
		t.Fatalf("expected 0 rows after rollback, got %d", n)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ExecTx: rollback on panic
// ─────────────────────────────────────────────────────────────────────────────

func TestExecTx_RollbackOnPanic(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate")
		}
		if n := countMovies(t, d, ``); n != 0 {
			t.Fatalf("expected 0 rows after panic, got %d", n)
		}
	}()

	_ = d.ExecTx(ctx, func(tx *db.Tx) error {
		_, _ = tx.Exec(ctx, insertMovie, 12, "Mighty Aphrodite (1995)", "Comedy", "30-Oct-1995")
		panic("test panic")
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Prepared statements
// ─────────────────────────────────────────────────────────────────────────────

func TestPrepare(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	stmt, err := d.Prepare(ctx, insertMovie)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer stmt.Close()

	for id := 20; id < 23; id++ {
		if _, err := stmt.Exec(ctx, id, "Prepared", "Drama", ""); err != nil {
			t.Fatalf("exec prepared: %v", err)
		}
	}
	if n := countMovies(t, d, `WHERE title = ?`, "Prepared"); n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error mapping: DuplicateKey (SQLite)
// ─────────────────────────────────────────────────────────────────────────────

func TestErrorMapper_DuplicateKey(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	insert := func() error {
		_, err := d.Exec(ctx, insertMovie, 1, "Toy Story (1995)", "Animation", "01-Jan-1995")
		return err
	}

	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := insert() // primary key violation
	if !db.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Hooks: verify they are called
// ─────────────────────────────────────────────────────────────────────────────

type countingHook struct {
	before  int
	after   int
	lastErr error
}

func (h *countingHook) BeforeQuery(_ context.Context, _ string, _ []any) { h.before++ }
func (h *countingHook) AfterQuery(_ context.Context, _ string, _ []any, _ time.Duration, err error) {
	h.after++
	h.lastErr = err
}

type panickingHook struct{}

func (panickingHook) BeforeQuery(context.Context, string, []any) { panic("before") }
func (panickingHook) AfterQuery(context.Context, string, []any, time.Duration, error) {
	panic("after")
}

func TestHooks_CalledOnExec(t *testing.T) {
	hook := &countingHook{}
	d := openMemory(t, hook)

	_, _ = d.Exec(context.Background(), `SELECT 1`)

	if hook.before != 1 || hook.after != 1 {
		t.Fatalf("hook not called: before=%d after=%d", hook.before, hook.after)
	}
}

func TestHooks_SeeMappedErrorOnExecute(t *testing.T) {
	hook := &countingHook{}
	d := openMemory(t, hook)

	_, _ = d.Execute(context.Background(), `SELEC 1`)

	if hook.after != 1 || !db.IsSyntax(hook.lastErr) {
		t.Fatalf("expected one AfterQuery with ErrSyntax, got after=%d err=%v", hook.after, hook.lastErr)
	}
}

func TestHooks_PanicIsRecovered(t *testing.T) {
	hook := &countingHook{}
	d := openMemory(t, panickingHook{}, nil, hook)

	if _, err := d.Execute(context.Background(), `SELECT 1 AS one`); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if hook.before != 1 || hook.after != 1 {
		t.Fatalf("hooks after a panicking hook were skipped: before=%d after=%d", hook.before, hook.after)
	}
}

func TestLogHook_LogsQueryErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := openMemory(t, db.NewLogHook(db.LogHookConfig{Logger: logger, LogArgs: true}))

	_, _ = d.Execute(context.Background(), `SELECT * FROM missing WHERE id = ?`, 7)

	out := buf.String()
	if !strings.Contains(out, "query error") || !strings.Contains(out, "missing") {
		t.Fatalf("expected a query error entry, got %q", out)
	}
	if !strings.Contains(out, "args=[7]") {
		t.Fatalf("expected bound args in %q", out)
	}
}

func TestMetricsHook_QueryStats(t *testing.T) {
	stats := &db.QueryStats{}
	d := openMemory(t, db.NewMetricsHook(stats))
	ctx := context.Background()

	_, _ = d.Execute(ctx, `SELECT 1`)
	_, _ = d.Execute(ctx, `SELECT 2`)
	_, _ = d.Execute(ctx, `SELEC 3`)

	snap := stats.Snapshot()
	if snap.Total != 3 || snap.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", snap)
	}
	if snap.Slowest > snap.Elapsed {
		t.Fatalf("slowest %s exceeds elapsed %s", snap.Slowest, snap.Elapsed)
	}

	v := snap.LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("expected a group value, got %s", v.Kind())
	}
	attrs := v.Group()
	if len(attrs) != 4 || attrs[0].Key != "total" || attrs[0].Value.Int64() != 3 {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// BatchExec
// ─────────────────────────────────────────────────────────────────────────────

func TestBatchExec(t *testing.T) {
	d := newTestDB(t)

	type row struct {
		ID    int
		Title string
	}
	items := []row{
		{1, "Batch1"},
		{2, "Batch2"},
		{3, "Batch3"},
	}

	err := db.BatchExec(d, context.Background(), insertMovie, items,
		func(r row) []any { return []any{r.ID, r.Title, "Drama", ""} },
	)
	if err != nil {
		t.Fatalf("batch exec: %v", err)
	}
	if n := countMovies(t, d, `WHERE title LIKE 'Batch%'`); n != 3 {
		t.Fatalf("expected 3 batch rows, got %d", n)
	}
}

func TestBatchExec_AllOrNothing(t *testing.T) {
	d := newTestDB(t)

	ids := []int{1, 2, 2, 3}
	err := db.BatchExec(d, context.Background(), insertMovie, ids,
		func(id int) []any { return []any{id, "Dup", "Drama", ""} },
	)
	if !db.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if n := countMovies(t, d, ``); n != 0 {
		t.Fatalf("expected the batch to roll back, got %d rows", n)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Context timeout
// ─────────────────────────────────────────────────────────────────────────────

func TestContextCancellation(t *testing.T) {
	d := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	res, err := d.Execute(ctx, `SELECT 1`)
	if !db.IsTimeout(err) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the context cause to be preserved, got %v", err)
	}
	if !res.Empty() {
		t.Fatal("expected empty result")
	}
}

func TestDefaultTimeout_KeepsCallerDeadline(t *testing.T) {
	d, err := db.Open(db.Config{
		DSN:            ":memory:",
		DriverName:     "sqlite3",
		DefaultTimeout: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := d.Execute(ctx, `SELECT 1`); err != nil {
		t.Fatalf("caller deadline should win over DefaultTimeout: %v", err)
	}
}
