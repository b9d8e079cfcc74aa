package menu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skryldev/movie-warehouse/db"
	"github.com/Skryldev/movie-warehouse/models"
	"github.com/Skryldev/movie-warehouse/output"
	"github.com/Skryldev/movie-warehouse/repo"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fake catalog
// ─────────────────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	calls []string
	res   *db.Result
	err   error
}

func (f *fakeCatalog) record(format string, args ...any) (*db.Result, error) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	if f.err != nil {
		return db.EmptyResult(), f.err
	}
	if f.res == nil {
		return db.EmptyResult(), nil
	}
	return f.res, nil
}

func (f *fakeCatalog) MostPopular(_ context.Context, limit int) (*db.Result, error) {
	return f.record("MostPopular(%d)", limit)
}
func (f *fakeCatalog) ByYear(_ context.Context, year, limit int) (*db.Result, error) {
	return f.record("ByYear(%d,%d)", year, limit)
}
func (f *fakeCatalog) TopRatedInGenre(_ context.Context, genre string, limit int) (*db.Result, error) {
	return f.record("TopRatedInGenre(%s,%d)", genre, limit)
}
func (f *fakeCatalog) Search(_ context.Context, text string) (*db.Result, error) {
	return f.record("Search(%s)", text)
}
func (f *fakeCatalog) Get(_ context.Context, id int64) (*db.Result, error) {
	return f.record("Get(%d)", id)
}
func (f *fakeCatalog) ByGenre(_ context.Context, genre string, limit int) (*db.Result, error) {
	return f.record("ByGenre(%s,%d)", genre, limit)
}
func (f *fakeCatalog) TopRatedByDemographic(_ context.Context, field models.Demographic, value string, limit int) (*db.Result, error) {
	return f.record("TopRatedByDemographic(%s,%s,%d)", field, value, limit)
}
func (f *fakeCatalog) TopRatedByDecade(_ context.Context, start, limit int) (*db.Result, error) {
	return f.record("TopRatedByDecade(%d,%d)", start, limit)
}
func (f *fakeCatalog) GenrePreferencesByDemographic(_ context.Context, field models.Demographic, value string, limit int) (*db.Result, error) {
	return f.record("GenrePreferencesByDemographic(%s,%s,%d)", field, value, limit)
}
func (f *fakeCatalog) Similar(_ context.Context, id int64, limit int) (*db.Result, error) {
	return f.record("Similar(%d,%d)", id, limit)
}

var _ repo.MovieCatalog = (*fakeCatalog)(nil)

func run(t *testing.T, cat *fakeCatalog, input string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{
		WithColor(false),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	m := New(cat, strings.NewReader(input), &out, opts...)
	require.NoError(t, m.Run(context.Background()))
	return out.String()
}

func lines(s ...string) string { return strings.Join(s, "\n") + "\n" }

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRun_QuitImmediately(t *testing.T) {
	cat := &fakeCatalog{}
	out := run(t, cat, lines("11"))

	require.Contains(t, out, Title)
	require.Contains(t, out, "1. Most popular movies")
	require.Contains(t, out, "11. Quit")
	require.Contains(t, out, "Goodbye!")
	require.Empty(t, cat.calls)
}

func TestRun_EOFEndsLikeQuit(t *testing.T) {
	out := run(t, &fakeCatalog{}, "")
	require.Contains(t, out, "Goodbye!")
}

func TestRun_InvalidChoices(t *testing.T) {
	cat := &fakeCatalog{}
	out := run(t, cat, lines("0", "12", "abc", "11"))

	require.Equal(t, 3, strings.Count(out, "Invalid choice. Please try again."))
	require.Equal(t, 4, strings.Count(out, Title), "menu reprinted after every invalid choice")
	require.Empty(t, cat.calls)
}

func TestRun_DispatchesEveryAction(t *testing.T) {
	cat := &fakeCatalog{}
	run(t, cat, lines(
		"1", "10",
		"2", "1995", "5",
		"3", "Comedy", "3",
		"4", "Star",
		"5", "50",
		"6", "Horror", "7",
		"7", "gender", "F", "4",
		"8", "1980", "6",
		"9", "AGE", "25", "2",
		"10", "1", "8",
		"11",
	))

	require.Equal(t, []string{
		"MostPopular(10)",
		"ByYear(1995,5)",
		"TopRatedInGenre(Comedy,3)",
		"Search(Star)",
		"Get(50)",
		"ByGenre(Horror,7)",
		"TopRatedByDemographic(gender,F,4)",
		"TopRatedByDecade(1980,6)",
		"GenrePreferencesByDemographic(age,25,2)",
		"Similar(1,8)",
	}, cat.calls)
}

func TestRun_MalformedNumberReprompts(t *testing.T) {
	cat := &fakeCatalog{}
	out := run(t, cat, lines("1", "ten", "", "10", "11"))

	require.Contains(t, out, `"ten" is not a whole number`)
	require.Equal(t, 3, strings.Count(out, promptLimit))
	require.Equal(t, []string{"MostPopular(10)"}, cat.calls)
}

func TestRun_UnknownDemographicReprompts(t *testing.T) {
	cat := &fakeCatalog{}
	out := run(t, cat, lines("7", "zip", "age", "old", "30", "5", "11"))

	require.Contains(t, out, "unknown demographic")
	require.Contains(t, out, `"old" is not a valid age`)
	require.Equal(t, []string{"TopRatedByDemographic(age,30,5)"}, cat.calls)
}

func TestDemographicPrompt(t *testing.T) {
	require.Equal(t, "Enter the demographic (age, gender, or occupation): ", promptDemographic)
	require.Equal(t, "Enter the demographic (age): ", demographicPrompt([]models.Demographic{models.DemographicAge}))
}

func TestRun_StopsReadingInputOnReturn(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	before := runtime.NumGoroutine()
	go func() { _, _ = pw.Write([]byte("11\nleftover\n")) }()

	m := New(&fakeCatalog{}, pr, io.Discard,
		WithColor(false),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, m.Run(context.Background()))

	require.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		time.Second, 10*time.Millisecond, "input reader still running after Run returned")
}

func TestRun_EmptyResult(t *testing.T) {
	out := run(t, &fakeCatalog{}, lines("5", "99999", "11"))
	require.Contains(t, out, "No results.")
}

func TestRun_QueryErrorIsDistinctFromEmpty(t *testing.T) {
	cat := &fakeCatalog{err: &db.DBError{Sentinel: db.ErrSyntax, Cause: errors.New("ParseException")}}
	out := run(t, cat, lines("1", "5", "11"))

	require.Contains(t, out, "Error executing query:")
	require.NotContains(t, out, "No results.")
}

func TestRun_InvalidParams(t *testing.T) {
	cat := &fakeCatalog{err: fmt.Errorf("%w: limit must be at least 1", repo.ErrInvalidParams)}
	out := run(t, cat, lines("1", "0", "11"))
	require.Contains(t, out, "Invalid input:")
}

func TestRun_RendersRows(t *testing.T) {
	cat := &fakeCatalog{res: &db.Result{
		Columns: []string{"movie_id", "title"},
		Rows:    []map[string]any{{"movie_id": int64(50), "title": "Star Wars (1977)"}},
	}}

	out := run(t, cat, lines("4", "Star", "11"), WithFormatter(output.NewCSVFormatter(nil)))
	require.Contains(t, out, "movie_id,title\n50,Star Wars (1977)\n")
}

func TestRun_LogsStats(t *testing.T) {
	var logs bytes.Buffer
	stats := &db.QueryStats{}
	stats.RecordQuery("SELECT 1", 0, true)

	m := New(&fakeCatalog{}, strings.NewReader("11\n"), io.Discard,
		WithColor(false),
		WithStats(stats),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, m.Run(context.Background()))

	require.Contains(t, logs.String(), "session finished")
	require.Contains(t, logs.String(), "queries.total=1")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()
	m := New(&fakeCatalog{}, pr, io.Discard, WithColor(false),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.ErrorIs(t, m.Run(ctx), context.Canceled)
}

func TestParseChoice(t *testing.T) {
	n, err := parseChoice(" 7 ")
	require.NoError(t, err)
	require.Equal(t, 7, n)

	for _, bad := range []string{"0", "12", "-1", "1.5", "", "quit"} {
		_, err := parseChoice(bad)
		require.ErrorIs(t, err, ErrInvalidChoice, bad)
	}
}
