package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skryldev/movie-warehouse/db"
	"github.com/Skryldev/movie-warehouse/migrations"
	"github.com/Skryldev/movie-warehouse/models"
)

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 5000

const (
	insertMovie  = "INSERT INTO movies (movie_id, title, genres, release_date) VALUES (?, ?, ?, ?)"
	insertUser   = "INSERT INTO users (user_id, age, gender, occupation, zip_code) VALUES (?, ?, ?, ?, ?)"
	insertRating = "INSERT INTO ratings (user_id, movie_id, rating, rated_at) VALUES (?, ?, ?, ?)"
)

// Loader writes datasets into a database/sql store.
type Loader struct {
	db        *db.DB
	logger    *slog.Logger
	batchSize int
}

// New returns a Loader writing to d.
func New(d *db.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: d, logger: logger, batchSize: DefaultBatchSize}
}

// SetBatchSize changes the rows per transaction.
func (l *Loader) SetBatchSize(n int) {
	if n > 0 {
		l.batchSize = n
	}
}

// Load inserts every row of ds. Tables are written movies, users, ratings;
// each batch commits on its own.
func (l *Loader) Load(ctx context.Context, ds *Dataset) error {
	start := time.Now()
	if err := insertAll(ctx, l, "movies", insertMovie, ds.Movies,
		func(m models.Movie) []any { return []any{m.ID, m.Title, m.Genres, m.ReleaseDate} }); err != nil {
		return err
	}
	if err := insertAll(ctx, l, "users", insertUser, ds.Users,
		func(u models.User) []any { return []any{u.ID, u.Age, u.Gender, u.Occupation, u.ZipCode} }); err != nil {
		return err
	}
	if err := insertAll(ctx, l, "ratings", insertRating, ds.Ratings,
		func(r models.Rating) []any { return []any{r.UserID, r.MovieID, r.Score, r.RatedAt} }); err != nil {
		return err
	}
	l.logger.Info("loader: dataset loaded",
		"movies", len(ds.Movies),
		"users", len(ds.Users),
		"ratings", len(ds.Ratings),
		"duration", time.Since(start))
	return nil
}

func insertAll[T any](ctx context.Context, l *Loader, table, query string, items []T, argsFn func(T) []any) error {
	for lo := 0; lo < len(items); lo += l.batchSize {
		hi := min(lo+l.batchSize, len(items))
		if err := db.BatchExec(l.db, ctx, query, items[lo:hi], argsFn); err != nil {
			return fmt.Errorf("loader: %s rows %d..%d: %w", table, lo+1, hi, err)
		}
		l.logger.Debug("loader: batch committed", "table", table, "rows", hi)
	}
	return nil
}

// Reset deletes every row, children first.
func (l *Loader) Reset(ctx context.Context) error {
	tables := migrations.Tables()
	return l.db.ExecTx(ctx, func(tx *db.Tx) error {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := tx.Exec(ctx, "DELETE FROM "+tables[i]); err != nil {
				return fmt.Errorf("loader: clear %s: %w", tables[i], err)
			}
		}
		return nil
	})
}

// Counts returns the row count of every warehouse table.
func Counts(ctx context.Context, q db.Querier) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, table := range migrations.Tables() {
		var n int64
		if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("loader: count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}
