package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skryldev/movie-warehouse/db"
	"github.com/Skryldev/movie-warehouse/models"
	"github.com/Skryldev/movie-warehouse/validation"
)

// MinRatingsForRanking is the smallest number of ratings a movie needs before
// it can appear in an average-rating ranking.
const MinRatingsForRanking = 10

// SearchLimit caps title searches, the only query without a caller limit.
const SearchLimit = 100

// ErrInvalidParams wraps every parameter validation failure.
var ErrInvalidParams = errors.New("repo/movie: invalid parameters")

// ─────────────────────────────────────────────────────────────────────────────
// MovieCatalog
// ─────────────────────────────────────────────────────────────────────────────

// MovieCatalog is the fixed set of analytic questions the warehouse answers.
// Every method builds one statement, delegates to the Executor and returns its
// Result unchanged; on failure the Result is empty and err is non-nil.
type MovieCatalog interface {
	MostPopular(ctx context.Context, limit int) (*db.Result, error)
	ByYear(ctx context.Context, year, limit int) (*db.Result, error)
	TopRatedInGenre(ctx context.Context, genre string, limit int) (*db.Result, error)
	Search(ctx context.Context, text string) (*db.Result, error)
	Get(ctx context.Context, movieID int64) (*db.Result, error)
	ByGenre(ctx context.Context, genre string, limit int) (*db.Result, error)
	TopRatedByDemographic(ctx context.Context, field models.Demographic, value string, limit int) (*db.Result, error)
	TopRatedByDecade(ctx context.Context, decadeStart, limit int) (*db.Result, error)
	GenrePreferencesByDemographic(ctx context.Context, field models.Demographic, value string, limit int) (*db.Result, error)
	Similar(ctx context.Context, movieID int64, limit int) (*db.Result, error)
}

// movieCatalog is the production implementation backed by a db.Executor.
type movieCatalog struct {
	exec db.Executor
}

// NewMovieCatalog returns a MovieCatalog running its statements on exec.
func NewMovieCatalog(exec db.Executor) MovieCatalog {
	return &movieCatalog{exec: exec}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL templates
//
// Every value is a `?` placeholder. The only text spliced in with Sprintf is
// dialect SQL (the release-year expression) and whitelisted column names.
// ─────────────────────────────────────────────────────────────────────────────

const (
	sqlMostPopular = `
		SELECT m.movie_id, m.title, COUNT(r.rating) AS num_ratings
		FROM   ratings r
		JOIN   movies m ON r.movie_id = m.movie_id
		GROUP  BY m.movie_id, m.title
		ORDER  BY num_ratings DESC, m.movie_id
		LIMIT  ?`

	// %[1]s: release-year expression over m.release_date
	sqlByYear = `
		SELECT m.movie_id, m.title, COUNT(r.rating) AS num_ratings
		FROM   ratings r
		JOIN   movies m ON r.movie_id = m.movie_id
		WHERE  %[1]s = ?
		GROUP  BY m.movie_id, m.title
		ORDER  BY num_ratings DESC, m.movie_id
		LIMIT  ?`

	sqlTopRatedInGenre = `
		SELECT m.movie_id, m.title, AVG(r.rating) AS avg_rating, COUNT(r.rating) AS num_ratings
		FROM   ratings r
		JOIN   movies m ON r.movie_id = m.movie_id
		WHERE  m.genres LIKE ?
		GROUP  BY m.movie_id, m.title
		HAVING COUNT(r.rating) >= ?
		ORDER  BY avg_rating DESC, num_ratings DESC, m.movie_id
		LIMIT  ?`

	sqlSearch = `
		SELECT movie_id, title, genres, release_date
		FROM   movies
		WHERE  title LIKE ?
		ORDER  BY movie_id
		LIMIT  ?`

	sqlGet = `
		SELECT movie_id, title, genres, release_date
		FROM   movies
		WHERE  movie_id = ?`

	sqlByGenre = `
		SELECT m.movie_id, m.title
		FROM   movies m
		WHERE  m.genres LIKE ?
		LIMIT  ?`

	// %[1]s: whitelisted users column
	sqlTopRatedByDemographic = `
		SELECT m.movie_id, m.title, AVG(r.rating) AS avg_rating, COUNT(r.rating) AS num_ratings
		FROM   ratings r
		JOIN   movies m ON r.movie_id = m.movie_id
		JOIN   users u ON r.user_id = u.user_id
		WHERE  u.%[1]s = ?
		GROUP  BY m.movie_id, m.title
		HAVING COUNT(r.rating) >= ?
		ORDER  BY avg_rating DESC, num_ratings DESC, m.movie_id
		LIMIT  ?`

	// %[1]s: release-year expression over m.release_date
	sqlTopRatedByDecade = `
		SELECT m.movie_id, m.title, AVG(r.rating) AS average_rating
		FROM   movies m
		JOIN   ratings r ON m.movie_id = r.movie_id
		WHERE  %[1]s >= ? AND %[1]s < ?
		GROUP  BY m.movie_id, m.title
		ORDER  BY average_rating DESC, m.movie_id
		LIMIT  ?`

	// %[1]s: whitelisted users column
	sqlGenrePreferences = `
		SELECT m.genres, COUNT(r.rating) AS num_ratings
		FROM   ratings r
		JOIN   movies m ON r.movie_id = m.movie_id
		JOIN   users u ON r.user_id = u.user_id
		WHERE  u.%[1]s = ?
		GROUP  BY m.genres
		ORDER  BY num_ratings DESC, m.genres
		LIMIT  ?`

	sqlSimilar = `
		SELECT m.movie_id, m.title, COUNT(r.rating) AS num_ratings
		FROM   ratings r
		JOIN   movies m ON r.movie_id = m.movie_id
		WHERE  m.genres IN (SELECT genres FROM movies WHERE movie_id = ?)
		  AND  m.movie_id <> ?
		GROUP  BY m.movie_id, m.title
		ORDER  BY num_ratings DESC, m.movie_id
		LIMIT  ?`
)

// ─────────────────────────────────────────────────────────────────────────────
// Parameter structs
// ─────────────────────────────────────────────────────────────────────────────

type limitParams struct {
	Limit int `validate:"min=1"`
}

type yearParams struct {
	Year  int `validate:"min=1000,max=9999"`
	Limit int `validate:"min=1"`
}

type genreParams struct {
	Genre string `validate:"required"`
	Limit int    `validate:"min=1"`
}

type demographicParams struct {
	Field models.Demographic `validate:"oneof=age gender occupation"`
	Value string             `validate:"required"`
	Limit int                `validate:"min=1"`
}

type movieParams struct {
	MovieID int64 `validate:"min=1"`
}

type similarParams struct {
	MovieID int64 `validate:"min=1"`
	Limit   int   `validate:"min=1"`
}

func check(p any) error {
	if err := validation.ValidateStruct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// MostPopular ranks movies by how many ratings they received.
func (c *movieCatalog) MostPopular(ctx context.Context, limit int) (*db.Result, error) {
	if err := check(limitParams{Limit: limit}); err != nil {
		return db.EmptyResult(), err
	}
	return c.exec.Execute(ctx, sqlMostPopular, limit)
}

// ByYear ranks movies released in year by rating count.
func (c *movieCatalog) ByYear(ctx context.Context, year, limit int) (*db.Result, error) {
	if err := check(yearParams{Year: year, Limit: limit}); err != nil {
		return db.EmptyResult(), err
	}
	q := fmt.Sprintf(sqlByYear, c.exec.Dialect().ReleaseYear("m.release_date"))
	return c.exec.Execute(ctx, q, year, limit)
}

// TopRatedInGenre ranks movies whose genre string contains genre by average
// rating, ignoring movies under MinRatingsForRanking ratings.
func (c *movieCatalog) TopRatedInGenre(ctx context.Context, genre string, limit int) (*db.Result, error) {
	if err := check(genreParams{Genre: genre, Limit: limit}); err != nil {
		return db.EmptyResult(), err
	}
	return c.exec.Execute(ctx, sqlTopRatedInGenre, contains(genre), MinRatingsForRanking, limit)
}

// Search returns movies whose title contains text. Case sensitivity follows
// the store's LIKE.
func (c *movieCatalog) Search(ctx context.Context, text string) (*db.Result, error) {
	return c.exec.Execute(ctx, sqlSearch, contains(text), SearchLimit)
}

// Get returns the movie with movieID, or an empty result.
func (c *movieCatalog) Get(ctx context.Context, movieID int64) (*db.Result, error) {
	if err := check(movieParams{MovieID: movieID}); err != nil {
		return db.EmptyResult(), err
	}
	return c.exec.Execute(ctx, sqlGet, movieID)
}

// ByGenre lists movie ids and titles whose genre string contains genre.
func (c *movieCatalog) ByGenre(ctx context.Context, genre string, limit int) (*db.Result, error) {
	if err := check(genreParams{Genre: genre, Limit: limit}); err != nil {
		return db.EmptyResult(), err
	}
	return c.exec.Execute(ctx, sqlByGenre, contains(genre), limit)
}

// TopRatedByDemographic ranks movies by average rating among users whose
// field equals value.
func (c *movieCatalog) TopRatedByDemographic(ctx context.Context, field models.Demographic, value string, limit int) (*db.Result, error) {
	arg, err := demographicArg(field, value, limit)
	if err != nil {
		return db.EmptyResult(), err
	}
	q := fmt.Sprintf(sqlTopRatedByDemographic, field.Column())
	return c.exec.Execute(ctx, q, arg, MinRatingsForRanking, limit)
}

// TopRatedByDecade ranks movies released in [decadeStart, decadeStart+10) by
// average rating.
func (c *movieCatalog) TopRatedByDecade(ctx context.Context, decadeStart, limit int) (*db.Result, error) {
	if err := check(yearParams{Year: decadeStart, Limit: limit}); err != nil {
		return db.EmptyResult(), err
	}
	q := fmt.Sprintf(sqlTopRatedByDecade, c.exec.Dialect().ReleaseYear("m.release_date"))
	return c.exec.Execute(ctx, q, decadeStart, decadeStart+10, limit)
}

// GenrePreferencesByDemographic ranks genre strings by rating count among
// users whose field equals value.
func (c *movieCatalog) GenrePreferencesByDemographic(ctx context.Context, field models.Demographic, value string, limit int) (*db.Result, error) {
	arg, err := demographicArg(field, value, limit)
	if err != nil {
		return db.EmptyResult(), err
	}
	q := fmt.Sprintf(sqlGenrePreferences, field.Column())
	return c.exec.Execute(ctx, q, arg, limit)
}

// Similar ranks movies with exactly the same genre string as movieID,
// excluding movieID itself, by rating count.
func (c *movieCatalog) Similar(ctx context.Context, movieID int64, limit int) (*db.Result, error) {
	if err := check(similarParams{MovieID: movieID, Limit: limit}); err != nil {
		return db.EmptyResult(), err
	}
	return c.exec.Execute(ctx, sqlSimilar, movieID, movieID, limit)
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func contains(s string) string { return "%" + s + "%" }

func demographicArg(field models.Demographic, value string, limit int) (any, error) {
	if err := check(demographicParams{Field: field, Value: value, Limit: limit}); err != nil {
		return nil, err
	}
	arg, err := field.Arg(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return arg, nil
}

var _ MovieCatalog = (*movieCatalog)(nil)
