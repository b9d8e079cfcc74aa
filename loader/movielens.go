// Package loader fills a database/sql store with the MovieLens 100K files
// (u.item, u.user, u.data) or with synthetic rows.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/Skryldev/movie-warehouse/models"
)

// File names inside a MovieLens 100K directory.
const (
	MoviesFile  = "u.item"
	UsersFile   = "u.user"
	RatingsFile = "u.data"
)

// Genres are the u.item genre flag columns, in file order.
var Genres = []string{
	"unknown", "Action", "Adventure", "Animation", "Children's", "Comedy",
	"Crime", "Documentary", "Drama", "Fantasy", "Film-Noir", "Horror",
	"Musical", "Mystery", "Romance", "Sci-Fi", "Thriller", "War", "Western",
}

// Dataset is one complete set of rows to load.
type Dataset struct {
	Movies  []models.Movie
	Users   []models.User
	Ratings []models.Rating
}

// ParseError reports a malformed input line.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("loader: %s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadDir parses the three MovieLens files in dir.
func ReadDir(dir string) (*Dataset, error) {
	ds := &Dataset{}
	var err error
	if ds.Movies, err = parseFile(filepath.Join(dir, MoviesFile), ParseMovies); err != nil {
		return nil, err
	}
	if ds.Users, err = parseFile(filepath.Join(dir, UsersFile), ParseUsers); err != nil {
		return nil, err
	}
	if ds.Ratings, err = parseFile(filepath.Join(dir, RatingsFile), ParseRatings); err != nil {
		return nil, err
	}
	return ds, nil
}

func parseFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()
	return parse(f)
}

// ParseMovies reads u.item: id|title|release date|video date|url|19 flags.
// The file is ISO-8859-1 and is decoded to UTF-8 before parsing.
func ParseMovies(r io.Reader) ([]models.Movie, error) {
	var out []models.Movie
	r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	err := eachLine(r, MoviesFile, func(line string) error {
		f := strings.Split(line, "|")
		if len(f) != 5+len(Genres) {
			return fmt.Errorf("want %d fields, got %d", 5+len(Genres), len(f))
		}
		id, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil {
			return fmt.Errorf("movie id: %w", err)
		}
		var genres []string
		for i, flag := range f[5:] {
			if flag == "1" {
				genres = append(genres, Genres[i])
			}
		}
		out = append(out, models.Movie{
			ID:          id,
			Title:       f[1],
			Genres:      strings.Join(genres, models.GenreSeparator),
			ReleaseDate: f[2],
		})
		return nil
	})
	return out, err
}

// ParseUsers reads u.user: id|age|gender|occupation|zip.
func ParseUsers(r io.Reader) ([]models.User, error) {
	var out []models.User
	err := eachLine(r, UsersFile, func(line string) error {
		f := strings.Split(line, "|")
		if len(f) != 5 {
			return fmt.Errorf("want 5 fields, got %d", len(f))
		}
		id, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		age, err := strconv.Atoi(f[1])
		if err != nil {
			return fmt.Errorf("age: %w", err)
		}
		out = append(out, models.User{ID: id, Age: age, Gender: f[2], Occupation: f[3], ZipCode: f[4]})
		return nil
	})
	return out, err
}

// ParseRatings reads u.data: user id, item id, rating, timestamp separated
// by tabs.
func ParseRatings(r io.Reader) ([]models.Rating, error) {
	var out []models.Rating
	err := eachLine(r, RatingsFile, func(line string) error {
		f := strings.Fields(line)
		if len(f) != 4 {
			return fmt.Errorf("want 4 fields, got %d", len(f))
		}
		var n [4]int64
		for i, s := range f {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("field %d: %w", i+1, err)
			}
			n[i] = v
		}
		if n[2] < 1 || n[2] > 5 {
			return fmt.Errorf("rating %d out of range 1..5", n[2])
		}
		out = append(out, models.Rating{UserID: n[0], MovieID: n[1], Score: int(n[2]), RatedAt: n[3]})
		return nil
	})
	return out, err
}

func eachLine(r io.Reader, name string, fn func(string) error) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(line); err != nil {
			return &ParseError{File: name, Line: lineNo, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("loader: reading %s: %w", name, err)
	}
	return nil
}
