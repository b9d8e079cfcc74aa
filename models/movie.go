package models

// GenreSeparator joins category names inside Movie.Genres.
const GenreSeparator = "|"

// Movie represents a row in the "movies" table.
type Movie struct {
	ID          int64
	Title       string
	Genres      string // composite, e.g. "Action|Comedy"
	ReleaseDate string // dd-MMM-yyyy, may be empty
}

// Rating represents a row in the "ratings" table.
type Rating struct {
	UserID  int64
	MovieID int64
	Score   int
	RatedAt int64 // unix seconds
}
