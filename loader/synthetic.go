package loader

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"

	"github.com/Skryldev/movie-warehouse/models"
)

// Occupations is the MovieLens occupation vocabulary.
var Occupations = []string{
	"administrator", "artist", "doctor", "educator", "engineer",
	"entertainment", "executive", "healthcare", "homemaker", "lawyer",
	"librarian", "marketing", "none", "other", "programmer", "retired",
	"salesman", "scientist", "student", "technician", "writer",
}

// SyntheticOptions sizes a generated dataset.
type SyntheticOptions struct {
	Movies int
	Users  int
	// RatingsPerUser is the upper bound of ratings each user gives.
	RatingsPerUser int
	Seed           int64
}

// Synthetic generates a dataset shaped like MovieLens. Ids, demographics and
// ratings are reproducible for a given Seed; titles come from faker.
func Synthetic(opts SyntheticOptions) *Dataset {
	if opts.Movies < 1 {
		opts.Movies = 1
	}
	if opts.Users < 1 {
		opts.Users = 1
	}
	if opts.RatingsPerUser < 1 || opts.RatingsPerUser > opts.Movies {
		opts.RatingsPerUser = opts.Movies
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	ds := &Dataset{
		Movies: make([]models.Movie, 0, opts.Movies),
		Users:  make([]models.User, 0, opts.Users),
	}

	for id := 1; id <= opts.Movies; id++ {
		year := 1930 + rng.Intn(70)
		released := time.Date(year, time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		ds.Movies = append(ds.Movies, models.Movie{
			ID:          int64(id),
			Title:       fmt.Sprintf("%s (%d)", title(), year),
			Genres:      pickGenres(rng),
			ReleaseDate: released.Format("02-Jan-2006"),
		})
	}

	for id := 1; id <= opts.Users; id++ {
		gender := "M"
		if rng.Intn(2) == 0 {
			gender = "F"
		}
		ds.Users = append(ds.Users, models.User{
			ID:         int64(id),
			Age:        7 + rng.Intn(67),
			Gender:     gender,
			Occupation: Occupations[rng.Intn(len(Occupations))],
			ZipCode:    fmt.Sprintf("%05d", rng.Intn(100000)),
		})

		n := 1 + rng.Intn(opts.RatingsPerUser)
		for _, idx := range rng.Perm(opts.Movies)[:n] {
			ds.Ratings = append(ds.Ratings, models.Rating{
				UserID:  int64(id),
				MovieID: int64(idx + 1),
				Score:   1 + rng.Intn(5),
				RatedAt: 874724710 + rng.Int63n(18_000_000),
			})
		}
	}
	return ds
}

func title() string {
	words := strings.Fields(faker.Sentence())
	if len(words) > 3 {
		words = words[:3]
	}
	for i, w := range words {
		w = strings.Trim(w, ".,")
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// pickGenres returns one to three distinct genres joined in file order.
func pickGenres(rng *rand.Rand) string {
	n := 1 + rng.Intn(3)
	picked := make(map[int]bool, n)
	for len(picked) < n {
		picked[1+rng.Intn(len(Genres)-1)] = true
	}
	out := make([]string, 0, n)
	for i := 1; i < len(Genres); i++ {
		if picked[i] {
			out = append(out, Genres[i])
		}
	}
	return strings.Join(out, models.GenreSeparator)
}
