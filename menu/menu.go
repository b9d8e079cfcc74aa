// Package menu is the interactive front end: it prints the numbered
// actions, collects typed parameters, runs the matching catalog query and
// renders the result.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/Skryldev/movie-warehouse/db"
	"github.com/Skryldev/movie-warehouse/models"
	"github.com/Skryldev/movie-warehouse/output"
	"github.com/Skryldev/movie-warehouse/repo"
)

// Title heads the option list.
const Title = "Movie Recommendation System:"

// QuitChoice ends the session.
const QuitChoice = 11

// Options lists the action labels in menu order, starting at 1.
var Options = []string{
	"Most popular movies",
	"Movies from a specific year",
	"Top-rated movies in a specific genre",
	"Search movies by title",
	"Get movie details by movie ID",
	"Movies by genre",
	"Top-rated movies by user demographics",
	"Top-rated movies by decade",
	"Genre preferences by demographic",
	"Similar movies",
	"Quit",
}

// ErrInvalidChoice is reported for a choice outside 1..11.
var ErrInvalidChoice = errors.New("invalid choice")

var errQuit = errors.New("quit requested")

// Menu runs the read-eval-print loop over a MovieCatalog.
type Menu struct {
	catalog   repo.MovieCatalog
	in        io.Reader
	out       io.Writer
	formatter output.Formatter
	logger    *slog.Logger
	stats     *db.QueryStats

	heading *color.Color
	errorC  *color.Color
	warnC   *color.Color
	byeC    *color.Color

	lines chan string
}

// Option configures a Menu.
type Option func(*Menu)

// WithFormatter replaces the default table formatter.
func WithFormatter(f output.Formatter) Option {
	return func(m *Menu) { m.formatter = f }
}

// WithLogger sets the logger used for session events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Menu) { m.logger = l }
}

// WithStats logs s when the session ends.
func WithStats(s *db.QueryStats) Option {
	return func(m *Menu) { m.stats = s }
}

// WithColor turns ANSI colors on or off. Colors otherwise follow the
// terminal detection of fatih/color.
func WithColor(enabled bool) Option {
	return func(m *Menu) {
		for _, c := range []*color.Color{m.heading, m.errorC, m.warnC, m.byeC} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// New builds a Menu reading from in and writing to out.
func New(catalog repo.MovieCatalog, in io.Reader, out io.Writer, opts ...Option) *Menu {
	m := &Menu{
		catalog:   catalog,
		in:        in,
		out:       out,
		formatter: output.NewTableFormatter(out),
		logger:    slog.Default(),
		heading:   color.New(color.FgCyan, color.Bold),
		errorC:    color.New(color.FgRed),
		warnC:     color.New(color.FgYellow),
		byeC:      color.New(color.FgGreen),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.formatter.SetOutput(out)
	return m
}

// Run loops until the user quits, input ends or ctx is canceled. It returns
// nil on quit and end of input, ctx.Err() on cancellation.
func (m *Menu) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.lines = make(chan string)
	go m.scan(ctx, m.lines)

	for {
		m.printMenu()
		line, err := m.readLine(ctx, "Enter your choice: ")
		if err != nil {
			return m.finish(err)
		}

		choice, err := parseChoice(line)
		if err != nil {
			fmt.Fprintln(m.out, "Invalid choice. Please try again.")
			continue
		}

		if err := m.dispatch(ctx, choice); err != nil {
			return m.finish(err)
		}
	}
}

func (m *Menu) finish(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		m.logSession("canceled")
		return err
	}
	m.byeC.Fprintln(m.out, "Goodbye!")
	m.logSession("quit")
	return nil
}

func (m *Menu) logSession(reason string) {
	attrs := []any{slog.String("reason", reason)}
	if m.stats != nil {
		attrs = append(attrs, slog.Any("queries", m.stats.Snapshot()))
	}
	m.logger.Info("menu: session finished", attrs...)
}

func (m *Menu) printMenu() {
	m.heading.Fprintln(m.out, "\n"+Title)
	for i, label := range Options {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, label)
	}
}

// parseChoice accepts a whole number in 1..QuitChoice.
func parseChoice(line string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > QuitChoice {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, line)
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

const (
	promptLimit       = "Enter the number of movies to show: "
	promptGenre       = "Enter the genre: "
	promptMovieID     = "Enter the movie ID: "
	promptValue       = "Enter the demographic value: "
)

var promptDemographic = demographicPrompt(models.Demographics)

// demographicPrompt lists ds as "Enter the demographic (a, b, or c): ".
func demographicPrompt(ds []models.Demographic) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.String()
	}
	if n := len(names); n > 1 {
		names[n-1] = "or " + names[n-1]
	}
	return "Enter the demographic (" + strings.Join(names, ", ") + "): "
}

// dispatch runs one action. A non-nil error ends the loop.
func (m *Menu) dispatch(ctx context.Context, choice int) error {
	var (
		res *db.Result
		err error
	)

	switch choice {
	case 1:
		limit, perr := m.promptInt(ctx, promptLimit)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.MostPopular(ctx, limit)

	case 2:
		year, perr := m.promptInt(ctx, "Enter the year: ")
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, promptLimit)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.ByYear(ctx, year, limit)

	case 3:
		genre, perr := m.readLine(ctx, promptGenre)
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, promptLimit)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.TopRatedInGenre(ctx, genre, limit)

	case 4:
		text, perr := m.readLine(ctx, "Enter a search string: ")
		if perr != nil {
			return perr
		}
		res, err = m.catalog.Search(ctx, text)

	case 5:
		id, perr := m.promptInt(ctx, promptMovieID)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.Get(ctx, int64(id))

	case 6:
		genre, perr := m.readLine(ctx, promptGenre)
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, promptLimit)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.ByGenre(ctx, genre, limit)

	case 7:
		field, value, perr := m.promptDemographic(ctx)
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, promptLimit)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.TopRatedByDemographic(ctx, field, value, limit)

	case 8:
		decade, perr := m.promptInt(ctx, "Enter the starting year of the decade (e.g., 1980 for 1980s): ")
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, promptLimit)
		if perr != nil {
			return perr
		}
		res, err = m.catalog.TopRatedByDecade(ctx, decade, limit)

	case 9:
		field, value, perr := m.promptDemographic(ctx)
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, "Enter the number of genres to show: ")
		if perr != nil {
			return perr
		}
		res, err = m.catalog.GenrePreferencesByDemographic(ctx, field, value, limit)

	case 10:
		id, perr := m.promptInt(ctx, promptMovieID)
		if perr != nil {
			return perr
		}
		limit, perr := m.promptInt(ctx, "Enter the number of similar movies to show: ")
		if perr != nil {
			return perr
		}
		res, err = m.catalog.Similar(ctx, int64(id), limit)

	case QuitChoice:
		return errQuit

	default:
		return fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
	}

	m.show(res, err)
	return nil
}

// show prints a query outcome. Failure and "no rows" are reported
// differently.
func (m *Menu) show(res *db.Result, err error) {
	switch {
	case errors.Is(err, repo.ErrInvalidParams):
		m.warnC.Fprintf(m.out, "Invalid input: %v\n", err)
	case err != nil:
		m.errorC.Fprintf(m.out, "Error executing query: %v\n", err)
	case res.Empty():
		fmt.Fprintln(m.out, "No results.")
	default:
		if ferr := m.formatter.Format(res); ferr != nil {
			m.errorC.Fprintf(m.out, "Error printing results: %v\n", ferr)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Input
// ─────────────────────────────────────────────────────────────────────────────

// scan feeds input lines to lines and closes it at end of input. It stops
// when ctx is done, which Run guarantees on return.
func (m *Menu) scan(ctx context.Context, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(m.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		m.logger.Warn("menu: reading input", "error", err)
	}
}

func (m *Menu) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-m.lines:
		if !ok {
			fmt.Fprintln(m.out)
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// promptInt re-prompts until the input is a whole number.
func (m *Menu) promptInt(ctx context.Context, prompt string) (int, error) {
	for {
		line, err := m.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err == nil {
			return n, nil
		}
		m.warnC.Fprintf(m.out, "%q is not a whole number. Please try again.\n", line)
	}
}

// promptDemographic re-prompts until the field is age, gender or
// occupation, then reads its value. Age values must be whole numbers.
func (m *Menu) promptDemographic(ctx context.Context) (models.Demographic, string, error) {
	var field models.Demographic
	for {
		line, err := m.readLine(ctx, promptDemographic)
		if err != nil {
			return "", "", err
		}
		if field, err = models.ParseDemographic(line); err == nil {
			break
		}
		m.warnC.Fprintf(m.out, "%v. Please try again.\n", err)
	}

	for {
		value, err := m.readLine(ctx, promptValue)
		if err != nil {
			return "", "", err
		}
		if _, err := field.Arg(value); err == nil {
			return field, value, nil
		}
		m.warnC.Fprintf(m.out, "%q is not a valid %s. Please try again.\n", value, field)
	}
}
