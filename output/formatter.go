// Package output renders query results. Three formats are available:
//
//   - table: aligned text table (default, for the interactive menu)
//   - csv: comma-separated values with a header row
//   - json: JSON Lines, one object per row
//
// Columns are always written in the order the store returned them.
package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Skryldev/movie-warehouse/db"
)

// Formatter writes a Result in one output format.
type Formatter interface {
	// Format writes res. An empty result writes nothing.
	Format(res *db.Result) error

	// SetOutput changes the output writer.
	SetOutput(w io.Writer)
}

// New returns the formatter registered for format.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	}
	return nil, fmt.Errorf("output: unknown format %q", format)
}

// formatValue converts a cell to display text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.DateTime)
	default:
		return fmt.Sprintf("%v", val)
	}
}
