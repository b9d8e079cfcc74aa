package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Skryldev/movie-warehouse/db"
)

// CSVFormatter outputs results as CSV with a header row.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer.
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes res as CSV.
func (c *CSVFormatter) Format(res *db.Result) error {
	if res.Empty() {
		return nil
	}

	csvWriter := csv.NewWriter(c.writer)
	if err := csvWriter.Write(res.Columns); err != nil {
		return err
	}
	for i := range res.Rows {
		vals := res.Values(i)
		record := make([]string, len(vals))
		for j, v := range vals {
			record[j] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
