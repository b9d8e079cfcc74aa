package output

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/Skryldev/movie-warehouse/db"
)

// TableFormatter renders results as an aligned text table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a table formatter writing to w.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer.
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format writes res as a table. Averages are shown with four decimals.
func (f *TableFormatter) Format(res *db.Result) error {
	if res.Empty() {
		return nil
	}

	table := tablewriter.NewWriter(f.writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(res.Columns)

	for i := range res.Rows {
		vals := res.Values(i)
		record := make([]string, len(vals))
		for j, v := range vals {
			if fl, ok := v.(float64); ok {
				record[j] = strconv.FormatFloat(fl, 'f', 4, 64)
				continue
			}
			record[j] = formatValue(v)
		}
		table.Append(record)
	}

	table.Render()
	return nil
}
