package output

import (
	"bytes"
	"io"

	"github.com/goccy/go-json"

	"github.com/Skryldev/movie-warehouse/db"
)

// JSONFormatter outputs results as JSON Lines.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer.
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row with keys in column order.
func (j *JSONFormatter) Format(res *db.Result) error {
	if res.Empty() {
		return nil
	}
	var buf bytes.Buffer
	for _, row := range res.Rows {
		buf.Reset()
		buf.WriteByte('{')
		for i, col := range res.Columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return err
			}
			val, err := json.Marshal(row[col])
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteString("}\n")
		if _, err := j.writer.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
