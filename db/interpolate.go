package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrArgCount is returned by Interpolate when placeholders and args disagree.
var ErrArgCount = errors.New("moviewarehouse/db: placeholder/argument count mismatch")

// Interpolate replaces each `?` outside string literals with the next arg
// rendered as a typed literal of dialect d. It exists for stores without
// server-side binding (Hive); values are never spliced in as raw text.
//
// Supported argument types: nil, string, []byte, bool, all integer and float
// kinds, and time.Time.
func Interpolate(d Dialect, query string, args ...any) (string, error) {
	var b strings.Builder
	b.Grow(len(query) + 16*len(args))

	next := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(query):
			b.WriteByte(c)
			i++
			b.WriteByte(query[i])
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			if next >= len(args) {
				return "", fmt.Errorf("%w: more than %d placeholders", ErrArgCount, len(args))
			}
			lit, err := literal(d, args[next])
			if err != nil {
				return "", fmt.Errorf("moviewarehouse/db: arg %d: %w", next+1, err)
			}
			b.WriteString(lit)
			next++
		default:
			b.WriteByte(c)
		}
	}
	if next != len(args) {
		return "", fmt.Errorf("%w: %d placeholders, %d args", ErrArgCount, next, len(args))
	}
	return b.String(), nil
}

func literal(d Dialect, v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return d.QuoteString(val), nil
	case []byte:
		return d.QuoteString(string(val)), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case time.Time:
		return d.QuoteString(val.UTC().Format("2006-01-02 15:04:05")), nil
	}
	return "", fmt.Errorf("unsupported argument type %T", v)
}
