package db

import (
	"strconv"
	"strings"
)

// Dialect captures the few places where the analytic stores disagree on SQL.
// Statements are always written with `?` placeholders; Rebind converts them
// to the store's native form.
type Dialect interface {
	// Name identifies the dialect, e.g. "hive" or "postgres".
	Name() string

	// Rebind rewrites `?` placeholders outside string literals.
	Rebind(query string) string

	// ReleaseYear returns an integer expression extracting the year from a
	// `dd-MMM-yyyy` text column such as movies.release_date.
	ReleaseYear(column string) string

	// QuoteString renders s as a string literal.
	QuoteString(s string) string
}

// Built-in dialects.
var (
	SQLite   Dialect = sqliteDialect{}
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
	DuckDB   Dialect = duckdbDialect{}
	Hive     Dialect = hiveDialect{}
)

// DialectFor returns the dialect for a driver name. Unknown names fall back to
// SQLite, whose `?` placeholders and standard quoting most drivers accept.
func DialectFor(driverName string) Dialect {
	switch driverName {
	case "mysql":
		return MySQL
	case "postgres", "pgx":
		return Postgres
	case "duckdb":
		return DuckDB
	case "hive":
		return Hive
	default:
		return SQLite
	}
}

// ── SQLite ──────────────────────────────────────────────────────────────────

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite3" }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) QuoteString(s string) string {
	return quoteDoubled(s)
}

// release_date is fixed width, so the year is the last four characters.
func (sqliteDialect) ReleaseYear(column string) string {
	return "CAST(substr(" + column + ", -4) AS INTEGER)"
}

// ── MySQL ───────────────────────────────────────────────────────────────────

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return "mysql" }
func (mysqlDialect) Rebind(query string) string { return query }
func (mysqlDialect) QuoteString(s string) string {
	return quoteBackslash(s)
}
func (mysqlDialect) ReleaseYear(column string) string {
	return "YEAR(STR_TO_DATE(" + column + ", '%d-%b-%Y'))"
}

// ── PostgreSQL ──────────────────────────────────────────────────────────────

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (postgresDialect) QuoteString(s string) string {
	return quoteDoubled(s)
}

func (postgresDialect) ReleaseYear(column string) string {
	return "CAST(EXTRACT(YEAR FROM TO_DATE(" + column + ", 'DD-Mon-YYYY')) AS INTEGER)"
}

// ── DuckDB ──────────────────────────────────────────────────────────────────

type duckdbDialect struct{}

func (duckdbDialect) Name() string               { return "duckdb" }
func (duckdbDialect) Rebind(query string) string { return query }
func (duckdbDialect) QuoteString(s string) string {
	return quoteDoubled(s)
}
func (duckdbDialect) ReleaseYear(column string) string {
	return "year(try_strptime(" + column + ", '%d-%b-%Y'))"
}

// ── Hive ────────────────────────────────────────────────────────────────────

// HiveServer2 has no server-side parameter binding; Hive statements keep
// their `?` placeholders and are rendered with Interpolate before sending.
type hiveDialect struct{}

func (hiveDialect) Name() string               { return "hive" }
func (hiveDialect) Rebind(query string) string { return query }
func (hiveDialect) QuoteString(s string) string {
	return quoteBackslash(s)
}
func (hiveDialect) ReleaseYear(column string) string {
	return "YEAR(FROM_UNIXTIME(UNIX_TIMESTAMP(" + column + ", 'dd-MMM-yyyy')))"
}

// ── quoting helpers ─────────────────────────────────────────────────────────

func quoteDoubled(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteBackslash(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\x00", `\0`)
	return "'" + r.Replace(s) + "'"
}
