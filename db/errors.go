package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sentinel errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when a single-row lookup matches no rows.
	ErrNotFound = errors.New("moviewarehouse/db: record not found")

	// ErrDuplicateKey is returned on unique constraint violations.
	ErrDuplicateKey = errors.New("moviewarehouse/db: duplicate key")

	// ErrTimeout is returned when a statement exceeds its deadline or is canceled.
	ErrTimeout = errors.New("moviewarehouse/db: query timeout")

	// ErrConnectionFailed is returned when the store cannot be reached.
	ErrConnectionFailed = errors.New("moviewarehouse/db: connection failed")

	// ErrSyntax is returned when the store rejects the statement text.
	ErrSyntax = errors.New("moviewarehouse/db: syntax error")

	// ErrQueryFailed is the catch-all for any other execution failure.
	ErrQueryFailed = errors.New("moviewarehouse/db: query failed")
)

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsDuplicateKey(err error) bool     { return errors.Is(err, ErrDuplicateKey) }
func IsTimeout(err error) bool          { return errors.Is(err, ErrTimeout) }
func IsConnectionFailed(err error) bool { return errors.Is(err, ErrConnectionFailed) }
func IsSyntax(err error) bool           { return errors.Is(err, ErrSyntax) }

// IsQueryError reports whether err came from executing a statement, whatever
// the specific cause.
func IsQueryError(err error) bool {
	var dbe *DBError
	return errors.As(err, &dbe)
}

// ─────────────────────────────────────────────────────────────────────────────
// DBError: rich error type preserving the original driver error
// ─────────────────────────────────────────────────────────────────────────────

// DBError wraps a sentinel error with the original driver error so callers can
// use errors.Is(err, ErrSyntax) or inspect the raw cause.
type DBError struct {
	// Sentinel is one of the package-level Err* variables.
	Sentinel error
	// Cause is the original driver error.
	Cause error
	// Message is an optional human-readable hint.
	Message string
}

func (e *DBError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Sentinel, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (cause: %v)", e.Sentinel, e.Cause)
}

func (e *DBError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *DBError) Unwrap() error        { return e.Cause }

// AsQueryError maps err and guarantees the result is a *DBError, falling back
// to ErrQueryFailed for causes no mapper recognised.
func AsQueryError(m ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	mapped := m.Map(err)
	var dbe *DBError
	if errors.As(mapped, &dbe) {
		return mapped
	}
	return &DBError{Sentinel: ErrQueryFailed, Cause: err}
}

// ─────────────────────────────────────────────────────────────────────────────
// ErrorMapper interface: pluggable per driver
// ─────────────────────────────────────────────────────────────────────────────

// ErrorMapper translates raw driver errors into sentinel errors.
type ErrorMapper interface {
	Map(err error) error
}

// ErrorMapperFunc adapts a function to ErrorMapper.
type ErrorMapperFunc func(error) error

func (f ErrorMapperFunc) Map(err error) error { return f(err) }

// DefaultErrorMapper handles PostgreSQL, MySQL, SQLite and DuckDB errors.
func DefaultErrorMapper() ErrorMapper {
	return ErrorMapperFunc(defaultMap)
}

func defaultMap(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &DBError{Sentinel: ErrNotFound, Cause: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	}

	// Already mapped: do not double-wrap
	var dbe *DBError
	if errors.As(err, &dbe) {
		return err
	}

	if mapped := mapPostgresError(err); mapped != nil {
		return mapped
	}
	if mapped := mapMySQLError(err); mapped != nil {
		return mapped
	}
	if mapped := mapMessageError(err); mapped != nil {
		return mapped
	}
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL mapping
// ─────────────────────────────────────────────────────────────────────────────

func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return mapByPGCode(string(pqErr.Code), err)
	}
	// Fall back to the code embedded in the message text.
	return mapByPGCode(pqCodeFromString(err.Error()), err)
}

func pqCodeFromString(s string) string {
	// lib/pq formats: "pq: ERROR: message (SQLSTATE XXXXX)"
	const marker = "(SQLSTATE "
	idx := strings.LastIndex(s, marker)
	if idx < 0 {
		return ""
	}
	rest := s[idx+len(marker):]
	end := strings.Index(rest, ")")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// PostgreSQL SQLSTATE codes: https://www.postgresql.org/docs/current/errcodes-appendix.html
func mapByPGCode(code string, cause error) error {
	switch code {
	case "23505": // unique_violation
		return &DBError{Sentinel: ErrDuplicateKey, Cause: cause}
	case "42601": // syntax_error
		return &DBError{Sentinel: ErrSyntax, Cause: cause}
	case "57014": // query_canceled (statement_timeout)
		return &DBError{Sentinel: ErrTimeout, Cause: cause}
	case "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
		return &DBError{Sentinel: ErrConnectionFailed, Cause: cause}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MySQL mapping
// ─────────────────────────────────────────────────────────────────────────────

func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return nil
	}
	switch me.Number {
	case 1062: // ER_DUP_ENTRY
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case 1064: // ER_PARSE_ERROR
		return &DBError{Sentinel: ErrSyntax, Cause: err}
	case 3024: // ER_QUERY_TIMEOUT
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	case 1045, 2002, 2003, 2006, 2013:
		return &DBError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Message based mapping (SQLite, DuckDB)
// ─────────────────────────────────────────────────────────────────────────────

func mapMessageError(err error) error {
	s := err.Error()
	switch {
	case strings.Contains(s, "UNIQUE constraint failed"),
		strings.Contains(s, "Duplicate key"):
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	case strings.Contains(s, "syntax error"),
		strings.Contains(s, "Parser Error"):
		return &DBError{Sentinel: ErrSyntax, Cause: err}
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "unable to open database file"):
		return &DBError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ChainMapper: compose multiple mappers (first match wins)
// ─────────────────────────────────────────────────────────────────────────────

// ChainMapper returns an ErrorMapper that tries each mapper in order,
// returning the first remapped error.
func ChainMapper(mappers ...ErrorMapper) ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if err == nil {
			return nil
		}
		for _, m := range mappers {
			if mapped := m.Map(err); mapped != err {
				return mapped
			}
		}
		return err
	})
}
