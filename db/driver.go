package db

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/go-sql-driver/mysql"
)

// ─────────────────────────────────────────────────────────────────────────────
// Driver interface
// ─────────────────────────────────────────────────────────────────────────────

// Driver encapsulates database-specific behaviour for database/sql stores:
//   - building a DSN from structured options
//   - providing the SQL dialect and an ErrorMapper
//
// Hive is not a database/sql driver and is handled by the hive package.
type Driver interface {
	// Name returns the name passed to sql.Register, e.g. "sqlite3", "mysql".
	Name() string

	// DSN converts structured options into a driver DSN string.
	DSN(opts DriverOptions) (string, error)

	// Dialect returns the SQL dialect of the store.
	Dialect() Dialect

	// ErrorMapper returns a mapper tuned to this driver's error types.
	ErrorMapper() ErrorMapper
}

// DriverOptions carries connection parameters in a driver-agnostic form.
type DriverOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // postgres only: "disable", "require", ...
	// Extra holds driver-specific key/value parameters.
	Extra map[string]string
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver registry
// ─────────────────────────────────────────────────────────────────────────────

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver adds a Driver to the registry. Panics on a duplicate name.
func RegisterDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, ok := drivers[d.Name()]; ok {
		panic(fmt.Sprintf("moviewarehouse/db: driver %q already registered", d.Name()))
	}
	drivers[d.Name()] = d
}

// LookupDriver returns the registered Driver by name or an error.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("moviewarehouse/db: driver %q not registered", name)
	}
	return d, nil
}

// OpenWithDriver opens a DB using a registered Driver and structured options.
// The database/sql driver itself must be linked in by a blank import.
//
//	d, err := db.OpenWithDriver("sqlite3", db.DriverOptions{Database: "movies.db"},
//	    db.Config{MaxOpenConns: 1})
func OpenWithDriver(driverName string, driverOpts DriverOptions, cfg Config) (*DB, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return nil, err
	}

	dsn, err := drv.DSN(driverOpts)
	if err != nil {
		return nil, fmt.Errorf("moviewarehouse/db: DSN construction failed: %w", err)
	}

	cfg.DriverName = drv.Name()
	cfg.DSN = dsn
	if cfg.Dialect == nil {
		cfg.Dialect = drv.Dialect()
	}

	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	d.SetErrorMapper(ChainMapper(drv.ErrorMapper(), DefaultErrorMapper()))
	return d, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL driver adapter (lib/pq)
// ─────────────────────────────────────────────────────────────────────────────

// PostgresDriver is the lib/pq adapter.
type PostgresDriver struct{}

func (PostgresDriver) Name() string { return "postgres" }

func (PostgresDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("postgres driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	for k, v := range o.Extra {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(o.Host, strconv.Itoa(port)),
		Path:     "/" + o.Database,
		RawQuery: q.Encode(),
	}
	if o.User != "" {
		u.User = url.UserPassword(o.User, o.Password)
	}
	return u.String(), nil
}

func (PostgresDriver) Dialect() Dialect         { return Postgres }
func (PostgresDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }

// ─────────────────────────────────────────────────────────────────────────────
// MySQL driver adapter
// ─────────────────────────────────────────────────────────────────────────────

// MySQLDriver is the go-sql-driver/mysql adapter.
type MySQLDriver struct{}

func (MySQLDriver) Name() string { return "mysql" }

func (MySQLDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("mysql driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 3306
	}
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, strconv.Itoa(port))
	c.DBName = o.Database
	c.ParseTime = true
	if len(o.Extra) > 0 {
		c.Params = make(map[string]string, len(o.Extra))
		for k, v := range o.Extra {
			c.Params[k] = v
		}
	}
	return c.FormatDSN(), nil
}

func (MySQLDriver) Dialect() Dialect         { return MySQL }
func (MySQLDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }

// ─────────────────────────────────────────────────────────────────────────────
// SQLite driver adapter
// ─────────────────────────────────────────────────────────────────────────────

// SQLiteDriver is the mattn/go-sqlite3 adapter.
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string { return "sqlite3" }

func (SQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.Database == "" {
		return "", fmt.Errorf("sqlite3 driver: Database (file path) is required")
	}
	return withQuery(o.Database, o.Extra), nil
}

func (SQLiteDriver) Dialect() Dialect         { return SQLite }
func (SQLiteDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }

// ─────────────────────────────────────────────────────────────────────────────
// DuckDB driver adapter
// ─────────────────────────────────────────────────────────────────────────────

// DuckDBDriver is the duckdb-go adapter. An empty Database opens an
// in-memory store.
type DuckDBDriver struct{}

func (DuckDBDriver) Name() string { return "duckdb" }

func (DuckDBDriver) DSN(o DriverOptions) (string, error) {
	path := o.Database
	if path == "" {
		path = ":memory:"
	}
	return withQuery(path, o.Extra), nil
}

func (DuckDBDriver) Dialect() Dialect         { return DuckDB }
func (DuckDBDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }

// withQuery appends extra as a sorted query string.
func withQuery(path string, extra map[string]string) string {
	if len(extra) == 0 {
		return path
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dsn := path
	for i, k := range keys {
		if i == 0 {
			dsn += "?"
		} else {
			dsn += "&"
		}
		dsn += k + "=" + extra[k]
	}
	return dsn
}

func init() {
	RegisterDriver(PostgresDriver{})
	RegisterDriver(MySQLDriver{})
	RegisterDriver(SQLiteDriver{})
	RegisterDriver(DuckDBDriver{})
}
