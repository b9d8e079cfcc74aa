// Package store is the connection manager: it turns a StoreConfig into the
// single db.Conn the rest of the program executes against.
package store

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/Skryldev/movie-warehouse/config"
	"github.com/Skryldev/movie-warehouse/db"
	"github.com/Skryldev/movie-warehouse/hive"
)

// Options carries the ambient pieces a connection is built with.
type Options struct {
	Logger *slog.Logger
	// Stats receives one observation per statement when non-nil.
	Stats db.MetricsCollector
}

// Open connects to the store described by cfg. Exactly one connection is
// held until Close. Failures wrap db.ErrConnectionFailed.
func Open(cfg config.StoreConfig, opts Options) (db.Conn, error) {
	hooks := Hooks(cfg, opts)

	if cfg.Driver == "hive" {
		c, err := hive.Connect(hive.Config{
			Host:         cfg.Host,
			Port:         cfg.Port,
			Auth:         cfg.Auth,
			Database:     cfg.Database,
			User:         cfg.User,
			Password:     cfg.Password,
			QueryTimeout: cfg.QueryTimeout,
		}, hooks)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	d, err := db.OpenWithDriver(cfg.Driver, DriverOptions(cfg), db.Config{
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		DefaultTimeout: cfg.QueryTimeout,
		Hooks:          hooks,
	})
	if err != nil {
		if db.IsConnectionFailed(err) {
			return nil, err
		}
		return nil, &db.DBError{Sentinel: db.ErrConnectionFailed, Cause: err, Message: cfg.Driver}
	}
	return d, nil
}

// OpenSQL is Open restricted to database/sql stores, for callers that need
// transactions or bulk inserts.
func OpenSQL(cfg config.StoreConfig, opts Options) (*db.DB, error) {
	if cfg.Driver == "hive" {
		return nil, fmt.Errorf("store: driver hive is read-only here, use sqlite3, mysql, postgres or duckdb")
	}
	conn, err := Open(cfg, opts)
	if err != nil {
		return nil, err
	}
	return conn.(*db.DB), nil
}

// Hooks returns the statement hooks for cfg: structured logging and, when
// opts.Stats is set, metrics.
func Hooks(cfg config.StoreConfig, opts Options) []db.Hook {
	hooks := []db.Hook{
		db.NewLogHook(db.LogHookConfig{
			Logger:             opts.Logger,
			SlowQueryThreshold: cfg.SlowQueryThreshold,
			LogArgs:            true,
		}),
	}
	if opts.Stats != nil {
		hooks = append(hooks, db.NewMetricsHook(opts.Stats))
	}
	return hooks
}

// DriverOptions maps cfg onto db.DriverOptions.
func DriverOptions(cfg config.StoreConfig) db.DriverOptions {
	return db.DriverOptions{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	}
}

// MigrateURL returns the golang-migrate database URL for cfg.
func MigrateURL(cfg config.StoreConfig) (string, error) {
	switch cfg.Driver {
	case "sqlite3":
		return "sqlite3://" + cfg.Database, nil
	case "postgres":
		dsn, err := db.PostgresDriver{}.DSN(DriverOptions(cfg))
		if err != nil {
			return "", err
		}
		return dsn, nil
	case "mysql":
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		var userinfo string
		if cfg.User != "" {
			userinfo = url.UserPassword(cfg.User, cfg.Password).String() + "@"
		}
		return fmt.Sprintf("mysql://%stcp(%s)/%s", userinfo,
			net.JoinHostPort(cfg.Host, strconv.Itoa(port)), cfg.Database), nil
	}
	return "", fmt.Errorf("store: migrations are not supported for driver %q", cfg.Driver)
}
