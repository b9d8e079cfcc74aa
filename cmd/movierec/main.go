// Command movierec is the interactive movie-ratings query menu.
//
// It connects to the configured store (HiveServer2 on localhost:10000 by
// default), then loops over the numbered actions until the user quits.
// Configuration comes from movierec.yaml, .env and MOVIEREC_* variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Skryldev/movie-warehouse/config"
	"github.com/Skryldev/movie-warehouse/db"
	"github.com/Skryldev/movie-warehouse/logging"
	"github.com/Skryldev/movie-warehouse/menu"
	"github.com/Skryldev/movie-warehouse/output"
	"github.com/Skryldev/movie-warehouse/repo"
	"github.com/Skryldev/movie-warehouse/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	logger, logFile, err := logging.Setup("movierec", cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return 1
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	stats := &db.QueryStats{}
	conn, err := store.Open(cfg.Store, store.Options{Logger: logger, Stats: stats})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s at %s: %v\n", cfg.Store.Driver, cfg.Store.Addr(), err)
		logger.Error("movierec: connect failed", "driver", cfg.Store.Driver, "addr", cfg.Store.Addr(), "error", err)
		return 1
	}
	defer conn.Close()
	logger.Info("movierec: connected", "driver", cfg.Store.Driver, "addr", cfg.Store.Addr())

	formatter, err := output.New(cfg.Output.Format, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []menu.Option{
		menu.WithFormatter(formatter),
		menu.WithLogger(logger),
		menu.WithStats(stats),
	}
	if !cfg.Output.Color {
		opts = append(opts, menu.WithColor(false))
	}
	m := menu.New(repo.NewMovieCatalog(conn), os.Stdin, os.Stdout, opts...)
	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("movierec: menu stopped", "error", err)
		return 1
	}
	return 0
}
