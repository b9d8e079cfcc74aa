// Command moviedb-load fills a sqlite3, mysql, postgres or duckdb store with
// the MovieLens 100K files or with synthetic rows, so the menu can run
// without a Hive cluster.
//
//	MOVIEREC_STORE_DRIVER=sqlite3 MOVIEREC_STORE_DATABASE=movies.db \
//	    moviedb-load -migrate -dir ./ml-100k
package main

import (
	"context"
	"flag"
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
	"github.com/Skryldev/movie-warehouse/loader"
	"github.com/Skryldev/movie-warehouse/logging"
	"github.com/Skryldev/movie-warehouse/migrations"
	"github.com/Skryldev/movie-warehouse/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dir        = flag.String("dir", "", "MovieLens 100K directory containing u.item, u.user and u.data")
		synthetic  = flag.Int("synthetic", 0, "generate N synthetic movies instead of reading -dir")
		users      = flag.Int("users", 0, "synthetic users (default N/2)")
		perUser    = flag.Int("ratings-per-user", 50, "upper bound of synthetic ratings per user")
		seed       = flag.Int64("seed", 1, "synthetic random seed")
		batch      = flag.Int("batch", loader.DefaultBatchSize, "rows per transaction")
		reset      = flag.Bool("reset", false, "delete existing rows first")
		runMigrate = flag.Bool("migrate", false, "apply the embedded schema first (sqlite3 and duckdb)")
	)
	flag.Parse()

	if (*dir == "") == (*synthetic == 0) {
		return failf("exactly one of -dir or -synthetic is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return failf("config: %v", err)
	}
	if cfg.Logging.Level == "warn" {
		cfg.Logging.Level = "info"
	}
	logger, logFile, err := logging.Setup("moviedb-load", cfg.Logging)
	if err != nil {
		return failf("logging: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := store.OpenSQL(cfg.Store, store.Options{Logger: logger})
	if err != nil {
		return failf("connect %s at %s: %v", cfg.Store.Driver, cfg.Store.Addr(), err)
	}
	defer d.Close()

	if *runMigrate {
		if err := migrations.Up(ctx, d); err != nil {
			return failf("%v", err)
		}
	}

	var ds *loader.Dataset
	if *dir != "" {
		if ds, err = loader.ReadDir(*dir); err != nil {
			return failf("%v", err)
		}
	} else {
		n := *users
		if n == 0 {
			n = max(1, *synthetic/2)
		}
		ds = loader.Synthetic(loader.SyntheticOptions{
			Movies:         *synthetic,
			Users:          n,
			RatingsPerUser: *perUser,
			Seed:           *seed,
		})
	}

	l := loader.New(d, logger)
	l.SetBatchSize(*batch)
	if *reset {
		if err := l.Reset(ctx); err != nil {
			return failf("%v", err)
		}
	}
	if err := l.Load(ctx, ds); err != nil {
		return failf("%v", err)
	}

	counts, err := loader.Counts(ctx, d)
	if err != nil {
		return failf("%v", err)
	}
	for _, table := range migrations.Tables() {
		fmt.Printf("%-8s %d\n", table, counts[table])
	}
	return 0
}

// failf logs the failure and returns the process exit status.
func failf(format string, args ...any) int {
	slog.Error(fmt.Sprintf(format, args...))
	return 1
}
