package store

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/movie-warehouse/config"
	"github.com/Skryldev/movie-warehouse/db"
)

func sqliteConfig(t *testing.T) config.StoreConfig {
	t.Helper()
	return config.StoreConfig{
		Driver:   "sqlite3",
		Database: filepath.Join(t.TempDir(), "movies.db"),
	}
}

func TestOpen_SQLite(t *testing.T) {
	stats := &db.QueryStats{}
	conn, err := Open(sqliteConfig(t), Options{Stats: stats})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Equal(t, db.SQLite, conn.Dialect())
	require.NoError(t, conn.Ping(context.Background()))

	res, err := conn.Execute(context.Background(), "SELECT ? AS answer", 42)
	require.NoError(t, err)
	require.Equal(t, []string{"answer"}, res.Columns)
	require.EqualValues(t, 42, res.Rows[0]["answer"])

	require.Equal(t, 1, stats.Snapshot().Total)
	require.Equal(t, 1, conn.(*db.DB).Stats().MaxOpenConnections)
}

func TestOpen_SQLiteUnreachable(t *testing.T) {
	cfg := config.StoreConfig{Driver: "sqlite3", Database: filepath.Join(t.TempDir(), "missing", "dir", "movies.db")}
	conn, err := Open(cfg, Options{})
	require.Nil(t, conn)
	require.ErrorIs(t, err, db.ErrConnectionFailed)
}

func TestOpen_HiveUnreachable(t *testing.T) {
	cfg := config.Default().Store
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	conn, err := Open(cfg, Options{})
	require.Nil(t, conn)
	require.ErrorIs(t, err, db.ErrConnectionFailed)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.StoreConfig{Driver: "oracle"}, Options{})
	require.ErrorIs(t, err, db.ErrConnectionFailed)
}

func TestOpenSQL_RejectsHive(t *testing.T) {
	_, err := OpenSQL(config.Default().Store, Options{})
	require.Error(t, err)
}

func TestHooks(t *testing.T) {
	require.Len(t, Hooks(config.StoreConfig{}, Options{}), 1)
	require.Len(t, Hooks(config.StoreConfig{}, Options{Stats: &db.QueryStats{}}), 2)
}

func TestMigrateURL(t *testing.T) {
	u, err := MigrateURL(config.StoreConfig{Driver: "sqlite3", Database: "/tmp/m.db"})
	require.NoError(t, err)
	require.Equal(t, "sqlite3:///tmp/m.db", u)

	u, err = MigrateURL(config.StoreConfig{Driver: "postgres", Host: "pg", Database: "movies", User: "u", Password: "p"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@pg:5432/movies?sslmode=disable", u)

	u, err = MigrateURL(config.StoreConfig{Driver: "mysql", Host: "my", Database: "movies", User: "u", Password: "p"})
	require.NoError(t, err)
	require.Equal(t, "mysql://u:p@tcp(my:3306)/movies", u)

	_, err = MigrateURL(config.StoreConfig{Driver: "hive"})
	require.Error(t, err)
}
