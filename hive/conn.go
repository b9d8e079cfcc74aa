// Package hive executes catalog statements on HiveServer2 through
// github.com/beltran/gohive. HiveServer2 has no server-side parameter
// binding, so every statement is rendered with db.Interpolate before it is
// sent.
package hive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beltran/gohive"

	"github.com/Skryldev/movie-warehouse/db"
)

// Config addresses one HiveServer2 instance.
type Config struct {
	Host     string
	Port     int
	Auth     string // NONE, NOSASL, LDAP, KERBEROS or CUSTOM
	Database string
	User     string
	Password string

	// QueryTimeout bounds each statement. Zero waits indefinitely.
	QueryTimeout time.Duration
	// ConnectTimeout bounds the initial handshake.
	ConnectTimeout time.Duration
}

// Conn is a single HiveServer2 session. It implements db.Conn.
type Conn struct {
	sess    session
	hooks   db.HookChain
	errMap  db.ErrorMapper
	timeout time.Duration
}

// Connect opens the session described by cfg.
func Connect(cfg Config, hooks []db.Hook) (*Conn, error) {
	hc := gohive.NewConnectConfiguration()
	hc.Username = cfg.User
	hc.Password = cfg.Password
	if cfg.Database != "" {
		hc.Database = cfg.Database
	}
	if cfg.ConnectTimeout > 0 {
		hc.ConnectTimeout = cfg.ConnectTimeout
	}
	auth := cfg.Auth
	if auth == "" {
		auth = "NONE"
	}

	conn, err := gohive.Connect(cfg.Host, cfg.Port, auth, hc)
	if err != nil {
		return nil, &db.DBError{
			Sentinel: db.ErrConnectionFailed,
			Cause:    err,
			Message:  fmt.Sprintf("hive at %s:%d", cfg.Host, cfg.Port),
		}
	}
	return newConn(gohiveSession{conn: conn}, hooks, cfg.QueryTimeout), nil
}

func newConn(sess session, hooks []db.Hook, timeout time.Duration) *Conn {
	return &Conn{
		sess:    sess,
		hooks:   db.NewHookChain(hooks),
		errMap:  db.ChainMapper(ErrorMapper(), db.DefaultErrorMapper()),
		timeout: timeout,
	}
}

// Dialect returns db.Hive.
func (c *Conn) Dialect() db.Dialect { return db.Hive }

// Execute renders query with args, runs it on a fresh cursor and collects
// every row. On failure the Result is empty and the error is a *db.DBError.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (*db.Result, error) {
	stmt, err := db.Interpolate(db.Hive, query, args...)
	if err != nil {
		return db.EmptyResult(), &db.DBError{Sentinel: db.ErrQueryFailed, Cause: err, Message: "render statement"}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	c.hooks.Before(ctx, stmt, args)
	res, err := c.execute(ctx, stmt)
	c.hooks.After(ctx, stmt, args, time.Since(start), err)
	if err != nil {
		return db.EmptyResult(), err
	}
	return res, nil
}

func (c *Conn) execute(ctx context.Context, stmt string) (*db.Result, error) {
	cur := c.sess.Cursor()
	defer cur.Close()

	if err := cur.Exec(ctx, stmt); err != nil {
		return nil, db.AsQueryError(c.errMap, err)
	}

	cols, err := cur.Columns()
	if err != nil {
		return nil, db.AsQueryError(c.errMap, err)
	}
	res := &db.Result{Columns: cols, Rows: []map[string]any{}}
	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, db.AsQueryError(c.errMap, err)
		}
		if !ok {
			break
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Ping runs a trivial statement.
func (c *Conn) Ping(ctx context.Context) error {
	if _, err := c.Execute(ctx, "SELECT 1"); err != nil {
		return &db.DBError{Sentinel: db.ErrConnectionFailed, Cause: err}
	}
	return nil
}

// Close ends the session.
func (c *Conn) Close() error { return c.sess.Close() }

func (c *Conn) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout == 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error mapping
// ─────────────────────────────────────────────────────────────────────────────

// ErrorMapper classifies HiveServer2 and Thrift transport errors by message.
func ErrorMapper() db.ErrorMapper {
	return db.ErrorMapperFunc(func(err error) error {
		if err == nil {
			return nil
		}
		s := err.Error()
		switch {
		case strings.Contains(s, "ParseException"),
			strings.Contains(s, "SemanticException"):
			return &db.DBError{Sentinel: db.ErrSyntax, Cause: err}
		case strings.Contains(s, "connection refused"),
			strings.Contains(s, "broken pipe"),
			strings.Contains(s, "connection reset"),
			strings.Contains(s, "TTransportException"):
			return &db.DBError{Sentinel: db.ErrConnectionFailed, Cause: err}
		}
		return err
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// session / cursor: the slice of gohive used here
// ─────────────────────────────────────────────────────────────────────────────

type session interface {
	Cursor() cursor
	Close() error
}

type cursor interface {
	Exec(ctx context.Context, stmt string) error
	Columns() ([]string, error)
	// Next returns the next row, or ok=false once the result set is drained.
	Next(ctx context.Context) (row map[string]any, ok bool, err error)
	Close()
}

type gohiveSession struct{ conn *gohive.Connection }

func (s gohiveSession) Cursor() cursor { return &gohiveCursor{cur: s.conn.Cursor()} }
func (s gohiveSession) Close() error   { return s.conn.Close() }

type gohiveCursor struct{ cur *gohive.Cursor }

func (g *gohiveCursor) Exec(ctx context.Context, stmt string) error {
	g.cur.Exec(ctx, stmt)
	return g.cur.Err
}

func (g *gohiveCursor) Columns() ([]string, error) {
	desc := g.cur.Description()
	if g.cur.Err != nil {
		return nil, g.cur.Err
	}
	cols := make([]string, len(desc))
	for i, d := range desc {
		cols[i] = columnName(d[0])
	}
	return cols, nil
}

func (g *gohiveCursor) Next(ctx context.Context) (map[string]any, bool, error) {
	if !g.cur.HasMore(ctx) {
		return nil, false, g.cur.Err
	}
	raw := g.cur.RowMap(ctx)
	if g.cur.Err != nil {
		return nil, false, g.cur.Err
	}
	return normalizeRow(raw), true, nil
}

func (g *gohiveCursor) Close() { g.cur.Close() }

// columnName drops the "alias." prefix HiveServer2 puts on result columns
// unless hive.resultset.use.unique.column.names is off.
func columnName(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func normalizeRow(raw map[string]any) map[string]any {
	row := make(map[string]any, len(raw))
	for k, v := range raw {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[columnName(k)] = v
	}
	return row
}

var _ db.Conn = (*Conn)(nil)
