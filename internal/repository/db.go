package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

type Config struct {
	Driver           string // postgres or sqlite
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom copies the database section of the application config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		SQLitePath:       c.SQLitePath,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// DB bundles the ent SQL driver with whichever pool backs it.
type DB struct {
	Driver *entsql.Driver
	pool   *pgxpool.Pool
	sqlDB  *sql.DB
}

// Open connects to Postgres through a pgx pool or to a sqlite file, and wraps
// the connection for ent.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case common.StoreDriverSQLite:
		return OpenSQLite(ctx, SQLiteDSN(cfg.SQLitePath), logger)
	case common.StoreDriverPostgres, "":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown store driver "+cfg.Driver, common.ErrInvalidInput)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("db.open.start", "driver", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.open.failed", "error", err)
		return nil, common.NewAppError("DB_CONFIG", "invalid postgres DSN", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "nabh-evidence"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.open.failed", "error", err)
		return nil, common.NewAppError("DB_CONNECT", "failed to connect to postgres", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("db.open.ok", "driver", dialect.Postgres)
	return &DB{Driver: entsql.OpenDB(dialect.Postgres, db), pool: pool, sqlDB: db}, nil
}

// SQLiteDSN turns a path into a modernc DSN with foreign keys on. An empty
// path, ":memory:" or a "mem:" prefix selects a shared in-memory database.
func SQLiteDSN(path string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	switch {
	case path == "" || path == ":memory:":
		return "file:evidence?mode=memory&cache=shared&" + pragmas
	case strings.HasPrefix(path, "mem:"):
		return "file:" + strings.TrimPrefix(path, "mem:") + "?mode=memory&cache=shared&" + pragmas
	case strings.HasPrefix(path, "file:"):
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&" + pragmas
}

// OpenSQLite opens a modernc sqlite database. A single connection is kept so
// in-memory databases survive for the lifetime of the DB.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.open.start", "driver", dialect.SQLite)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("db.open.failed", "error", err)
		return nil, common.NewAppError("DB_CONNECT", "failed to open sqlite", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("db.open.failed", "error", err)
		return nil, common.NewAppError("DB_CONNECT", "failed to open sqlite", err)
	}
	logger.Info("db.open.ok", "driver", dialect.SQLite)
	return &DB{Driver: entsql.OpenDB(dialect.SQLite, db), sqlDB: db}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if d == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := d.Driver.Close(); err != nil {
		logger.Error("db.close.failed", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("db.close.ok")
}

// HealthCheck pings the underlying pool.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if d.pool != nil {
		err = d.pool.Ping(ctx)
	} else {
		err = d.sqlDB.PingContext(ctx)
	}
	if err != nil {
		logger.Error("db.ping.failed", "error", err)
		return common.NewAppError("DB_PING", "database ping failed", err)
	}
	logger.Debug("db.ping.ok")
	return nil
}
