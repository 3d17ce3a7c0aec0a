package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

type DBConfig struct {
	Driver       Driver `toml:"driver"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	Path         string `toml:"path"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool   *pgxpool.Pool
	bunDB  *bun.DB
	driver Driver
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = "waifu.db"
		}
		db, err := OpenSQLite(ctx, "file:"+path)
		if err != nil {
			return nil, err
		}
		if _, err := db.ExecWithLog(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
		return db, nil
	case DriverPostgres, "":
		return newPostgres(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func newPostgres(ctx context.Context, cfg DBConfig) (*DB, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		var conn net.Conn
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	bunDB := newBunDB(pool, cfg)
	return &DB{pool: pool, bunDB: bunDB, driver: DriverPostgres}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(pool *pgxpool.Pool, cfg DBConfig) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	connCfg := pool.Config().ConnConfig
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		connCfg.User, connCfg.Password, connCfg.Host, connCfg.Port, connCfg.Database, sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return bun.NewDB(sqldb, pgdialect.New())
}

// OpenSQLite opens dsn through the sqlite shim. SQLite allows one writer, so the pool is a single
// connection; this also keeps "mode=memory&cache=shared" databases alive between queries.
func OpenSQLite(ctx context.Context, dsn string) (*DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxIdleTime(0)
	sqldb.SetConnMaxLifetime(0)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &DB{bunDB: bunDB, driver: DriverSQLite}, nil
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Driver() Driver {
	return db.driver
}

// ExecWithLog runs a statement that returns no rows and logs its outcome.
func (db *DB) ExecWithLog(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.bunDB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.LogQuery("exec", query, time.Since(start), 0, err)
		return result, err
	}
	affected, _ := result.RowsAffected()
	logger.LogQuery("exec", query, time.Since(start), affected, nil)
	return result, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		if err := db.pool.Ping(ctx); err != nil {
			return fmt.Errorf("pgxpool ping failed: %w", err)
		}
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}

// LogStats reports pool usage at debug level.
func (db *DB) LogStats() {
	stats := db.bunDB.DB.Stats()
	attrs := []any{
		slog.String("type", "db"),
		slog.String("driver", string(db.driver)),
		slog.Int("open", stats.OpenConnections),
		slog.Int("in_use", stats.InUse),
		slog.Int64("wait_count", stats.WaitCount),
	}
	if db.pool != nil {
		ps := db.pool.Stat()
		attrs = append(attrs,
			slog.Int("pgx_total", int(ps.TotalConns())),
			slog.Int("pgx_idle", int(ps.IdleConns())),
		)
	}
	slog.Debug("Database pool stats", attrs...)
}

// Monitor pings the database every interval and logs pool stats until ctx is done.
func (db *DB) Monitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
			err := db.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.LogError("Database health check failed", err, slog.String("driver", string(db.driver)))
				continue
			}
			db.LogStats()
		}
	}
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// InitializeSchema creates all tables and indexes if they do not exist yet.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.SerialCounter)(nil),
		(*models.Card)(nil),
		(*models.Account)(nil),
		(*models.Trade)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_cards_owner_id ON cards(owner_id);",
		"CREATE INDEX IF NOT EXISTS idx_cards_owner_tier ON cards(owner_id, tier);",
		"CREATE INDEX IF NOT EXISTS idx_trades_offerer_status ON trades(offerer_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_trades_offeree_status ON trades(offeree_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_trades_status_created ON trades(status, created_at);",
	}
	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.String("driver", string(db.driver)),
		slog.Int("tables", len(tables)),
		slog.Int("indexes", len(indexes)),
	)
	return nil
}
