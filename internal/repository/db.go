package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/openfacepoker/ofc-server-go/internal/config"
)

// DB wraps the connection pool and owns the schema bootstrap.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id           TEXT PRIMARY KEY,
	variant      TEXT NOT NULL,
	status       TEXT NOT NULL,
	winner_id    TEXT NOT NULL DEFAULT '',
	scores       JSONB NOT NULL,
	snapshot     JSONB NOT NULL,
	checksum     TEXT NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS games_completed_at_idx ON games (completed_at DESC);
`

// NewDB connects to PostgreSQL, verifies the connection, and ensures
// the schema exists.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database ready",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name))
	return db, nil
}

func (db *DB) bootstrap(ctx context.Context) error {
	return EnsureSchema(ctx, db.pool)
}

// EnsureSchema creates the history tables if they do not exist. Exposed
// for one-shot tooling that connects with its own pool.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}
	return nil
}

// Stats returns the pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
