// Package postgres is the PostgreSQL flashcard store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/hpungsan/tango/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewPool creates a connection pool for dsn, applies the configured pool
// limits and pings the database.
func NewPool(ctx context.Context, dsn string, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if cfg != nil && cfg.DBMaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxOpenConns)
	}
	if cfg != nil && cfg.DBMaxIdleConns > 0 {
		poolCfg.MinConns = int32(min(cfg.DBMaxIdleConns, int(poolCfg.MaxConns)))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate applies the embedded goose migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Open migrates the database and returns a ready store.
func Open(ctx context.Context, dsn string, cfg *config.Config) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a DSN (set TANGO_STORE_DSN)")
	}
	if err := Migrate(ctx, dsn); err != nil {
		return nil, err
	}
	pool, err := NewPool(ctx, dsn, cfg)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}
