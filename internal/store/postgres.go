package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"homoxion/internal/core"
)

const postgresConnectTimeout = 5 * time.Second

// PostgresBackend stores results in a jsonb column. It reads the same table
// shape a Supabase project exposes for its cache_music_info table.
type PostgresBackend struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresBackend connects, pings and creates the table when missing.
func NewPostgresBackend(ctx context.Context, databaseURL, table string) (*PostgresBackend, error) {
	if databaseURL == "" {
		return nil, errors.New("cache database URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse cache database URL: %w", err)
	}
	config.MaxConns = 4

	ctx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key text PRIMARY KEY,
		data jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	return &PostgresBackend{pool: pool, table: table}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, b.table)
	err := b.pool.QueryRow(ctx, query, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("select cache row: %w", err)
	}
	return data, nil
}

func (b *PostgresBackend) Upsert(ctx context.Context, key string, data []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`, b.table)
	if _, err := b.pool.Exec(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("upsert cache row: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

func (b *PostgresBackend) Name() string {
	return core.CacheBackendPostgres
}
