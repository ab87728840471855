package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// SQLite driver for the local cache file
	_ "github.com/mattn/go-sqlite3"

	"homoxion/internal/core"
)

// SQLiteBackend stores results in a local database file using the same table
// layout as the Postgres backend.
type SQLiteBackend struct {
	db    *sql.DB
	table string
}

func NewSQLiteBackend(ctx context.Context, path, table string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("cache sqlite path is required")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	return &SQLiteBackend{db: db, table: table}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = ?`, b.table)
	err := b.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("select cache row: %w", err)
	}
	return []byte(data), nil
}

func (b *SQLiteBackend) Upsert(ctx context.Context, key string, data []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, b.table)
	if _, err := b.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert cache row: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Name() string {
	return core.CacheBackendSQLite
}
