package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"homoxion/internal/core"
)

// ErrMiss is returned by a Backend when the key is not stored.
var ErrMiss = errors.New("cache miss")

var tableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Backend is the persistent key-value store behind the gate.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Upsert(ctx context.Context, key string, data []byte) error
	Close() error
	Name() string
}

// nopBackend is used when no backend is configured; every lookup misses.
type nopBackend struct{}

func (nopBackend) Get(context.Context, string) ([]byte, error)  { return nil, ErrMiss }
func (nopBackend) Upsert(context.Context, string, []byte) error { return nil }
func (nopBackend) Close() error                                 { return nil }
func (nopBackend) Name() string                                 { return core.CacheBackendNone }

// NopBackend returns the backend of the "none" setting.
func NopBackend() Backend {
	return nopBackend{}
}

// ResolveBackendName turns "auto" into a concrete backend name from whichever
// connection setting is present.
func ResolveBackendName(cfg core.CacheConfig) string {
	if cfg.Backend != "" && cfg.Backend != core.CacheBackendAuto {
		return cfg.Backend
	}
	switch {
	case cfg.DatabaseURL != "":
		return core.CacheBackendPostgres
	case cfg.RedisURL != "":
		return core.CacheBackendRedis
	case cfg.SQLitePath != "":
		return core.CacheBackendSQLite
	default:
		return core.CacheBackendNone
	}
}

// OpenBackend connects the configured backend.
func OpenBackend(ctx context.Context, cfg core.CacheConfig) (Backend, error) {
	table := cfg.Table
	if table == "" {
		table = core.DefaultConfig().Cache.Table
	}
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("invalid cache table name %q", table)
	}

	switch name := ResolveBackendName(cfg); name {
	case core.CacheBackendNone:
		return NopBackend(), nil
	case core.CacheBackendPostgres:
		return NewPostgresBackend(ctx, cfg.DatabaseURL, table)
	case core.CacheBackendRedis:
		return NewRedisBackend(ctx, cfg.RedisURL, cfg.TTL)
	case core.CacheBackendSQLite:
		return NewSQLiteBackend(ctx, cfg.SQLitePath, table)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", name)
	}
}

// OpenBackendOrNone degrades to the nop backend when the configured one cannot be opened.
func OpenBackendOrNone(ctx context.Context, cfg core.CacheConfig, logger *zap.Logger) Backend {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		logger.Warn("Cache backend unavailable, continuing without cache",
			zap.String("backend", ResolveBackendName(cfg)),
			zap.Error(err))
		return NopBackend()
	}
	logger.Debug("Cache backend ready", zap.String("backend", backend.Name()))
	return backend
}
