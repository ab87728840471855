package store

import (
	"context"
	"encoding/json"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"homoxion/internal/core"
)

// Gate is the cache consulted before any network work. It never fails a
// lookup: unreachable backends and unreadable payloads count as misses.
type Gate struct {
	backend Backend
	l1      *lru.Cache[string, []byte]
	logger  *zap.Logger
}

// NewGate wraps backend with an in-process LRU of l1Size entries.
func NewGate(backend Backend, l1Size int, logger *zap.Logger) *Gate {
	if backend == nil {
		backend = NopBackend()
	}
	if l1Size <= 0 {
		l1Size = core.DefaultL1CacheSize
	}
	l1, _ := lru.New[string, []byte](l1Size)

	return &Gate{
		backend: backend,
		l1:      l1,
		logger:  logger.Named("cache"),
	}
}

// Lookup returns the stored result for req, marked as coming from the cache.
func (g *Gate) Lookup(ctx context.Context, req core.Request) (*core.Result, bool) {
	if req.NoCache {
		return nil, false
	}

	key := Key(req)

	if data, ok := g.l1.Get(key); ok {
		if res, err := decodeResult(data); err == nil {
			return res, true
		}
		g.l1.Remove(key)
	}

	data, err := g.backend.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, false
	}
	if err != nil {
		g.logger.Warn("Cache lookup failed, fetching fresh",
			zap.String("backend", g.backend.Name()),
			zap.Error(err))
		return nil, false
	}

	res, err := decodeResult(data)
	if err != nil {
		g.logger.Warn("Ignoring malformed cache entry",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}

	g.l1.Add(key, data)
	return res, true
}

// Store persists result for req. Failures are logged and swallowed.
func (g *Gate) Store(ctx context.Context, req core.Request, result *core.Result) {
	if req.NoCache || result == nil {
		return
	}

	key := Key(req)

	data, err := json.Marshal(result)
	if err != nil {
		g.logger.Warn("Failed to encode result for cache", zap.Error(err))
		return
	}

	g.l1.Add(key, data)

	if err := g.backend.Upsert(ctx, key, data); err != nil {
		g.logger.Warn("Cache write failed",
			zap.String("backend", g.backend.Name()),
			zap.Error(err))
	}
}

// Close releases the backend connection.
func (g *Gate) Close() error {
	return g.backend.Close()
}

func decodeResult(data []byte) (*core.Result, error) {
	var res core.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	if !res.Kind.Valid() {
		return nil, errors.New("cached result has unknown kind")
	}
	res.Source = core.SourceCache
	return &res, nil
}
