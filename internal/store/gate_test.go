package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"homoxion/internal/core"
)

// memoryBackend is an in-memory Backend with injectable failures.
type memoryBackend struct {
	mu        sync.Mutex
	data      map[string][]byte
	getErr    error
	upsertErr error
	gets      int
	upserts   int
	closed    bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (m *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return data, nil
}

func (m *memoryBackend) Upsert(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.data[key] = data
	return nil
}

func (m *memoryBackend) Close() error {
	m.closed = true
	return nil
}

func (m *memoryBackend) Name() string { return "memory" }

func sampleRequest() core.Request {
	return core.Request{Kind: core.KindYouTubeQuery, Query: "lofi beat"}
}

func sampleResult() *core.Result {
	return &core.Result{
		Kind:    core.KindYouTubeQuery,
		Query:   "lofi beat",
		YouTube: &core.YouTubeRecord{Title: "Lofi Beat", License: "youtube"},
		Verdict: core.VerdictCopyrighted,
		Source:  core.SourceFresh,
	}
}

func TestGate_StoreThenLookup(t *testing.T) {
	backend := newMemoryBackend()
	gate := NewGate(backend, 8, zap.NewNop())
	ctx := context.Background()

	if _, ok := gate.Lookup(ctx, sampleRequest()); ok {
		t.Fatal("Lookup() on empty cache should miss")
	}

	gate.Store(ctx, sampleRequest(), sampleResult())

	res, ok := gate.Lookup(ctx, sampleRequest())
	if !ok {
		t.Fatal("Lookup() after Store() should hit")
	}
	if res.Source != core.SourceCache {
		t.Errorf("Lookup() source = %v, want %v", res.Source, core.SourceCache)
	}
	if res.YouTube == nil || res.YouTube.Title != "Lofi Beat" {
		t.Errorf("Lookup() returned wrong record: %+v", res.YouTube)
	}
	if backend.upserts != 1 {
		t.Errorf("backend upserts = %d, want 1", backend.upserts)
	}
}

func TestGate_BackendHitPopulatesL1(t *testing.T) {
	backend := newMemoryBackend()
	writer := NewGate(backend, 8, zap.NewNop())
	writer.Store(context.Background(), sampleRequest(), sampleResult())

	reader := NewGate(backend, 8, zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, ok := reader.Lookup(context.Background(), sampleRequest()); !ok {
			t.Fatal("Lookup() should hit the backend entry")
		}
	}
	if backend.gets != 1 {
		t.Errorf("backend gets = %d, want 1 (later lookups served from memory)", backend.gets)
	}
}

func TestGate_DegradesOnBackendFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.getErr = errors.New("connection refused")
	backend.upsertErr = errors.New("connection refused")
	gate := NewGate(backend, 8, zap.NewNop())

	if _, ok := gate.Lookup(context.Background(), sampleRequest()); ok {
		t.Error("Lookup() should degrade to a miss on backend error")
	}

	// Must not panic or propagate.
	gate.Store(context.Background(), sampleRequest(), sampleResult())
}

func TestGate_MalformedPayload(t *testing.T) {
	backend := newMemoryBackend()
	backend.data[Key(sampleRequest())] = []byte(`{"kind":`)
	gate := NewGate(backend, 8, zap.NewNop())

	if _, ok := gate.Lookup(context.Background(), sampleRequest()); ok {
		t.Error("Lookup() should treat a malformed payload as a miss")
	}

	backend.data[Key(sampleRequest())] = []byte(`{"kind":"tidal","copyright_status":"Copyrighted"}`)
	if _, ok := gate.Lookup(context.Background(), sampleRequest()); ok {
		t.Error("Lookup() should treat an unknown kind as a miss")
	}
}

func TestGate_NoCacheSkipsBoth(t *testing.T) {
	backend := newMemoryBackend()
	gate := NewGate(backend, 8, zap.NewNop())

	req := sampleRequest()
	req.NoCache = true

	gate.Store(context.Background(), req, sampleResult())
	if _, ok := gate.Lookup(context.Background(), req); ok {
		t.Error("Lookup() with NoCache should never hit")
	}
	if backend.gets != 0 || backend.upserts != 0 {
		t.Errorf("backend touched with NoCache: gets=%d upserts=%d", backend.gets, backend.upserts)
	}
}

func TestGate_Close(t *testing.T) {
	backend := newMemoryBackend()
	gate := NewGate(backend, 8, zap.NewNop())
	if err := gate.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !backend.closed {
		t.Error("Close() should close the backend")
	}
}

func TestResolveBackendName(t *testing.T) {
	tests := []struct {
		name     string
		cfg      core.CacheConfig
		expected string
	}{
		{"nothing configured", core.CacheConfig{Backend: core.CacheBackendAuto}, core.CacheBackendNone},
		{"empty backend", core.CacheConfig{}, core.CacheBackendNone},
		{"database url", core.CacheConfig{Backend: core.CacheBackendAuto, DatabaseURL: "postgres://x", RedisURL: "redis://y"}, core.CacheBackendPostgres},
		{"redis url", core.CacheConfig{Backend: core.CacheBackendAuto, RedisURL: "redis://y", SQLitePath: "c.db"}, core.CacheBackendRedis},
		{"sqlite path", core.CacheConfig{Backend: core.CacheBackendAuto, SQLitePath: "c.db"}, core.CacheBackendSQLite},
		{"explicit wins", core.CacheConfig{Backend: core.CacheBackendNone, DatabaseURL: "postgres://x"}, core.CacheBackendNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveBackendName(tt.cfg); got != tt.expected {
				t.Errorf("ResolveBackendName() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpenBackend_RejectsBadTable(t *testing.T) {
	_, err := OpenBackend(context.Background(), core.CacheConfig{Backend: core.CacheBackendNone, Table: "x; DROP TABLE y"})
	if err == nil {
		t.Error("OpenBackend() should reject an unsafe table name")
	}
}

func TestOpenBackendOrNone_Degrades(t *testing.T) {
	backend := OpenBackendOrNone(context.Background(), core.CacheConfig{Backend: "memcached"}, zap.NewNop())
	if backend.Name() != core.CacheBackendNone {
		t.Errorf("OpenBackendOrNone() = %q, want none", backend.Name())
	}
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := core.CacheConfig{
		Backend:    core.CacheBackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "cache.db"),
		Table:      "cache_music_info",
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenBackend() error = %v", err)
	}
	defer backend.Close()

	if _, err := backend.Get(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() missing key error = %v, want ErrMiss", err)
	}

	if err := backend.Upsert(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := backend.Upsert(ctx, "k", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Upsert() overwrite error = %v", err)
	}

	data, err := backend.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != `{"a":2}` {
		t.Errorf("Get() = %s, want overwritten value", data)
	}
}
