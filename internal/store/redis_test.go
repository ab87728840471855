package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	backend := newRedisBackendWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { _ = backend.Close() })
	return backend, mr
}

func TestRedisBackend_MissThenRoundTrip(t *testing.T) {
	backend, _ := newTestRedis(t, 0)
	ctx := context.Background()

	if _, err := backend.Get(ctx, "homoxion:v1:absent"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get(absent) error = %v, want ErrMiss", err)
	}

	if err := backend.Upsert(ctx, "k", []byte(`{"verdict":"Copyrighted"}`)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := backend.Upsert(ctx, "k", []byte(`{"verdict":"Non-Copyright"}`)); err != nil {
		t.Fatalf("Upsert() overwrite error = %v", err)
	}

	data, err := backend.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != `{"verdict":"Non-Copyright"}` {
		t.Errorf("Get() = %s, want the last upserted payload", data)
	}
}

func TestRedisBackend_TTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"expiring", time.Hour},
		{"forever", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, mr := newTestRedis(t, tt.ttl)
			if err := backend.Upsert(context.Background(), "k", []byte("{}")); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			if got := mr.TTL("k"); got != tt.ttl {
				t.Errorf("TTL = %v, want %v", got, tt.ttl)
			}

			mr.FastForward(2 * time.Hour)
			_, err := backend.Get(context.Background(), "k")
			if tt.ttl > 0 && !errors.Is(err, ErrMiss) {
				t.Errorf("Get() after expiry error = %v, want ErrMiss", err)
			}
			if tt.ttl == 0 && err != nil {
				t.Errorf("Get() error = %v, entries without TTL must stay", err)
			}
		})
	}
}

func TestRedisBackend_ServerDown(t *testing.T) {
	backend, mr := newTestRedis(t, 0)
	mr.Close()

	_, err := backend.Get(context.Background(), "k")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want a backend failure distinct from ErrMiss", err)
	}
}

func TestNewRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	backend, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisBackend() error = %v", err)
	}
	defer backend.Close()

	if backend.Name() != "redis" {
		t.Errorf("Name() = %q", backend.Name())
	}

	if _, err := NewRedisBackend(context.Background(), "not a url", 0); err == nil {
		t.Error("NewRedisBackend() should reject an invalid URL")
	}
}
