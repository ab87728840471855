package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"homoxion/internal/core"
	"homoxion/internal/scrape"
	"homoxion/internal/store"
	"homoxion/internal/tags"
	"homoxion/pkg/musiclink"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := map[string]string{
		"youtube-api-key":     "HOMOXION_YOUTUBE_API_KEY",
		"cache-ttl-hours":     "HOMOXION_CACHE_TTL_HOURS",
		"format":              "HOMOXION_FORMAT",
		"metrics-pushgateway": "HOMOXION_METRICS_PUSHGATEWAY",
	}
	for flag, expected := range tests {
		if got := flagToEnvVar(flag); got != expected {
			t.Errorf("flagToEnvVar(%q) = %q, want %q", flag, got, expected)
		}
	}
}

func TestBuildConfig_FromEnvironment(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "legacy-key")
	t.Setenv("SUPABASE_DB_URL", "postgres://db")
	t.Setenv("HOMOXION_SPOTIFY_CLIENT_ID", "prefixed-id")
	t.Setenv("SPOTIFY_CLIENT_ID", "legacy-id")
	t.Setenv("HOMOXION_TIMEOUT", "3")
	t.Setenv("HOMOXION_CACHE_BACKEND", "REDIS")
	t.Setenv("HOMOXION_LANGUAGE", "ch_be")

	bindEnv()
	cfg := buildConfig()

	if cfg.YouTube.APIKey != "legacy-key" {
		t.Errorf("YouTube.APIKey = %q, want legacy-key", cfg.YouTube.APIKey)
	}
	if cfg.Spotify.ClientID != "prefixed-id" {
		t.Errorf("Spotify.ClientID = %q, prefixed variable should win", cfg.Spotify.ClientID)
	}
	if cfg.Cache.DatabaseURL != "postgres://db" {
		t.Errorf("Cache.DatabaseURL = %q", cfg.Cache.DatabaseURL)
	}
	if cfg.App.FetchTimeout != 3*time.Second {
		t.Errorf("App.FetchTimeout = %v, want 3s", cfg.App.FetchTimeout)
	}
	if cfg.Cache.Backend != core.CacheBackendRedis {
		t.Errorf("Cache.Backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.App.Language != "ch_be" {
		t.Errorf("App.Language = %q, want ch_be", cfg.App.Language)
	}
}

func TestBuildConfig_UnsupportedLanguage(t *testing.T) {
	t.Setenv("HOMOXION_LANGUAGE", "xx")
	bindEnv()

	if cfg := buildConfig(); cfg.App.Language != "en" {
		t.Errorf("App.Language = %q, want fallback en", cfg.App.Language)
	}
}

func TestValidateConfig(t *testing.T) {
	withKeys := func() *core.Config {
		cfg := core.DefaultConfig()
		cfg.YouTube.APIKey = "k"
		cfg.Spotify.ClientID = "id"
		cfg.Spotify.ClientSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*core.Config)
		kind    core.Kind
		wantErr error
		fails   bool
	}{
		{"youtube ok", nil, core.KindYouTubeQuery, nil, false},
		{"youtube key missing", func(c *core.Config) { c.YouTube.APIKey = "" }, core.KindYouTubeURL, core.ErrNotConfigured, true},
		{"spotify secret missing", func(c *core.Config) { c.Spotify.ClientSecret = "" }, core.KindSpotifyURL, core.ErrNotConfigured, true},
		{"bulk needs nothing", func(c *core.Config) { *c = *core.DefaultConfig() }, core.KindBulk, nil, false},
		{"file needs nothing", func(c *core.Config) { *c = *core.DefaultConfig() }, core.KindFile, nil, false},
		{"bad format", func(c *core.Config) { c.App.OutputFormat = "yaml" }, core.KindBulk, nil, true},
		{"bad cache backend", func(c *core.Config) { c.Cache.Backend = "memcached" }, core.KindBulk, nil, true},
		{"llm key missing", func(c *core.Config) { c.LLM.Provider = "openai" }, core.KindBulk, nil, true},
		{"ollama without key", func(c *core.Config) { c.LLM.Provider = "ollama" }, core.KindBulk, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := withKeys()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := validateConfig(cfg, []core.Request{{Kind: tt.kind, Query: "x"}})
			if (err != nil) != tt.fails {
				t.Fatalf("validateConfig() error = %v, fails %v", err, tt.fails)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("validateConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := validateConfig(withKeys(), nil); !errors.Is(err, core.ErrNoInput) {
		t.Errorf("validateConfig(no requests) = %v, want ErrNoInput", err)
	}
}

func TestReadInputLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.txt")
	if err := os.WriteFile(path, []byte("old march\n# comment\n\nhit single\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lines, err := readInputLines(path, nil)
	if err != nil {
		t.Fatalf("readInputLines() error = %v", err)
	}
	expected := []string{"old march", "# comment", "", "hit single"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("readInputLines() = %q, want %q", lines, expected)
	}

	lines, err = readInputLines("-", strings.NewReader("from stdin\n"))
	if err != nil || len(lines) != 1 || lines[0] != "from stdin" {
		t.Errorf("readInputLines(stdin) = %q, %v", lines, err)
	}

	if _, err := readInputLines(filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Error("readInputLines() should fail for a missing file")
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, want := range []string{
		"HOMOXION_YOUTUBE_API_KEY=",
		"HOMOXION_SPOTIFY_CLIENT_SECRET=",
		"HOMOXION_CACHE_BACKEND=auto",
		"HOMOXION_LLM_PROVIDER=none",
		"HOMOXION_SCRAPE_ENDPOINT=" + core.DefaultScrapeEndpoint,
		"HOMOXION_FORMAT=text",
		"SUPABASE_DB_URL",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("env example missing %q", want)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		skipped zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := buildLogger(tt.level, "console")
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("level %s should enable %s", tt.level, tt.enabled)
			}
			if l.Core().Enabled(tt.skipped) {
				t.Errorf("level %s should not enable %s", tt.level, tt.skipped)
			}
		})
	}
}

func TestClientsSources_LeavesMissingNil(t *testing.T) {
	c := &clients{tags: tags.NewReader(zap.NewNop()), logger: zap.NewNop()}
	s := c.sources()

	if s.YouTube != nil || s.Spotify != nil || s.Google != nil {
		t.Error("clients that were not built must be nil interfaces")
	}
	if s.Tags == nil {
		t.Error("tag reader should always be available")
	}
	if s.Links != nil {
		t.Error("no link expander without Spotify or music link clients")
	}

	c.links = musiclink.NewManager(nil)
	if c.sources().Links == nil {
		t.Error("music link client should be exposed as link expander")
	}
}

func TestWarmCacheSkipsLinkResolution(t *testing.T) {
	var trackHits atomic.Int32
	var linkDown atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			fmt.Fprint(w, "<title>Search</title>")
			return
		}
		trackHits.Add(1)
		if linkDown.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<meta property="og:title" content="Old March by Band">`)
	}))
	defer server.Close()

	cfg := core.DefaultConfig()
	cfg.App.FetchTimeout = 2 * time.Second
	cfg.Scrape.Endpoints = []string{server.URL + "/search?q={q}"}
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	req := core.Request{Kind: core.KindYouTubeQuery, Query: server.URL + "/track/1"}

	// Each run opens its own gate over the same file, like separate invocations.
	run := func() *core.Result {
		t.Helper()
		backend, err := store.NewSQLiteBackend(t.Context(), dbPath, "cache_music_info")
		if err != nil {
			t.Fatalf("NewSQLiteBackend() error = %v", err)
		}
		gate := store.NewGate(backend, 8, zap.NewNop())
		defer gate.Close()

		sources := core.Sources{
			Scraper: scrape.NewScraper(&cfg.Scrape, server.Client(), zap.NewNop()),
			Links: &linkExpander{
				links:  musiclink.NewManagerWith(musiclink.NewPageResolver(server.Client(), "127.0.0.1")),
				logger: zap.NewNop(),
			},
		}
		res, err := core.NewAggregator(cfg, sources, gate, nil, zap.NewNop()).Resolve(t.Context(), req)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		return res
	}

	if res := run(); res.Source != core.SourceFresh || res.Scrape.Term != "Old March Band" {
		t.Fatalf("cold run = %s with term %q, want fresh with the expanded term", res.Source, res.Scrape.Term)
	}
	if trackHits.Load() != 1 {
		t.Fatalf("cold run fetched the track page %d times, want 1", trackHits.Load())
	}

	if res := run(); res.Source != core.SourceCache {
		t.Errorf("warm run source = %s, want cache", res.Source)
	}

	linkDown.Store(true)
	if res := run(); res.Source != core.SourceCache {
		t.Errorf("warm run with link service down source = %s, want cache", res.Source)
	}

	if got := trackHits.Load(); got != 1 {
		t.Errorf("track page fetched %d times, want no fetch on warm runs", got)
	}
}

func TestIsUsageError(t *testing.T) {
	if !isUsageError(core.ErrNoInput) {
		t.Error("ErrNoInput is a usage error")
	}
	if isUsageError(errors.New("boom")) {
		t.Error("arbitrary errors are not usage errors")
	}
}

type stubShortLinks struct {
	id    string
	err   error
	calls int
}

func (s *stubShortLinks) ExtractTrackID(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.id, s.err
}

func TestLinkExpander(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<meta property="og:title" content="Old  March by Band on TIDAL">`)
	}))
	defer server.Close()

	tests := []struct {
		name      string
		req       core.Request
		shortLink *stubShortLinks
		wantQuery string
		wantID    string
		wantErr   bool
	}{
		{
			name:      "music link becomes search text",
			req:       core.Request{Kind: core.KindYouTubeQuery, Query: server.URL + "/track/1"},
			wantQuery: "Old March Band",
		},
		{
			name:      "plain search untouched",
			req:       core.Request{Kind: core.KindYouTubeQuery, Query: "plain title"},
			wantQuery: "plain title",
		},
		{
			name:      "bulk links untouched",
			req:       core.Request{Kind: core.KindBulk, Query: server.URL + "/track/2"},
			wantQuery: server.URL + "/track/2",
		},
		{
			name:      "music link service down",
			req:       core.Request{Kind: core.KindYouTubeQuery, Query: server.URL + "/down"},
			wantQuery: server.URL + "/down",
			wantErr:   true,
		},
		{
			name:      "short link resolved",
			req:       core.Request{Kind: core.KindSpotifyURL, Query: "https://spotify.link/abc"},
			shortLink: &stubShortLinks{id: "abc123"},
			wantQuery: "https://spotify.link/abc",
			wantID:    "abc123",
		},
		{
			name:      "short link failure",
			req:       core.Request{Kind: core.KindSpotifyURL, Query: "https://spotify.link/abc"},
			shortLink: &stubShortLinks{err: errors.New("no redirect")},
			wantQuery: "https://spotify.link/abc",
			wantErr:   true,
		},
		{
			name:      "known track id kept",
			req:       core.Request{Kind: core.KindSpotifyURL, Query: "open.spotify.com/track/xyz", ID: "xyz"},
			shortLink: &stubShortLinks{id: "other"},
			wantQuery: "open.spotify.com/track/xyz",
			wantID:    "xyz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expander := &linkExpander{
				links:  musiclink.NewManagerWith(musiclink.NewPageResolver(server.Client(), "127.0.0.1")),
				logger: zap.NewNop(),
			}
			if tt.shortLink != nil {
				expander.shortLinks = tt.shortLink
			}

			got, err := expander.Expand(t.Context(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Query != tt.wantQuery || got.ID != tt.wantID {
				t.Errorf("Expand() = %q/%q, want %q/%q", got.Query, got.ID, tt.wantQuery, tt.wantID)
			}
			if got.Kind != tt.req.Kind {
				t.Errorf("Expand() kind = %q, want %q", got.Kind, tt.req.Kind)
			}
		})
	}
}
