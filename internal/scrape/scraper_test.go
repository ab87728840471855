package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"homoxion/internal/core"
)

const ccPage = `<html><head><title>  Search:  Old March </title></head><body>
<p>Licensed under a Creative Commons Attribution license.</p>
<a rel="license" href="/licenses/by/4.0/">CC BY</a>
</body></html>`

const plainPage = `<html><head><title>Nothing here</title></head><body>All rights reserved</body></html>`

func newScraper(endpoints ...string) *Scraper {
	return NewScraper(&core.ScrapeConfig{
		Endpoints:         endpoints,
		RequestsPerSecond: 0,
	}, nil, zap.NewNop())
}

func TestScrape_AnyEndpointMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cc":
			_, _ = w.Write([]byte(ccPage))
		case "/plain":
			_, _ = w.Write([]byte(plainPage))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	scraper := newScraper(
		srv.URL+"/plain?q={q}",
		srv.URL+"/broken?q={q}",
		srv.URL+"/cc?q={q}",
		"http://127.0.0.1:1/unreachable?q={q}",
	)

	record, err := scraper.Scrape(context.Background(), "old march")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	if !record.Matched {
		t.Error("Scrape() should match when any endpoint mentions Creative Commons")
	}
	if len(record.Endpoints) != 4 {
		t.Fatalf("Scrape() recorded %d endpoints, want 4", len(record.Endpoints))
	}

	plain, broken, cc, unreachable := record.Endpoints[0], record.Endpoints[1], record.Endpoints[2], record.Endpoints[3]

	if plain.Matched || plain.Status != http.StatusOK {
		t.Errorf("plain endpoint = %+v", plain)
	}
	if broken.Status != http.StatusInternalServerError || broken.Matched {
		t.Errorf("broken endpoint = %+v", broken)
	}
	if !cc.Matched {
		t.Errorf("cc endpoint = %+v, want matched", cc)
	}
	if cc.Title != "Search: Old March" {
		t.Errorf("cc title = %q", cc.Title)
	}
	if cc.LicenseURL != srv.URL+"/licenses/by/4.0/" {
		t.Errorf("cc license url = %q", cc.LicenseURL)
	}
	if !strings.Contains(cc.URL, "q=old+march") {
		t.Errorf("cc url = %q, want escaped term", cc.URL)
	}
	if unreachable.Error == "" {
		t.Error("unreachable endpoint should record its error")
	}
}

func TestScrape_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(plainPage))
	}))
	defer srv.Close()

	record, err := newScraper(srv.URL+"/?q={q}").Scrape(context.Background(), "hit single")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if record.Matched {
		t.Error("Scrape() should not match a page without the marker")
	}
}

func TestScrape_EmptyTerm(t *testing.T) {
	record, err := newScraper(core.DefaultScrapeEndpoint).Scrape(context.Background(), "")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if record.Matched || len(record.Endpoints) != 0 {
		t.Errorf("Scrape() with empty term = %+v, want no requests", record)
	}
}

func TestScrape_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ccPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, err := newScraper(srv.URL+"/?q={q}").Scrape(ctx, "x")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if record.Matched {
		t.Error("Scrape() with cancelled context should not match")
	}
	if record.Endpoints[0].Error == "" {
		t.Error("cancelled request should record an error")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		endpoint string
		term     string
		expected string
	}{
		{core.DefaultScrapeEndpoint, "a b&c", "https://freemusicarchive.org/search/?quicksearch=a+b%26c"},
		{"https://example.org/search?q=", "song", "https://example.org/search?q=song"},
	}

	for _, tt := range tests {
		if got := BuildURL(tt.endpoint, tt.term); got != tt.expected {
			t.Errorf("BuildURL(%q, %q) = %q, want %q", tt.endpoint, tt.term, got, tt.expected)
		}
	}
}
