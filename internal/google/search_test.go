package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"homoxion/internal/core"
)

func TestSearchLicense_Unconfigured(t *testing.T) {
	tests := []struct {
		name   string
		config core.GoogleConfig
	}{
		{"no credentials", core.GoogleConfig{}},
		{"key only", core.GoogleConfig{APIKey: "k"}},
		{"engine only", core.GoogleConfig{CSEID: "cx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher, err := NewSearcher(context.Background(), &tt.config, zap.NewNop())
			if err != nil {
				t.Fatalf("NewSearcher() error = %v", err)
			}

			hits, err := searcher.SearchLicense(context.Background(), "some song")
			if err != nil {
				t.Fatalf("SearchLicense() error = %v", err)
			}
			if hits == nil || len(hits) != 0 {
				t.Errorf("SearchLicense() = %v, want empty non-nil slice", hits)
			}
		})
	}
}

func TestSearchLicense(t *testing.T) {
	var gotQuery, gotEngine string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customsearch/v1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		gotEngine = r.URL.Query().Get("cx")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"Song - License","link":"https://example.org/license"},
			{"title":"CC BY 4.0","link":"https://creativecommons.org/licenses/by/4.0/"}
		]}`))
	}))
	defer srv.Close()

	searcher, err := NewSearcher(context.Background(), &core.GoogleConfig{
		APIKey:   "k",
		CSEID:    "engine",
		Endpoint: srv.URL + "/",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSearcher() error = %v", err)
	}

	hits, err := searcher.SearchLicense(context.Background(), "Song")
	if err != nil {
		t.Fatalf("SearchLicense() error = %v", err)
	}

	if gotQuery != "Song license" {
		t.Errorf("query sent = %q, want %q", gotQuery, "Song license")
	}
	if gotEngine != "engine" {
		t.Errorf("engine sent = %q, want %q", gotEngine, "engine")
	}
	if len(hits) != 2 {
		t.Fatalf("SearchLicense() returned %d hits, want 2", len(hits))
	}
	if hits[1].Link != "https://creativecommons.org/licenses/by/4.0/" {
		t.Errorf("SearchLicense() second link = %q", hits[1].Link)
	}
}
