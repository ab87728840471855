// Package scrape checks public music catalogues for Creative Commons markers.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"homoxion/internal/core"
)

const (
	// QueryPlaceholder is replaced by the escaped search term in endpoint templates
	QueryPlaceholder = "{q}"
	// Marker is the literal text whose presence counts as a Creative Commons match
	Marker = "Creative Commons"

	defaultMaxBodyBytes = 2 << 20
	userAgent           = "homoxion/1.0 (+https://github.com/homoxion/homoxion)"
)

// Scraper fetches every configured endpoint concurrently and reports whether
// any page mentions Creative Commons.
type Scraper struct {
	endpoints []string
	client    *http.Client
	limiter   *rate.Limiter
	maxBody   int64
	logger    *zap.Logger
}

// NewScraper builds a scraper. A non-positive rate disables pacing.
func NewScraper(config *core.ScrapeConfig, client *http.Client, logger *zap.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: core.DefaultFetchTimeoutSecs * time.Second}
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	maxBody := config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	endpoints := make([]string, 0, len(config.Endpoints))
	for _, endpoint := range config.Endpoints {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}

	return &Scraper{
		endpoints: endpoints,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		maxBody:   maxBody,
		logger:    logger.Named("scrape"),
	}
}

// Scrape queries all endpoints for term and waits for every one of them.
// Endpoint failures are recorded on the result, never returned.
func (s *Scraper) Scrape(ctx context.Context, term string) (*core.ScrapeRecord, error) {
	record := &core.ScrapeRecord{Term: term}
	if term == "" || len(s.endpoints) == 0 {
		return record, nil
	}

	results := make([]core.EndpointResult, len(s.endpoints))

	var g errgroup.Group
	for i, endpoint := range s.endpoints {
		g.Go(func() error {
			results[i] = s.fetch(ctx, BuildURL(endpoint, term))
			return nil
		})
	}
	_ = g.Wait()

	record.Endpoints = results
	for _, result := range results {
		if result.Matched {
			record.Matched = true
			break
		}
	}

	s.logger.Debug("Scrape finished",
		zap.String("term", term),
		zap.Int("endpoints", len(results)),
		zap.Bool("matched", record.Matched))

	return record, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) core.EndpointResult {
	result := core.EndpointResult{URL: pageURL}

	if err := s.limiter.Wait(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("Endpoint unreachable", zap.String("url", pageURL), zap.Error(err))
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		result.Error = fmt.Sprintf("read body: %v", err)
		return result
	}

	result.Matched = bytes.Contains(body, []byte(Marker))
	result.Title, result.LicenseURL = parseEvidence(body, pageURL)

	return result
}

// BuildURL fills the endpoint template with the escaped term. Templates without
// a placeholder get the term appended.
func BuildURL(endpoint, term string) string {
	escaped := url.QueryEscape(term)
	if strings.Contains(endpoint, QueryPlaceholder) {
		return strings.ReplaceAll(endpoint, QueryPlaceholder, escaped)
	}
	return endpoint + escaped
}

// parseEvidence returns the page title and the first rel="license" link.
func parseEvidence(body []byte, pageURL string) (title, licenseURL string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")

	if href, ok := doc.Find(`a[rel~="license"], link[rel~="license"]`).First().Attr("href"); ok {
		licenseURL = resolveURL(pageURL, strings.TrimSpace(href))
	}

	return title, licenseURL
}

func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
