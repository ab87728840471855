package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"homoxion/pkg/fuzzy"
)

// Sources bundles the fetchers the aggregator may consult. A nil source is
// treated as unavailable for every request that needs it.
type Sources struct {
	YouTube    VideoPlatform
	Spotify    MusicCatalog
	Google     WebSearch
	Tags       TagReader
	Scraper    LicenseScraper
	Classifier Classifier
	Links      LinkResolver
}

// Aggregator runs the fetch plan for a request and merges the records.
type Aggregator struct {
	config  *Config
	sources Sources
	cache   ResultCache
	metrics MetricsRecorder
	dedup   DedupStore
	logger  *zap.Logger
}

// NewAggregator creates a new aggregator. A nil cache or metrics recorder
// disables that concern.
func NewAggregator(config *Config, sources Sources, cache ResultCache, metrics MetricsRecorder, logger *zap.Logger) *Aggregator {
	if cache == nil {
		cache = nopCache{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Aggregator{
		config:  config,
		sources: sources,
		cache:   cache,
		metrics: metrics,
		dedup:   newMapDedup(),
		logger:  logger.Named("aggregator"),
	}
}

// SetDedupStore replaces the store ResolveAll uses to suppress duplicates.
func (a *Aggregator) SetDedupStore(store DedupStore) {
	if store != nil {
		a.dedup = store
	}
}

// Resolve returns the merged result for req, served from the cache when possible.
func (a *Aggregator) Resolve(ctx context.Context, req Request) (*Result, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown request kind %q", req.Kind)
	}
	if req.Kind == KindFile && !req.HasFile() {
		return nil, ErrNoInput
	}
	if req.Kind != KindFile && req.Query == "" && req.ID == "" && !req.HasFile() {
		return nil, ErrNoInput
	}

	if req.NoCache {
		a.metrics.RecordCache(CacheOutcomeBypass)
	} else if cached, ok := a.cache.Lookup(ctx, req); ok {
		a.metrics.RecordCache(CacheOutcomeHit)
		a.logger.Debug("Serving cached result", zap.String("kind", string(req.Kind)))
		return cached, nil
	} else {
		a.metrics.RecordCache(CacheOutcomeMiss)
	}

	res := &Result{Kind: req.Kind, Query: req.Query, Source: SourceFresh}

	// The cache stays keyed on req as typed; only the fetchers see the expansion.
	fetchReq := a.expand(ctx, req)
	a.primaryPhase(ctx, fetchReq, res)
	a.derivedPhase(ctx, fetchReq, res)

	// Degraded results of a cancelled run must not reach the cache.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Verdict = Classify(res)
	a.metrics.RecordVerdict(string(res.Verdict))

	a.logger.Info("Resolved request",
		zap.String("kind", string(req.Kind)),
		zap.String("verdict", string(res.Verdict)))

	a.cache.Store(ctx, req, res)
	return res, nil
}

// expand resolves links in req through the LinkResolver. Failures keep req.
func (a *Aggregator) expand(ctx context.Context, req Request) Request {
	if a.sources.Links == nil {
		return req
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout())
	defer cancel()

	start := time.Now()
	expanded, err := a.sources.Links.Expand(fetchCtx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		a.logger.Warn("Link resolution failed",
			zap.String("query", req.Query),
			zap.Error(err))
		a.metrics.RecordFetch(SourceNameLinks, FetchStatusError, elapsed)
		return req
	}

	expanded.Kind, expanded.FilePath, expanded.NoCache = req.Kind, req.FilePath, req.NoCache
	if expanded == req {
		a.metrics.RecordFetch(SourceNameLinks, FetchStatusEmpty, elapsed)
		return req
	}

	a.logger.Debug("Expanded request",
		zap.String("query", req.Query),
		zap.String("search", expanded.Query),
		zap.String("id", expanded.ID))
	a.metrics.RecordFetch(SourceNameLinks, FetchStatusOK, elapsed)
	return expanded
}

// primaryPhase runs the fetchers that only depend on the request.
func (a *Aggregator) primaryPhase(ctx context.Context, req Request, res *Result) {
	var g errgroup.Group

	switch req.Kind {
	case KindYouTubeQuery:
		g.Go(func() error {
			res.YouTube = a.searchVideo(ctx, req.Query)
			return nil
		})
		g.Go(func() error {
			res.Google = a.searchLicense(ctx, req.Query)
			return nil
		})
		g.Go(func() error {
			res.Scrape = a.scrape(ctx, req.Query)
			return nil
		})
	case KindYouTubeURL:
		g.Go(func() error {
			res.YouTube = a.videoByID(ctx, req.ID)
			return nil
		})
	case KindSpotifyURL:
		g.Go(func() error {
			res.Spotify = a.track(ctx, req.ID)
			return nil
		})
	case KindBulk:
		g.Go(func() error {
			res.Scrape = a.scrape(ctx, req.Query)
			return nil
		})
	}

	if req.HasFile() {
		g.Go(func() error {
			res.File = a.readTags(ctx, req.FilePath)
			return nil
		})
	}

	_ = g.Wait()
}

// derivedPhase runs the fetchers whose input comes from primary records.
func (a *Aggregator) derivedPhase(ctx context.Context, req Request, res *Result) {
	var g errgroup.Group

	if req.Kind == KindYouTubeURL || req.Kind == KindSpotifyURL {
		term := ScrapeTerm(req, res)
		g.Go(func() error {
			res.Scrape = a.scrape(ctx, term)
			return nil
		})
	}

	if req.Kind.NeedsYouTube() && a.sources.Classifier != nil {
		var description string
		if res.YouTube != nil {
			description = res.YouTube.Description
		}
		g.Go(func() error {
			res.NLP = a.classify(ctx, description)
			return nil
		})
	}

	_ = g.Wait()
}

// ScrapeTerm derives the catalogue search term for URL kinds: the cleaned video
// title, or the track name followed by its artists. The raw query is the fallback.
func ScrapeTerm(req Request, res *Result) string {
	switch req.Kind {
	case KindYouTubeURL:
		if res.YouTube != nil && res.YouTube.Title != "" {
			return fuzzy.CleanTitle(res.YouTube.Title)
		}
	case KindSpotifyURL:
		if res.Spotify != nil && res.Spotify.Name != "" {
			return strings.TrimSpace(fuzzy.CleanTitle(res.Spotify.Name) + " " + fuzzy.Fold(res.Spotify.Artists))
		}
	}
	return req.Query
}

func (a *Aggregator) searchVideo(ctx context.Context, query string) *YouTubeRecord {
	return fetchOrDefault(ctx, a, SourceNameYouTube, &YouTubeRecord{}, a.sources.YouTube != nil,
		func(ctx context.Context) (*YouTubeRecord, error) {
			videoID, err := a.sources.YouTube.Search(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("search videos: %w", err)
			}
			if videoID == "" {
				return &YouTubeRecord{}, nil
			}
			return a.sources.YouTube.GetByID(ctx, videoID)
		})
}

func (a *Aggregator) videoByID(ctx context.Context, videoID string) *YouTubeRecord {
	return fetchOrDefault(ctx, a, SourceNameYouTube, &YouTubeRecord{}, a.sources.YouTube != nil,
		func(ctx context.Context) (*YouTubeRecord, error) {
			return a.sources.YouTube.GetByID(ctx, videoID)
		})
}

func (a *Aggregator) track(ctx context.Context, trackID string) *SpotifyRecord {
	return fetchOrDefault(ctx, a, SourceNameSpotify, &SpotifyRecord{}, a.sources.Spotify != nil,
		func(ctx context.Context) (*SpotifyRecord, error) {
			return a.sources.Spotify.GetTrack(ctx, trackID)
		})
}

func (a *Aggregator) searchLicense(ctx context.Context, query string) *GoogleRecord {
	return fetchOrDefault(ctx, a, SourceNameGoogle, &GoogleRecord{Results: []SearchHit{}}, a.sources.Google != nil,
		func(ctx context.Context) (*GoogleRecord, error) {
			hits, err := a.sources.Google.SearchLicense(ctx, query)
			if err != nil {
				return nil, err
			}
			return &GoogleRecord{Results: hits}, nil
		})
}

func (a *Aggregator) readTags(ctx context.Context, path string) *FileRecord {
	return fetchOrDefault(ctx, a, SourceNameFile, &FileRecord{Path: path, Tags: map[string]string{}}, a.sources.Tags != nil,
		func(ctx context.Context) (*FileRecord, error) {
			return a.sources.Tags.ReadTags(ctx, path)
		})
}

func (a *Aggregator) scrape(ctx context.Context, term string) *ScrapeRecord {
	return fetchOrDefault(ctx, a, SourceNameScrape, &ScrapeRecord{Term: term}, a.sources.Scraper != nil,
		func(ctx context.Context) (*ScrapeRecord, error) {
			return a.sources.Scraper.Scrape(ctx, term)
		})
}

func (a *Aggregator) classify(ctx context.Context, text string) *NLPRecord {
	return fetchOrDefault(ctx, a, SourceNameNLP, &NLPRecord{Labels: []Label{}}, a.sources.Classifier != nil,
		func(ctx context.Context) (*NLPRecord, error) {
			labels, err := a.sources.Classifier.Classify(ctx, text)
			if err != nil {
				return nil, err
			}
			return &NLPRecord{Labels: labels}, nil
		})
}

// fetchOrDefault runs fn under the per-fetch timeout. Errors, timeouts and
// empty answers all yield fallback so a failing source never fails the request.
func fetchOrDefault[R interface{ IsEmpty() bool }](
	ctx context.Context,
	a *Aggregator,
	source string,
	fallback R,
	available bool,
	fn func(context.Context) (R, error),
) R {
	if !available {
		a.logger.Warn("Source unavailable", zap.String("source", source))
		a.metrics.RecordFetch(source, FetchStatusError, 0)
		return fallback
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout())
	defer cancel()

	start := time.Now()
	record, err := fn(fetchCtx)
	elapsed := time.Since(start).Seconds()

	// Classifier failures log at debug level.
	logFailure := a.logger.Warn
	if source == SourceNameNLP {
		logFailure = a.logger.Debug
	}

	switch {
	case err != nil:
		logFailure("Fetch failed",
			zap.String("source", source),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		a.metrics.RecordFetch(source, FetchStatusError, elapsed)
		return fallback
	case record.IsEmpty():
		a.metrics.RecordFetch(source, FetchStatusEmpty, elapsed)
		return fallback
	}

	a.metrics.RecordFetch(source, FetchStatusOK, elapsed)
	return record
}

func (a *Aggregator) fetchTimeout() time.Duration {
	if a.config != nil && a.config.App.FetchTimeout > 0 {
		return a.config.App.FetchTimeout
	}
	return DefaultFetchTimeoutSecs * time.Second
}

// ResolveAll resolves a batch with at most concurrency requests in flight.
// Entries equivalent to an earlier one are marked Duplicate and skipped.
// Results keep the input order.
func (a *Aggregator) ResolveAll(ctx context.Context, reqs []Request, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}

	results := make([]BatchResult, len(reqs))

	a.dedup.Clear()
	for i, req := range reqs {
		results[i].Request = req
		key := req.Fingerprint()
		if a.dedup.Has(key) {
			results[i].Duplicate = true
			continue
		}
		a.dedup.Add(key)
	}

	a.logger.Info("Resolving batch",
		zap.Int("requests", len(reqs)),
		zap.Int("unique", a.dedup.Size()),
		zap.Int("concurrency", concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range results {
		if results[i].Duplicate {
			continue
		}
		g.Go(func() error {
			res, err := a.Resolve(gctx, results[i].Request)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", results[i].Request.Query, err)
			}
			results[i].Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type nopCache struct{}

func (nopCache) Lookup(context.Context, Request) (*Result, bool) { return nil, false }
func (nopCache) Store(context.Context, Request, *Result)         {}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string, float64) {}
func (nopMetrics) RecordCache(string)                  {}
func (nopMetrics) RecordVerdict(string)                {}

// mapDedup is the exact in-memory DedupStore used until a bounded store is set.
type mapDedup struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMapDedup() *mapDedup {
	return &mapDedup{keys: make(map[string]struct{})}
}

func (d *mapDedup) Has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.keys[key]
	return ok
}

func (d *mapDedup) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[key] = struct{}{}
}

func (d *mapDedup) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}

func (d *mapDedup) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = make(map[string]struct{})
}
