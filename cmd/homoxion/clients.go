package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"homoxion/internal/core"
	"homoxion/internal/google"
	"homoxion/internal/llm"
	"homoxion/internal/metrics"
	"homoxion/internal/scrape"
	"homoxion/internal/spotify"
	"homoxion/internal/store"
	"homoxion/internal/tags"
	"homoxion/internal/youtube"
	"homoxion/pkg/musiclink"
	"homoxion/pkg/text"
)

// clients owns every network handle of one run. Close is deferred on all exit paths.
type clients struct {
	httpClient *http.Client

	youtube    *youtube.Client
	spotify    *spotify.Client
	google     *google.Searcher
	tags       *tags.Reader
	scraper    *scrape.Scraper
	classifier core.Classifier
	links      *musiclink.Manager

	cache   *store.Gate
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// newClients builds only the API clients the requests need.
func newClients(ctx context.Context, cfg *core.Config, reqs []core.Request, logger *zap.Logger) (*clients, error) {
	c := &clients{
		httpClient: &http.Client{Timeout: cfg.App.FetchTimeout},
		tags:       tags.NewReader(logger),
		metrics:    metrics.New(),
		logger:     logger,
	}

	var needYouTube, needSpotify bool
	for _, req := range reqs {
		needYouTube = needYouTube || req.Kind.NeedsYouTube()
		needSpotify = needSpotify || req.Kind.NeedsSpotify()
	}

	if needYouTube {
		client, err := youtube.NewClient(ctx, &cfg.YouTube, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube client: %w", err)
		}
		c.youtube = client

		searcher, err := google.NewSearcher(ctx, &cfg.Google, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create license search: %w", err)
		}
		c.google = searcher

		classifier, err := llm.NewClassifier(&cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create classifier: %w", err)
		}
		c.classifier = classifier
		c.links = musiclink.NewManager(c.httpClient)
	}

	if needSpotify {
		client, err := spotify.NewClient(ctx, &cfg.Spotify, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Spotify client: %w", err)
		}
		c.spotify = client
	}

	c.scraper = scrape.NewScraper(&cfg.Scrape, c.httpClient, logger)
	c.cache = store.NewGate(store.OpenBackendOrNone(ctx, cfg.Cache, logger), cfg.Cache.L1Size, logger)

	return c, nil
}

// sources exposes the clients as fetcher interfaces. Clients that were not
// built stay nil interfaces.
func (c *clients) sources() core.Sources {
	s := core.Sources{
		Tags:       c.tags,
		Scraper:    c.scraper,
		Classifier: c.classifier,
	}
	if c.youtube != nil {
		s.YouTube = c.youtube
	}
	if c.spotify != nil {
		s.Spotify = c.spotify
	}
	if c.google != nil {
		s.Google = c.google
	}
	if c.spotify != nil || c.links != nil {
		expander := &linkExpander{logger: c.logger}
		if c.spotify != nil {
			expander.shortLinks = c.spotify
		}
		if c.links != nil {
			expander.links = c.links
		}
		s.Links = expander
	}
	return s
}

type shortLinkResolver interface {
	ExtractTrackID(ctx context.Context, link string) (string, error)
}

// linkExpander runs inside the aggregator after a cache miss. It follows
// spotify.link short links to their track ID and rewrites YouTube searches that
// are links of other music services into "title artist" search text.
type linkExpander struct {
	shortLinks shortLinkResolver
	links      musiclink.Resolver
	logger     *zap.Logger
}

func (e *linkExpander) Expand(ctx context.Context, req core.Request) (core.Request, error) {
	switch {
	case req.Kind == core.KindSpotifyURL && req.ID == "" && e.shortLinks != nil:
		id, err := e.shortLinks.ExtractTrackID(ctx, req.Query)
		if err != nil {
			return req, fmt.Errorf("resolve Spotify link: %w", err)
		}
		req.ID = id
	case req.Kind == core.KindYouTubeQuery && e.links != nil && e.links.CanResolve(req.Query):
		info, err := e.links.Resolve(ctx, req.Query)
		if err != nil {
			return req, fmt.Errorf("resolve music link: %w", err)
		}
		if term := text.NormalizeText(info.SearchText()); term != "" {
			e.logger.Debug("Resolved music link",
				zap.String("link", req.Query),
				zap.String("search", term))
			req.Query = term
		}
	}
	return req, nil
}

// pushMetrics sends the run's counters when a Pushgateway is configured.
// Failures are logged only.
func (c *clients) pushMetrics(cfg core.MetricsConfig) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsPushWait)
	defer cancel()

	if err := c.metrics.Push(ctx, cfg.PushgatewayURL, cfg.JobName); err != nil {
		c.logger.Warn("Failed to push metrics", zap.Error(err))
	}
}

func (c *clients) Close() {
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.logger.Debug("Failed to close cache", zap.Error(err))
		}
	}
	c.httpClient.CloseIdleConnections()
}
