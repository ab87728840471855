// Package google searches the web for license pages through Google Custom Search.
package google

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"homoxion/internal/core"
)

// licenseSuffix is appended to every query to steer results to license pages.
const licenseSuffix = " license"

// Searcher queries one programmable search engine. A Searcher without
// credentials returns no results and no error.
type Searcher struct {
	service *customsearch.Service
	engine  string
	logger  *zap.Logger
}

func NewSearcher(ctx context.Context, config *core.GoogleConfig, logger *zap.Logger) (*Searcher, error) {
	s := &Searcher{
		engine: config.CSEID,
		logger: logger.Named("google"),
	}

	if !config.Configured() {
		s.logger.Debug("Custom search credentials absent, license search disabled")
		return s, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	s.service = service

	return s, nil
}

// SearchLicense returns title and link of the first result page for "<query> license".
func (s *Searcher) SearchLicense(ctx context.Context, query string) ([]core.SearchHit, error) {
	if s.service == nil || query == "" {
		return []core.SearchHit{}, nil
	}

	resp, err := s.service.Cse.List().
		Cx(s.engine).
		Q(query + licenseSuffix).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}

	hits := make([]core.SearchHit, 0, len(resp.Items))
	for _, item := range resp.Items {
		hits = append(hits, core.SearchHit{
			Title: item.Title,
			Link:  item.Link,
		})
	}

	return hits, nil
}
