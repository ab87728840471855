package musiclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageHosts are services whose track pages carry usable og:title metadata.
var PageHosts = []string{
	"tidal.com",
	"deezer.com",
	"bandcamp.com",
	"beatport.com",
	"music.amazon.com",
	"music.amazon.de",
	"music.amazon.co.uk",
}

// trailing " on TIDAL", " | Deezer", " - Beatport" and the like
var serviceSuffixRegex = regexp.MustCompile(`(?i)\s*(?:\bon\b|\||-|–)\s*(?:tidal|deezer|bandcamp|beatport|amazon music)\s*$`)

// PageResolver reads the Open Graph title of a track page.
type PageResolver struct {
	client *http.Client
	hosts  []string
}

func NewPageResolver(client *http.Client, hosts ...string) *PageResolver {
	return &PageResolver{client: client, hosts: hosts}
}

func (r *PageResolver) CanResolve(rawURL string) bool {
	return hostIn(rawURL, r.hosts)
}

func (r *PageResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	info := parsePageTitle(doc)
	if info.Title == "" {
		return nil, errors.New("no title found on page")
	}
	return info, nil
}

// parsePageTitle prefers og:title, then <title>. "Track by Artist" is split.
func parsePageTitle(doc *goquery.Document) *TrackInfo {
	title, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if strings.TrimSpace(title) == "" {
		title = doc.Find("title").First().Text()
	}
	title = serviceSuffixRegex.ReplaceAllString(strings.Join(strings.Fields(title), " "), "")

	if track, artist, ok := strings.Cut(title, " by "); ok {
		return &TrackInfo{Title: strings.TrimSpace(track), Artist: strings.TrimSpace(artist)}
	}
	return &TrackInfo{Title: strings.TrimSpace(title)}
}
