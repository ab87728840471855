// Package spotify looks up track metadata through the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"homoxion/internal/core"
	"homoxion/pkg/text"
)

const (
	// URLResolveTimeout bounds short link resolution
	URLResolveTimeout = 10 * time.Second
	// MaxRedirects is the redirect limit when resolving short links
	MaxRedirects = 10
	// ReadBufferSize caps the page content read while resolving short links
	ReadBufferSize = 64 << 10
	// SpotifyAppLinkDomain is the intermediate host of spotify.link redirects
	SpotifyAppLinkDomain = "spotify.app.link"

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var trackURLRegex = regexp.MustCompile(`https://open\.spotify\.com/track/[a-zA-Z0-9]+`)

type Client struct {
	logger     *zap.Logger
	client     *spotify.Client
	httpClient *http.Client
}

// NewClient authenticates with the client-credentials flow. The token is
// fetched lazily on the first request.
func NewClient(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger) (*Client, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret: %w", core.ErrNotConfigured)
	}

	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	return NewClientWithHTTP(creds.Client(ctx), config.BaseURL, logger), nil
}

// NewClientWithHTTP builds a client on an already authorized HTTP client.
// An empty baseURL selects the public API.
func NewClientWithHTTP(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	var opts []spotify.ClientOption
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, spotify.WithBaseURL(baseURL))
	}

	return &Client{
		logger:     logger.Named("spotify"),
		client:     spotify.New(httpClient, opts...),
		httpClient: &http.Client{Timeout: URLResolveTimeout},
	}
}

// GetTrack returns the record of trackID. An empty ID yields an empty record.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*core.SpotifyRecord, error) {
	if trackID == "" {
		return &core.SpotifyRecord{}, nil
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest) {
			return nil, fmt.Errorf("track %s: %w", trackID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	return convertSpotifyTrack(track), nil
}

// ExtractTrackID returns the track ID of a Spotify link, following spotify.link
// short links to their destination.
func (c *Client) ExtractTrackID(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)

	if id := text.ExtractSpotifyTrackID(rawURL); id != "" {
		return id, nil
	}

	shortLink := text.ExtractShortLink(rawURL)
	if shortLink == "" {
		return "", fmt.Errorf("no track ID found in URL")
	}

	resolvedURL, err := c.resolveShortURL(ctx, shortLink)
	if err != nil {
		return "", fmt.Errorf("failed to resolve shortened URL: %w", err)
	}
	c.logger.Debug("Resolved short link",
		zap.String("short", shortLink),
		zap.String("resolved", resolvedURL))

	if id := text.ExtractSpotifyTrackID(resolvedURL); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no track ID found in URL")
}

// resolveShortURL follows redirects of a short link and falls back to reading
// the landing page when the redirect chain stops at the app link domain.
func (c *Client) resolveShortURL(ctx context.Context, shortURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, URLResolveTimeout)
	defer cancel()

	client := &http.Client{
		Timeout:   URLResolveTimeout,
		Transport: c.httpClient.Transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	u, err := url.Parse(finalURL)
	if err != nil {
		return "", err
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "open.spotify.com" && strings.Contains(u.Path, "/track/") {
		return finalURL, nil
	}

	if hostname != SpotifyAppLinkDomain && hostname != "spotify.link" {
		return "", fmt.Errorf("URL did not resolve to a Spotify track")
	}

	return c.resolveWithPageContent(ctx, finalURL)
}

func (c *Client) resolveWithPageContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, ReadBufferSize))
	if err != nil {
		return "", err
	}

	if match := trackURLRegex.FindString(string(content)); match != "" {
		return match, nil
	}
	return "", fmt.Errorf("could not find Spotify track URL in page content")
}

func convertSpotifyTrack(track *spotify.FullTrack) *core.SpotifyRecord {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return &core.SpotifyRecord{
		TrackID:     string(track.ID),
		Name:        track.Name,
		Artists:     strings.Join(artists, ", "),
		Album:       track.Album.Name,
		ReleaseDate: track.Album.ReleaseDate,
		ExternalURL: track.ExternalURLs["spotify"],
	}
}
