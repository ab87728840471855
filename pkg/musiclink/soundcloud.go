package musiclink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SoundCloudOEmbedURL is the SoundCloud oEmbed API endpoint.
const SoundCloudOEmbedURL = "https://soundcloud.com/oembed"

var soundCloudHosts = []string{"soundcloud.com"}

type oEmbedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// SoundCloudResolver reads track details through the oEmbed API.
type SoundCloudResolver struct {
	client   *http.Client
	endpoint string
}

func NewSoundCloudResolver(client *http.Client, endpoint string) *SoundCloudResolver {
	return &SoundCloudResolver{client: client, endpoint: endpoint}
}

func (r *SoundCloudResolver) CanResolve(rawURL string) bool {
	return hostIn(rawURL, soundCloudHosts)
}

func (r *SoundCloudResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	reqURL := fmt.Sprintf("%s?url=%s&format=json", r.endpoint, url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oEmbed API returned status %d", resp.StatusCode)
	}

	var body oEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode oEmbed response: %w", err)
	}

	// Titles look like "Track by Artist"; author_name is the uploader.
	if title, artist, ok := strings.Cut(body.Title, " by "); ok {
		return &TrackInfo{Title: strings.TrimSpace(title), Artist: strings.TrimSpace(artist)}, nil
	}
	return &TrackInfo{Title: strings.TrimSpace(body.Title), Artist: strings.TrimSpace(body.AuthorName)}, nil
}
