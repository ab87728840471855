package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ITunesLookupURL is the iTunes lookup endpoint backing Apple Music links.
const ITunesLookupURL = "https://itunes.apple.com/lookup"

var appleMusicHosts = []string{"music.apple.com", "itunes.apple.com"}

type iTunesLookupResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName  string `json:"trackName"`
		ArtistName string `json:"artistName"`
	} `json:"results"`
}

// AppleMusicResolver reads song links through the iTunes lookup API.
type AppleMusicResolver struct {
	client   *http.Client
	endpoint string
}

func NewAppleMusicResolver(client *http.Client, endpoint string) *AppleMusicResolver {
	return &AppleMusicResolver{client: client, endpoint: endpoint}
}

func (r *AppleMusicResolver) CanResolve(rawURL string) bool {
	return hostIn(rawURL, appleMusicHosts)
}

func (r *AppleMusicResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	trackID, err := appleTrackID(rawURL)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s?id=%s&entity=song", r.endpoint, url.QueryEscape(trackID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query iTunes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("iTunes API returned status %d", resp.StatusCode)
	}

	var lookup iTunesLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("failed to decode iTunes response: %w", err)
	}
	if len(lookup.Results) == 0 {
		return nil, errors.New("no track found in iTunes response")
	}

	return &TrackInfo{Title: lookup.Results[0].TrackName, Artist: lookup.Results[0].ArtistName}, nil
}

// appleTrackID reads ?i=<id> of album links or the last segment of /song/ links.
func appleTrackID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if id := u.Query().Get("i"); id != "" {
		return id, nil
	}
	if strings.Contains(u.Path, "/song/") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if id := parts[len(parts)-1]; id != "" {
			return id, nil
		}
	}
	return "", errors.New("no track ID in Apple Music URL")
}
