package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxHTTPRedirects   = 3
	maxPageBytes       = 1 << 20

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrTooManyRedirects is returned when a link redirects more than maxHTTPRedirects times.
var ErrTooManyRedirects = errors.New("too many redirects")

// Manager tries its resolvers in order.
type Manager struct {
	resolvers []Resolver
}

// NewManager returns a manager for SoundCloud, Apple Music and the page based services.
// A nil client gets a default one with bounded redirects.
func NewManager(client *http.Client) *Manager {
	if client == nil {
		client = newHTTPClient()
	}
	return NewManagerWith(
		NewSoundCloudResolver(client, SoundCloudOEmbedURL),
		NewAppleMusicResolver(client, ITunesLookupURL),
		NewPageResolver(client, PageHosts...),
	)
}

// NewManagerWith builds a manager from explicit resolvers.
func NewManagerWith(resolvers ...Resolver) *Manager {
	return &Manager{resolvers: resolvers}
}

// Resolve uses the first resolver that accepts rawURL.
func (m *Manager) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(rawURL) {
			return resolver.Resolve(ctx, rawURL)
		}
	}
	return nil, ErrUnsupported
}

// CanResolve reports whether any resolver accepts rawURL.
func (m *Manager) CanResolve(rawURL string) bool {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(rawURL) {
			return true
		}
	}
	return false
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// hostIn reports whether the host of rawURL is one of hosts or a subdomain of one.
func hostIn(rawURL string, hosts []string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
