// Package musiclink turns links of other music services into plain search text.
package musiclink

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupported is returned for links no resolver handles.
var ErrUnsupported = errors.New("no resolver found for URL")

// TrackInfo holds the track details read from a music service.
type TrackInfo struct {
	Title  string
	Artist string
}

// SearchText joins title and artist for a catalogue or video search.
func (t *TrackInfo) SearchText() string {
	return strings.TrimSpace(t.Title + " " + t.Artist)
}

// Resolver reads track details from links of one service.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*TrackInfo, error)
	CanResolve(url string) bool
}
