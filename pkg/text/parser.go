// Package text normalizes raw command-line input into lookup requests.
package text

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"homoxion/internal/core"
)

var (
	spotifyTrackRegex = regexp.MustCompile(`(?:open\.)?spotify\.com/(?:intl-[a-zA-Z-]+/)?track/([a-zA-Z0-9]+)`)
	spotifyURIRegex   = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	spotifyShortRegex = regexp.MustCompile(`(?:https?://)?(?:spotify\.link|spotify\.app\.link)/[a-zA-Z0-9]+`)
	youtubeVideoRegex = regexp.MustCompile(
		`(?:youtu\.be/|youtube\.com/watch\?(?:[^\s#]*&)?v=|youtube\.com/shorts/|youtube\.com/embed/)([\w-]{11})`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseRequest detects the request kind from the query text. A Spotify link wins
// over a YouTube link, any other text is a YouTube search. The file path is carried
// on every kind. Short Spotify links yield a spotify_url request without an ID;
// the Spotify client resolves those before fetching.
func (p *Parser) ParseRequest(query, file string, noCache bool) (core.Request, error) {
	query = NormalizeText(query)
	file = cleanPath(file)

	if query == "" && file == "" {
		return core.Request{}, core.ErrNoInput
	}

	req := core.Request{
		Query:    query,
		FilePath: file,
		NoCache:  noCache,
	}

	switch {
	case query == "":
		req.Kind = core.KindFile
	case ExtractSpotifyTrackID(query) != "":
		req.Kind = core.KindSpotifyURL
		req.ID = ExtractSpotifyTrackID(query)
	case IsSpotifyShortLink(query):
		req.Kind = core.KindSpotifyURL
	case ExtractYouTubeVideoID(query) != "":
		req.Kind = core.KindYouTubeURL
		req.ID = ExtractYouTubeVideoID(query)
	default:
		req.Kind = core.KindYouTubeQuery
	}

	return req, nil
}

// ParseForKind builds a request for an explicitly chosen subcommand. Links that do
// not match the chosen kind leave the ID empty so the fetcher reports an empty record.
func (p *Parser) ParseForKind(kind core.Kind, query, file string, noCache bool) (core.Request, error) {
	if !kind.Valid() {
		return core.Request{}, fmt.Errorf("unknown request kind %q", kind)
	}

	query = NormalizeText(query)
	file = cleanPath(file)

	req := core.Request{
		Kind:     kind,
		Query:    query,
		FilePath: file,
		NoCache:  noCache,
	}

	switch kind {
	case core.KindFile:
		if file == "" {
			return core.Request{}, core.ErrNoInput
		}
		req.Query = ""
	case core.KindSpotifyURL:
		if query == "" {
			return core.Request{}, core.ErrNoInput
		}
		req.ID = ExtractSpotifyTrackID(query)
	case core.KindYouTubeQuery, core.KindYouTubeURL:
		if query == "" {
			return core.Request{}, core.ErrNoInput
		}
		if id := ExtractYouTubeVideoID(query); id != "" {
			req.Kind = core.KindYouTubeURL
			req.ID = id
		} else {
			req.Kind = core.KindYouTubeQuery
		}
	case core.KindBulk:
		if query == "" {
			return core.Request{}, core.ErrNoInput
		}
	}

	return req, nil
}

// ParseLines turns bulk input into requests, skipping blank lines and # comments.
func (p *Parser) ParseLines(lines []string, noCache bool) []core.Request {
	var reqs []core.Request
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := p.ParseForKind(core.KindBulk, line, "", noCache)
		if err != nil {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// ExtractSpotifyTrackID returns the track ID of the first Spotify track link or URI in s.
func ExtractSpotifyTrackID(s string) string {
	if matches := spotifyURIRegex.FindStringSubmatch(s); len(matches) > 1 {
		return matches[1]
	}
	if matches := spotifyTrackRegex.FindStringSubmatch(s); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// ExtractShortLink returns the first spotify.link short URL in s.
func ExtractShortLink(s string) string {
	link := spotifyShortRegex.FindString(s)
	if link != "" && !strings.HasPrefix(link, "http") {
		link = "https://" + link
	}
	return link
}

// IsSpotifyShortLink reports whether s carries a spotify.link short URL.
func IsSpotifyShortLink(s string) bool {
	return spotifyShortRegex.MatchString(s)
}

// ExtractYouTubeVideoID returns the 11-character video ID of the first YouTube link in s.
func ExtractYouTubeVideoID(s string) string {
	if matches := youtubeVideoRegex.FindStringSubmatch(s); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// NormalizeText applies NFKC and collapses all whitespace runs to one space.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeKey folds text for cache keys so case and spacing do not split entries.
func NormalizeKey(s string) string {
	return strings.ToLower(NormalizeText(s))
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
