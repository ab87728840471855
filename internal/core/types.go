package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNoInput is returned when neither a query nor a file was supplied
	ErrNoInput = errors.New("either a query or a file is required")
	// ErrNotConfigured is returned by sources whose credentials are absent
	ErrNotConfigured = errors.New("source not configured")
	// ErrNotFound is returned when an identifier does not resolve
	ErrNotFound = errors.New("not found")
)

type Kind string

const (
	// KindYouTubeQuery is a free-text search against YouTube
	KindYouTubeQuery Kind = "youtube_query"
	// KindYouTubeURL is a YouTube watch or short link
	KindYouTubeURL Kind = "youtube_url"
	// KindSpotifyURL is a Spotify track link or URI
	KindSpotifyURL Kind = "spotify_url"
	// KindFile is a local audio file without a query
	KindFile Kind = "file"
	// KindBulk is one entry of a batch, only the Creative Commons scrape runs
	KindBulk Kind = "bulk"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindYouTubeQuery, KindYouTubeURL, KindSpotifyURL, KindFile, KindBulk:
		return true
	}
	return false
}

// NeedsYouTube reports whether the kind performs a YouTube lookup.
func (k Kind) NeedsYouTube() bool {
	return k == KindYouTubeQuery || k == KindYouTubeURL
}

// NeedsSpotify reports whether the kind performs a Spotify lookup.
func (k Kind) NeedsSpotify() bool {
	return k == KindSpotifyURL
}

// Request is built once per lookup and never mutated afterwards.
type Request struct {
	Kind     Kind
	Query    string // normalized user text, URL kinds keep the raw link
	ID       string // Spotify track ID or YouTube video ID for URL kinds
	FilePath string
	NoCache  bool
}

// HasFile reports whether the file-tag fetch should run.
func (r Request) HasFile() bool {
	return r.FilePath != ""
}

// Fingerprint identifies equivalent requests inside one batch. Search text is
// case folded; IDs are kept as is.
func (r Request) Fingerprint() string {
	query := r.Query
	if r.Kind == KindYouTubeQuery || r.Kind == KindBulk {
		query = strings.ToLower(query)
	}
	return strings.Join([]string{string(r.Kind), query, r.ID, r.FilePath, strconv.FormatBool(r.NoCache)}, "\x00")
}

type Verdict string

const (
	VerdictNonCopyright    Verdict = "Non-Copyright"
	VerdictCreativeCommons Verdict = "Creative Commons"
	VerdictCopyrighted     Verdict = "Copyrighted"
)

// YouTubeLicenseCreativeCommon is the status.license value of CC-BY uploads.
const YouTubeLicenseCreativeCommon = "creativeCommon"

type YouTubeRecord struct {
	VideoID      string `json:"video_id,omitempty"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Author       string `json:"author,omitempty"`
	PublishedAt  string `json:"published_at,omitempty"`
	License      string `json:"license,omitempty"`
	UploadStatus string `json:"upload_status,omitempty"`
}

func (r *YouTubeRecord) IsEmpty() bool {
	return r == nil || *r == YouTubeRecord{}
}

type SpotifyRecord struct {
	TrackID     string `json:"track_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Artists     string `json:"artists,omitempty"`
	Album       string `json:"album,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
}

func (r *SpotifyRecord) IsEmpty() bool {
	return r == nil || *r == SpotifyRecord{}
}

type SearchHit struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type GoogleRecord struct {
	Results []SearchHit `json:"results"`
}

func (r *GoogleRecord) IsEmpty() bool {
	return r == nil || len(r.Results) == 0
}

type FileRecord struct {
	Path   string            `json:"path"`
	Format string            `json:"format,omitempty"`
	Tags   map[string]string `json:"tags"`
}

func (r *FileRecord) IsEmpty() bool {
	return r == nil || len(r.Tags) == 0
}

type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type NLPRecord struct {
	Labels []Label `json:"labels"`
}

func (r *NLPRecord) IsEmpty() bool {
	return r == nil || len(r.Labels) == 0
}

type EndpointResult struct {
	URL        string `json:"url"`
	Status     int    `json:"status,omitempty"`
	Matched    bool   `json:"matched"`
	Title      string `json:"title,omitempty"`
	LicenseURL string `json:"license_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ScrapeRecord struct {
	Term      string           `json:"term"`
	Matched   bool             `json:"matched"`
	Endpoints []EndpointResult `json:"endpoints,omitempty"`
}

func (r *ScrapeRecord) IsEmpty() bool {
	return r == nil || (!r.Matched && len(r.Endpoints) == 0)
}

// ResultSource tells whether a Result came from the cache or a fresh fetch.
type ResultSource string

const (
	SourceFresh ResultSource = "fresh"
	SourceCache ResultSource = "cache"
)

// Result is the merged output of every fetcher for one Request. A nil record
// means the source was not consulted; an empty record means it returned nothing.
type Result struct {
	Kind    Kind           `json:"kind"`
	Query   string         `json:"query,omitempty"`
	Spotify *SpotifyRecord `json:"spotify,omitempty"`
	YouTube *YouTubeRecord `json:"youtube,omitempty"`
	Google  *GoogleRecord  `json:"google,omitempty"`
	File    *FileRecord    `json:"file_metadata,omitempty"`
	NLP     *NLPRecord     `json:"nlp,omitempty"`
	Scrape  *ScrapeRecord  `json:"scraped_cc,omitempty"`
	Verdict Verdict        `json:"copyright_status"`

	Source ResultSource `json:"-"`
}

// BatchResult pairs a batch entry with its result. Duplicates of an earlier
// entry are not resolved again and carry no result.
type BatchResult struct {
	Request   Request
	Result    *Result
	Duplicate bool
}

// Source names used in logs and metrics.
const (
	SourceNameYouTube = "youtube"
	SourceNameSpotify = "spotify"
	SourceNameGoogle  = "google"
	SourceNameFile    = "file"
	SourceNameNLP     = "nlp"
	SourceNameScrape  = "scrape"
	SourceNameLinks   = "links"
)

// Fetch statuses reported to MetricsRecorder.
const (
	FetchStatusOK    = "ok"
	FetchStatusEmpty = "empty"
	FetchStatusError = "error"
)

// Cache lookup outcomes reported to MetricsRecorder.
const (
	CacheOutcomeHit    = "hit"
	CacheOutcomeMiss   = "miss"
	CacheOutcomeBypass = "bypass"
)

// VideoPlatform is the YouTube Data API surface used by the aggregator.
type VideoPlatform interface {
	Search(ctx context.Context, query string) (string, error)
	GetByID(ctx context.Context, videoID string) (*YouTubeRecord, error)
}

// MusicCatalog is the Spotify Web API surface used by the aggregator.
type MusicCatalog interface {
	GetTrack(ctx context.Context, trackID string) (*SpotifyRecord, error)
}

// WebSearch returns license pages for a query. Unconfigured implementations
// return an empty slice and no error.
type WebSearch interface {
	SearchLicense(ctx context.Context, query string) ([]SearchHit, error)
}

// LinkResolver rewrites a request as typed into the request the fetchers use,
// for example a short link into its track ID. Kind, file and cache flag stay.
type LinkResolver interface {
	Expand(ctx context.Context, req Request) (Request, error)
}

// TagReader reads embedded tags. Missing or unrecognized files yield an empty map.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (*FileRecord, error)
}

// LicenseScraper checks public catalogues for a Creative Commons marker.
type LicenseScraper interface {
	Scrape(ctx context.Context, term string) (*ScrapeRecord, error)
}

// Classifier labels free text. The no-op implementation returns nothing.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Label, error)
	Name() string
}

// ResultCache is the cache gate consulted before and after fetching.
type ResultCache interface {
	Lookup(ctx context.Context, req Request) (*Result, bool)
	Store(ctx context.Context, req Request, result *Result)
}

// MetricsRecorder receives pipeline events.
type MetricsRecorder interface {
	RecordFetch(source, status string, seconds float64)
	RecordCache(outcome string)
	RecordVerdict(verdict string)
}

// DedupStore suppresses repeated keys within one batch.
type DedupStore interface {
	Has(key string) bool
	Add(key string)
	Size() int
	Clear()
}
