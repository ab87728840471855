package core

import (
	"time"
)

const (
	// DefaultFetchTimeoutSecs bounds every single fetcher call
	DefaultFetchTimeoutSecs = 10
	// DefaultBulkConcurrency is the number of bulk requests resolved at once
	DefaultBulkConcurrency = 4
	// DefaultScrapeRequestsPerSecond paces requests against scrape endpoints
	DefaultScrapeRequestsPerSecond = 2.0
	// DefaultCacheTTLHours is the Redis TTL; 0 keeps entries forever
	DefaultCacheTTLHours = 0
	// DefaultL1CacheSize is the in-process cache capacity
	DefaultL1CacheSize = 256
	// DefaultDedupCapacity sizes the bulk deduplication store
	DefaultDedupCapacity = 10000
	// DefaultLanguage is the presenter language
	DefaultLanguage = "en"
	// DefaultScrapeEndpoint is the Creative Commons lookup template; {q} is replaced by the query
	DefaultScrapeEndpoint = "https://freemusicarchive.org/search/?quicksearch={q}"
)

// Cache backend names.
const (
	CacheBackendAuto     = "auto"
	CacheBackendNone     = "none"
	CacheBackendSQLite   = "sqlite"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	YouTube YouTubeConfig
	Spotify SpotifyConfig
	Google  GoogleConfig
	Cache   CacheConfig
	LLM     LLMConfig
	Scrape  ScrapeConfig
	Metrics MetricsConfig
	Log     LogConfig
	App     AppConfig
}

type YouTubeConfig struct {
	APIKey   string
	Endpoint string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

type GoogleConfig struct {
	APIKey   string
	CSEID    string
	Endpoint string
}

// Configured reports whether both search credentials are present.
func (g GoogleConfig) Configured() bool {
	return g.APIKey != "" && g.CSEID != ""
}

type CacheConfig struct {
	Backend     string
	DatabaseURL string
	RedisURL    string
	SQLitePath  string
	Table       string
	TTL         time.Duration
	L1Size      int
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type ScrapeConfig struct {
	Endpoints         []string
	RequestsPerSecond float64
	MaxBodyBytes      int64
}

type MetricsConfig struct {
	PushgatewayURL string
	JobName        string
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	FetchTimeout    time.Duration
	BulkConcurrency int
	DedupCapacity   int
	OutputFormat    string
	Language        string
}

func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: CacheBackendAuto,
			Table:   "cache_music_info",
			TTL:     DefaultCacheTTLHours * time.Hour,
			L1Size:  DefaultL1CacheSize,
		},
		LLM: LLMConfig{
			Provider: "none",
		},
		Scrape: ScrapeConfig{
			Endpoints:         []string{DefaultScrapeEndpoint},
			RequestsPerSecond: DefaultScrapeRequestsPerSecond,
			MaxBodyBytes:      2 << 20,
		},
		Metrics: MetricsConfig{
			JobName: "homoxion",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			FetchTimeout:    DefaultFetchTimeoutSecs * time.Second,
			BulkConcurrency: DefaultBulkConcurrency,
			DedupCapacity:   DefaultDedupCapacity,
			OutputFormat:    FormatText,
			Language:        DefaultLanguage,
		},
	}
}
