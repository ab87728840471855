// Package main provides the homoxion CLI application entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"homoxion/internal/core"
	"homoxion/internal/i18n"
	"homoxion/internal/render"
	"homoxion/internal/store"
	"homoxion/pkg/text"
)

const (
	envPrefix         = "HOMOXION"
	defaultConfigFile = "config.yaml"
	metricsPushWait   = 5 * time.Second
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

// legacyEnv maps flags to the unprefixed variable names that are also accepted.
var legacyEnv = map[string]string{
	"youtube-api-key":       "YOUTUBE_API_KEY",
	"spotify-client-id":     "SPOTIFY_CLIENT_ID",
	"spotify-client-secret": "SPOTIFY_CLIENT_SECRET",
	"google-search-api-key": "GOOGLE_SEARCH_API_KEY",
	"google-cse-id":         "GOOGLE_CSE_ID",
	"cache-database-url":    "SUPABASE_DB_URL",
}

var rootCmd = &cobra.Command{
	Use:   "homoxion",
	Short: "homoxion - music copyright metadata lookup",
	Long: `homoxion gathers metadata about a piece of music from YouTube, Spotify, Google,
local audio tags and public Creative Commons catalogues, and derives whether it is
free to use, Creative Commons licensed or copyrighted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAuto,
}

var youtubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Look up a YouTube search text or video link",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runKind(cmd, core.KindYouTubeQuery)
	},
}

var spotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "Look up a Spotify track link",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runKind(cmd, core.KindSpotifyURL)
	},
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Read the tags of a local audio file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runKind(cmd, core.KindFile)
	},
}

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Check many titles against the Creative Commons catalogues",
	RunE:  runBulk,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			fmt.Fprintln(os.Stderr, "Run 'homoxion --help' for usage.")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file, yaml/toml or .env (default is config.yaml when present)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log encoding (json, console)")
	flags.String("format", defaults.App.OutputFormat, "output format (text, json)")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Output language (%s)", supportedLangs))
	flags.Int("timeout", core.DefaultFetchTimeoutSecs, "Per-source fetch timeout in seconds")
	flags.Bool("no-cache", false, "Skip the cache for lookups and storage")

	flags.String("youtube-api-key", "", "YouTube Data API key")
	flags.String("youtube-endpoint", "", "YouTube Data API root override")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-base-url", "", "Spotify Web API root override")
	flags.String("google-search-api-key", "", "Google Custom Search API key")
	flags.String("google-cse-id", "", "Google Custom Search engine ID")
	flags.String("google-endpoint", "", "Google Custom Search API root override")

	flags.String("cache-backend", defaults.Cache.Backend, "cache backend (auto, none, sqlite, postgres, redis)")
	flags.String("cache-database-url", "", "Postgres/Supabase connection URL")
	flags.String("cache-redis-url", "", "Redis connection URL")
	flags.String("cache-sqlite-path", "", "SQLite cache database path")
	flags.String("cache-table", defaults.Cache.Table, "cache table name for SQL backends")
	flags.Int("cache-ttl-hours", core.DefaultCacheTTLHours, "Redis entry lifetime in hours, 0 keeps entries forever")
	flags.Int("cache-l1-size", defaults.Cache.L1Size, "In-process cache capacity")

	flags.String("llm-provider", defaults.LLM.Provider, "Description classifier (none, openai, anthropic, ollama)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("llm-api-key", "", "LLM API key")
	flags.String("llm-base-url", "", "LLM API root override")

	flags.StringSlice("scrape-endpoint", defaults.Scrape.Endpoints, "Creative Commons search endpoint, {q} is replaced by the term (repeatable)")
	flags.Float64("scrape-rps", core.DefaultScrapeRequestsPerSecond, "Scrape requests per second, 0 disables pacing")

	flags.String("metrics-pushgateway", "", "Prometheus Pushgateway URL, metrics are pushed at exit when set")
	flags.String("metrics-job", defaults.Metrics.JobName, "Pushgateway job name")
	flags.Int("dedup-capacity", core.DefaultDedupCapacity, "Maximum distinct entries tracked per bulk batch")

	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	rootCmd.Flags().String("query", "", "search text, YouTube link or Spotify link")
	rootCmd.Flags().String("file", "", "local audio file to read tags from")

	youtubeCmd.Flags().String("query", "", "search text or YouTube link")
	youtubeCmd.Flags().String("file", "", "local audio file to read tags from")
	spotifyCmd.Flags().String("query", "", "Spotify track link or URI")
	spotifyCmd.Flags().String("file", "", "local audio file to read tags from")
	fileCmd.Flags().String("file", "", "local audio file to read tags from")

	bulkCmd.Flags().StringArray("query", nil, "title to check (repeatable)")
	bulkCmd.Flags().String("input", "", "file with one title per line, - reads stdin")
	bulkCmd.Flags().Int("concurrency", core.DefaultBulkConcurrency, "Entries resolved at once")

	rootCmd.AddCommand(youtubeCmd, spotifyCmd, fileCmd, bulkCmd)

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if err := gotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	configFile := cfgFile
	if configFile == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configFile = defaultConfigFile
		}
	}
	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
		}
	}

	bindEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

// loadConfigFile reads .env files with gotenv and everything else with viper.
func loadConfigFile(path string) error {
	if filepath.Ext(path) == ".env" || filepath.Base(path) == ".env" {
		return gotenv.Load(path)
	}
	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}

func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for key, legacy := range legacyEnv {
		_ = viper.BindEnv(key, flagToEnvVar(key), legacy)
	}
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSources(cfg)
	configureCache(cfg)
	configureLLM(cfg)
	configureScrape(cfg)
	configureApp(cfg)

	return cfg
}

func configureSources(cfg *core.Config) {
	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")
	cfg.YouTube.Endpoint = viper.GetString("youtube-endpoint")
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.BaseURL = viper.GetString("spotify-base-url")
	cfg.Google.APIKey = viper.GetString("google-search-api-key")
	cfg.Google.CSEID = viper.GetString("google-cse-id")
	cfg.Google.Endpoint = viper.GetString("google-endpoint")
}

func configureCache(cfg *core.Config) {
	if backend := strings.ToLower(viper.GetString("cache-backend")); backend != "" {
		cfg.Cache.Backend = backend
	}
	cfg.Cache.DatabaseURL = viper.GetString("cache-database-url")
	cfg.Cache.RedisURL = viper.GetString("cache-redis-url")
	cfg.Cache.SQLitePath = viper.GetString("cache-sqlite-path")
	if table := viper.GetString("cache-table"); table != "" {
		cfg.Cache.Table = table
	}
	if hours := viper.GetInt("cache-ttl-hours"); hours > 0 {
		cfg.Cache.TTL = time.Duration(hours) * time.Hour
	}
	if size := viper.GetInt("cache-l1-size"); size > 0 {
		cfg.Cache.L1Size = size
	}
}

func configureLLM(cfg *core.Config) {
	if provider := viper.GetString("llm-provider"); provider != "" {
		cfg.LLM.Provider = provider
	}
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
}

func configureScrape(cfg *core.Config) {
	if endpoints := viper.GetStringSlice("scrape-endpoint"); len(endpoints) > 0 {
		cfg.Scrape.Endpoints = endpoints
	}
	cfg.Scrape.RequestsPerSecond = viper.GetFloat64("scrape-rps")
}

func configureApp(cfg *core.Config) {
	cfg.Log.Level = viper.GetString("log-level")
	if format := viper.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	if secs := viper.GetInt("timeout"); secs > 0 {
		cfg.App.FetchTimeout = time.Duration(secs) * time.Second
	}
	if capacity := viper.GetInt("dedup-capacity"); capacity > 0 {
		cfg.App.DedupCapacity = capacity
	}
	if format := strings.ToLower(viper.GetString("format")); format != "" {
		cfg.App.OutputFormat = format
	}

	cfg.Metrics.PushgatewayURL = viper.GetString("metrics-pushgateway")
	if job := viper.GetString("metrics-job"); job != "" {
		cfg.Metrics.JobName = job
	}

	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stderr"}
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runAuto(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	query, _ := cmd.Flags().GetString("query")
	file, _ := cmd.Flags().GetString("file")

	req, err := text.NewParser().ParseRequest(query, file, viper.GetBool("no-cache"))
	if err != nil {
		return err
	}
	return execute([]core.Request{req}, false, 1)
}

func runKind(cmd *cobra.Command, kind core.Kind) error {
	var query, file string
	if cmd.Flags().Lookup("query") != nil {
		query, _ = cmd.Flags().GetString("query")
	}
	file, _ = cmd.Flags().GetString("file")

	req, err := text.NewParser().ParseForKind(kind, query, file, viper.GetBool("no-cache"))
	if err != nil {
		return err
	}
	return execute([]core.Request{req}, false, 1)
}

func runBulk(cmd *cobra.Command, _ []string) error {
	queries, _ := cmd.Flags().GetStringArray("query")
	input, _ := cmd.Flags().GetString("input")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	lines := append([]string(nil), queries...)
	if input != "" {
		fileLines, err := readInputLines(input, cmd.InOrStdin())
		if err != nil {
			return err
		}
		lines = append(lines, fileLines...)
	}

	reqs := text.NewParser().ParseLines(lines, viper.GetBool("no-cache"))
	if len(reqs) == 0 {
		return core.ErrNoInput
	}
	return execute(reqs, true, concurrency)
}

// readInputLines reads a bulk input file, "-" selects stdin.
func readInputLines(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}

func execute(reqs []core.Request, batch bool, concurrency int) error {
	if err := validateConfig(config, reqs); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = logger.Sync() }()

	logger.Debug("Starting homoxion",
		zap.Int("requests", len(reqs)),
		zap.String("cache_backend", store.ResolveBackendName(config.Cache)),
		zap.String("llm_provider", config.LLM.Provider))

	clients, err := newClients(ctx, config, reqs, logger)
	if err != nil {
		return err
	}
	defer clients.Close()
	defer clients.pushMetrics(config.Metrics)

	aggregator := core.NewAggregator(config, clients.sources(), clients.cache, clients.metrics, logger)
	aggregator.SetDedupStore(store.NewDedupStore(config.App.DedupCapacity, store.DefaultFalsePositiveRate))

	renderer := render.New(os.Stdout, config.App.OutputFormat, config.App.Language)

	if batch {
		results, err := aggregator.ResolveAll(ctx, reqs, concurrency)
		if err != nil {
			return err
		}
		return renderer.Batch(results)
	}

	result, err := aggregator.Resolve(ctx, reqs[0])
	if err != nil {
		return err
	}
	return renderer.Result(result)
}

func validateConfig(cfg *core.Config, reqs []core.Request) error {
	if len(reqs) == 0 {
		return core.ErrNoInput
	}

	if err := validateOutput(cfg); err != nil {
		return err
	}

	for _, req := range reqs {
		if err := validateCredentials(cfg, req.Kind); err != nil {
			return err
		}
	}

	if err := validateCache(cfg); err != nil {
		return err
	}

	return validateLLMConfig(cfg)
}

func validateOutput(cfg *core.Config) error {
	switch cfg.App.OutputFormat {
	case core.FormatText, core.FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use %s or %s)",
			cfg.App.OutputFormat, core.FormatText, core.FormatJSON)
	}
}

func validateCredentials(cfg *core.Config, kind core.Kind) error {
	if kind.NeedsYouTube() && cfg.YouTube.APIKey == "" {
		return fmt.Errorf("youtube api key is required for youtube lookups (set %s or YOUTUBE_API_KEY): %w",
			flagToEnvVar("youtube-api-key"), core.ErrNotConfigured)
	}
	if kind.NeedsSpotify() && (cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "") {
		return fmt.Errorf("spotify client id and secret are required for spotify lookups: %w", core.ErrNotConfigured)
	}
	return nil
}

func validateCache(cfg *core.Config) error {
	switch cfg.Cache.Backend {
	case core.CacheBackendAuto, core.CacheBackendNone, core.CacheBackendSQLite,
		core.CacheBackendPostgres, core.CacheBackendRedis:
		return nil
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func validateLLMConfig(cfg *core.Config) error {
	provider := strings.ToLower(cfg.LLM.Provider)
	if provider != "" && provider != "none" && provider != "ollama" && cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required for provider: %s", cfg.LLM.Provider)
	}
	return nil
}

// isUsageError reports errors caused by missing input rather than a failed lookup.
func isUsageError(err error) bool {
	return errors.Is(err, core.ErrNoInput) || errors.Is(err, core.ErrNotConfigured)
}
