// Package bootstrap reads configuration from the environment and wires the
// research services shared by the MCP server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/sources"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
)

// ConfigFromEnv reads every tunable from the environment.
func ConfigFromEnv() engine.Config {
	c := engine.Config{
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:           env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 4096),
		LLMRPS:             env.Float("LLM_RPS", 0),

		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		YouTubeRPS:            env.Float("YOUTUBE_RPS", 2),
		TranscriptLanguages:   env.List("TRANSCRIPT_LANGUAGES", "en,en-US,en-GB"),

		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 15*time.Minute),
		SearchCacheTTL:       env.Duration("SEARCH_CACHE_TTL", 6*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		StoreBackend:  env.Str("STORE_BACKEND", ""),
		MongoURI:      env.Str("MONGODB_URI", ""),
		MongoDatabase: env.Str("MONGODB_DATABASE", "leadgen"),
		DatabaseURL:   env.Str("DATABASE_URL", ""),
		SQLitePath:    env.Str("SQLITE_PATH", ""),

		ResearchConcurrency:   env.Int("RESEARCH_CONCURRENCY", 1),
		ResearchTemplatesFile: env.Str("RESEARCH_TEMPLATES_FILE", ""),
		ResearchFreshness:     env.Duration("RESEARCH_FRESHNESS", 24*time.Hour),
		OutreachMinScore:      env.Int("OUTREACH_MIN_SCORE", 0),

		SearchTimeout:     env.Duration("SEARCH_TIMEOUT", 20*time.Second),
		TranscriptTimeout: env.Duration("TRANSCRIPT_TIMEOUT", 30*time.Second),
		AnalyzeTimeout:    env.Duration("ANALYZE_TIMEOUT", 90*time.Second),
		FetchTimeout:      env.Duration("FETCH_TIMEOUT", 15*time.Second),
		MaxContentChars:   env.Int("MAX_CONTENT_CHARS", 6000),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	c.Defaults()
	return c
}

// SetupLogging installs a JSON slog handler on stderr at LOG_LEVEL.
func SetupLogging() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(env.Str("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Services holds every long-lived component.
type Services struct {
	Config      engine.Config
	Cache       *engine.Cache
	YouTube     *sources.YouTube
	LLM         engine.Completer // nil without LLM_API_KEY
	Store       store.Store
	Transcripts *research.TranscriptCache
	Fetcher     *research.Fetcher
	Aggregator  *research.Aggregator
	Outreach    *research.Outreach
	Pages       *engine.PageFetcher
	Web         *engine.WebSearcher
}

// New wires services from c. A store that cannot be opened is fatal;
// missing optional credentials only disable the features that need them.
func New(ctx context.Context, c engine.Config) (*Services, error) {
	c.Defaults()
	if c.BrowserClient == nil {
		c.BrowserClient = newBrowserClient()
	}

	st, err := store.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Services{
		Config: c,
		Cache:  engine.NewCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval),
		Store:  st,
		Pages:  engine.NewPageFetcher(c),
		Web:    engine.NewWebSearcher(c.BrowserClient),
	}
	s.YouTube = sources.NewYouTube(c,
		sources.WithCache(s.Cache, c.SearchCacheTTL),
		sources.WithLanguages(c.TranscriptLanguages...),
	)

	if c.LLMAPIKey != "" {
		s.LLM = engine.NewLLMClient(c)
	} else {
		slog.Warn("LLM_API_KEY not set: industry research and outreach drafting are disabled")
	}
	if c.YouTubeAPIKey == "" {
		slog.Info("YOUTUBE_API_KEY not set: video search uses page scraping")
	}

	templates, err := research.LoadTemplates(c.ResearchTemplatesFile)
	if err != nil {
		slog.Warn("research templates not loaded, using defaults", slog.Any("error", err))
	}

	s.Transcripts = research.NewTranscriptCache(st)
	s.Fetcher = research.NewFetcher(s.Transcripts, s.YouTube.TranscriptSources(), c.TranscriptTimeout)

	aggCfg := research.AggregatorConfig{
		Searcher:      s.YouTube,
		Channels:      s.YouTube,
		Fetcher:       s.Fetcher,
		Store:         st,
		Templates:     templates,
		Concurrency:   c.ResearchConcurrency,
		Freshness:     c.ResearchFreshness,
		SearchTimeout: c.SearchTimeout,
	}
	if s.LLM != nil {
		aggCfg.Analyzer = research.NewAnalyzer(s.LLM, c.AnalyzeTimeout)
		aggCfg.Summarizer = s.LLM
	}
	s.Aggregator = research.NewAggregator(aggCfg)
	s.Outreach = research.NewOutreach(s.LLM, st, c.OutreachMinScore)

	return s, nil
}

// Close releases the store and cache.
func (s *Services) Close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}
	return errors.Join(errs...)
}

func newBrowserClient() *engine.BrowserClient {
	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := strings.TrimSpace(env.Str("WEBSHARE_API_KEY", "")); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
		return nil
	}
	slog.Info("stealth browser client initialized")
	return bc
}
