package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from bootstrap.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRPS             float64 // 0 = unlimited

	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	YouTubeRPS            float64 // 0 = unlimited
	TranscriptLanguages   []string

	RedisURL             string
	CacheTTL             time.Duration
	SearchCacheTTL       time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	StoreBackend  string // memory|sqlite|postgres|mongo; empty = pick from URLs
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string // PostgreSQL
	SQLitePath    string

	ResearchConcurrency   int
	ResearchTemplatesFile string
	ResearchFreshness     time.Duration
	OutreachMinScore      int

	SearchTimeout     time.Duration
	TranscriptTimeout time.Duration
	AnalyzeTimeout    time.Duration
	FetchTimeout      time.Duration
	MaxContentChars   int

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = page fetch falls back to HTTPClient
}

// Defaults fills zero-valued tunables with production defaults.
func (c *Config) Defaults() {
	if c.LLMMaxTokens <= 0 {
		c.LLMMaxTokens = 4096
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Minute
	}
	if c.SearchCacheTTL <= 0 {
		c.SearchCacheTTL = 6 * time.Hour
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 1000
	}
	if c.CacheCleanupInterval <= 0 {
		c.CacheCleanupInterval = 5 * time.Minute
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "leadgen"
	}
	if c.ResearchConcurrency <= 0 {
		c.ResearchConcurrency = 1
	}
	if c.ResearchFreshness <= 0 {
		c.ResearchFreshness = 24 * time.Hour
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 20 * time.Second
	}
	if c.TranscriptTimeout <= 0 {
		c.TranscriptTimeout = 30 * time.Second
	}
	if c.AnalyzeTimeout <= 0 {
		c.AnalyzeTimeout = 90 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 6000
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
}
