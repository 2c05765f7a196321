package sources

// YouTube implementation is split across files by responsibility:
//   youtube.go           : client, options and shared HTTP helpers
//   youtube_innertube.go : Innertube API types, constants, and low-level HTTP primitives
//   youtube_search.go    : video search (Data API v3 + ytInitialData scraping)
//   youtube_feed.go      : channel upload feeds (RSS)
//   youtube_transcript.go: transcript sources (captions, asr-fallback)

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBase = "https://www.googleapis.com/youtube/v3"
	defaultWebBase = "https://www.youtube.com"
)

// YouTube talks to the public YouTube surfaces: Data API v3, the web
// frontend, Innertube endpoints and channel feeds.
type YouTube struct {
	client   *http.Client
	apiKeys  []string
	apiBase  string
	webBase  string
	limiter  *rate.Limiter
	cache    *engine.Cache
	cacheTTL time.Duration
	retry    engine.RetryConfig
	langs    []string
}

// Option customises a YouTube client.
type Option func(*YouTube)

// WithEndpoints overrides the Data API and web base URLs.
func WithEndpoints(apiBase, webBase string) Option {
	return func(y *YouTube) {
		if apiBase != "" {
			y.apiBase = apiBase
		}
		if webBase != "" {
			y.webBase = webBase
		}
	}
}

// WithCache enables caching of search results.
func WithCache(c *engine.Cache, ttl time.Duration) Option {
	return func(y *YouTube) {
		y.cache = c
		y.cacheTTL = ttl
	}
}

// WithLanguages sets caption language preference order.
func WithLanguages(langs ...string) Option {
	return func(y *YouTube) {
		if len(langs) > 0 {
			y.langs = langs
		}
	}
}

// NewYouTube builds a client from engine config.
func NewYouTube(c engine.Config, opts ...Option) *YouTube {
	y := &YouTube{
		client:  c.HTTPClient,
		apiBase: defaultAPIBase,
		webBase: defaultWebBase,
		retry:   engine.DefaultRetryConfig,
		langs:   []string{"en", "en-US", "en-GB"},
	}
	if y.client == nil {
		y.client = &http.Client{Timeout: 15 * time.Second}
	}
	if c.YouTubeAPIKey != "" {
		y.apiKeys = append(y.apiKeys, c.YouTubeAPIKey)
	}
	if c.YouTubeAPIKeyFallback != "" {
		y.apiKeys = append(y.apiKeys, c.YouTubeAPIKeyFallback)
	}
	if c.YouTubeRPS > 0 {
		y.limiter = rate.NewLimiter(rate.Limit(c.YouTubeRPS), 2)
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

func (y *YouTube) wait(ctx context.Context) error {
	if y.limiter == nil {
		return nil
	}
	return y.limiter.Wait(ctx)
}

func (y *YouTube) watchURL(videoID string) string {
	return y.webBase + "/watch?v=" + videoID
}

// getHTML GETs a YouTube web page with browser-like headers.
func (y *YouTube) getHTML(ctx context.Context, pageURL string, limit int64) ([]byte, error) {
	if err := y.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return y.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
