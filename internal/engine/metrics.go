package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	LLMCalls                  atomic.Int64
	LLMErrors                 atomic.Int64
	LLMBreakerRejects         atomic.Int64
	FetchRequests             atomic.Int64
	FetchErrors               atomic.Int64
	YouTubeSearchRequests     atomic.Int64
	YouTubeFeedRequests       atomic.Int64
	YouTubeTranscriptRequests atomic.Int64
	TranscriptCacheHits       atomic.Int64
	TranscriptCacheMisses     atomic.Int64
	ResearchRuns              atomic.Int64
	ResearchCacheHits         atomic.Int64
	VideosAnalyzed            atomic.Int64
	AnalyzeFailures           atomic.Int64
	WebSearchRequests         atomic.Int64
	ContactPages              atomic.Int64
}

var metricKeys = []string{
	"llm_calls", "llm_errors", "llm_breaker_rejects",
	"fetch_requests", "fetch_errors",
	"youtube_search_requests", "youtube_feed_requests", "youtube_transcript_requests",
	"transcript_cache_hits", "transcript_cache_misses",
	"research_runs", "research_cache_hits",
	"videos_analyzed", "analyze_failures",
	"web_search_requests", "contact_pages",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"llm_calls":                   metrics.LLMCalls.Load(),
		"llm_errors":                  metrics.LLMErrors.Load(),
		"llm_breaker_rejects":         metrics.LLMBreakerRejects.Load(),
		"fetch_requests":              metrics.FetchRequests.Load(),
		"fetch_errors":                metrics.FetchErrors.Load(),
		"youtube_search_requests":     metrics.YouTubeSearchRequests.Load(),
		"youtube_feed_requests":       metrics.YouTubeFeedRequests.Load(),
		"youtube_transcript_requests": metrics.YouTubeTranscriptRequests.Load(),
		"transcript_cache_hits":       metrics.TranscriptCacheHits.Load(),
		"transcript_cache_misses":     metrics.TranscriptCacheMisses.Load(),
		"research_runs":               metrics.ResearchRuns.Load(),
		"research_cache_hits":         metrics.ResearchCacheHits.Load(),
		"videos_analyzed":             metrics.VideosAnalyzed.Load(),
		"analyze_failures":            metrics.AnalyzeFailures.Load(),
		"web_search_requests":         metrics.WebSearchRequests.Load(),
		"contact_pages":               metrics.ContactPages.Load(),
		"cache_hits":                  hits,
		"cache_misses":                misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ and research/ sub-packages.
func IncrYouTubeSearch()       { metrics.YouTubeSearchRequests.Add(1) }
func IncrYouTubeFeed()         { metrics.YouTubeFeedRequests.Add(1) }
func IncrYouTubeTranscript()   { metrics.YouTubeTranscriptRequests.Add(1) }
func IncrTranscriptCacheHit()  { metrics.TranscriptCacheHits.Add(1) }
func IncrTranscriptCacheMiss() { metrics.TranscriptCacheMisses.Add(1) }
func IncrResearchRun()         { metrics.ResearchRuns.Add(1) }
func IncrResearchCacheHit()    { metrics.ResearchCacheHits.Add(1) }
func IncrVideoAnalyzed()       { metrics.VideosAnalyzed.Add(1) }
func IncrAnalyzeFailure()      { metrics.AnalyzeFailures.Add(1) }
func IncrContactPage()         { metrics.ContactPages.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 30*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
