package leadserver

import (
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
)

// IndustryResearchInput is the input for industry_research.
type IndustryResearchInput struct {
	Industry    string `json:"industry" jsonschema:"Target industry, e.g. dentistry or B2B SaaS"`
	Depth       string `json:"depth,omitempty" jsonschema:"shallow (10 videos per query, default) or deep (15)"`
	CompanySize string `json:"company_size,omitempty" jsonschema:"small, mid or enterprise; adds size-specific queries"`
	UseCache    *bool  `json:"use_cache,omitempty" jsonschema:"Reuse a result younger than the freshness window (default true)"`
}

// ResearchOutput is a research result with string timestamps.
type ResearchOutput struct {
	ID                 string                    `json:"id"`
	Industry           string                    `json:"industry"`
	Timestamp          string                    `json:"timestamp"`
	Depth              string                    `json:"depth"`
	CompanySize        string                    `json:"company_size,omitempty"`
	FromCache          bool                      `json:"from_cache"`
	Queries            []engine.ResearchQuery    `json:"queries"`
	Insights           []engine.InsightItem      `json:"insights"`
	Strategies         []engine.InsightItem      `json:"strategies"`
	PainPoints         []engine.InsightItem      `json:"pain_points"`
	Approaches         []engine.InsightItem      `json:"approaches"`
	VideoSources       []engine.VideoSource      `json:"video_sources"`
	TranscriptionStats engine.TranscriptionStats `json:"transcription_stats"`
	AISummary          string                    `json:"ai_summary"`
}

func toResearchOutput(r *engine.ResearchResult) *ResearchOutput {
	return &ResearchOutput{
		ID:                 r.ID,
		Industry:           r.Industry,
		Timestamp:          formatTime(r.Timestamp),
		Depth:              r.Depth,
		CompanySize:        r.CompanySize,
		FromCache:          r.FromCache,
		Queries:            r.Queries,
		Insights:           r.Insights,
		Strategies:         r.Strategies,
		PainPoints:         r.PainPoints,
		Approaches:         r.Approaches,
		VideoSources:       r.VideoSources,
		TranscriptionStats: r.TranscriptionStats,
		AISummary:          r.AISummary,
	}
}

// IndustryInput names an industry.
type IndustryInput struct {
	Industry string `json:"industry" jsonschema:"Industry name (case-insensitive)"`
}

// KnowledgeOutput is the output for industry_knowledge.
type KnowledgeOutput struct {
	Found              bool                      `json:"found"`
	Industry           string                    `json:"industry"`
	LastUpdated        string                    `json:"last_updated,omitempty"`
	TotalInsights      int                       `json:"total_insights"`
	TotalStrategies    int                       `json:"total_strategies"`
	TotalPainPoints    int                       `json:"total_pain_points"`
	TopInsights        []engine.InsightItem      `json:"top_insights,omitempty"`
	TopStrategies      []engine.InsightItem      `json:"top_strategies,omitempty"`
	TopPainPoints      []engine.InsightItem      `json:"top_pain_points,omitempty"`
	ResearchSummary    string                    `json:"research_summary,omitempty"`
	TranscriptionStats engine.TranscriptionStats `json:"transcription_stats"`
}

func toKnowledgeOutput(k engine.IndustryKnowledge) *KnowledgeOutput {
	return &KnowledgeOutput{
		Found:              true,
		Industry:           k.Industry,
		LastUpdated:        formatTime(k.LastUpdated),
		TotalInsights:      k.TotalInsights,
		TotalStrategies:    k.TotalStrategies,
		TotalPainPoints:    k.TotalPainPoints,
		TopInsights:        k.TopInsights,
		TopStrategies:      k.TopStrategies,
		TopPainPoints:      k.TopPainPoints,
		ResearchSummary:    k.ResearchSummary,
		TranscriptionStats: k.TranscriptionStats,
	}
}

// ResearchHistoryInput is the input for research_history.
type ResearchHistoryInput struct {
	Industry string `json:"industry,omitempty" jsonschema:"Only this industry; empty lists all"`
	Since    string `json:"since,omitempty" jsonschema:"Only runs newer than this: 24h, 7d, 2026-01-31 or RFC 3339"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Max entries (default 20, max 100)"`
}

// HistoryEntry summarises one past research run.
type HistoryEntry struct {
	ID          string  `json:"id"`
	Industry    string  `json:"industry"`
	Timestamp   string  `json:"timestamp"`
	Depth       string  `json:"depth"`
	Insights    int     `json:"insights"`
	Strategies  int     `json:"strategies"`
	PainPoints  int     `json:"pain_points"`
	Videos      int     `json:"videos"`
	SuccessRate float64 `json:"success_rate"`
	Summary     string  `json:"summary"`
}

// ResearchHistoryOutput is the output for research_history.
type ResearchHistoryOutput struct {
	Results []HistoryEntry `json:"results"`
	Total   int            `json:"total"`
}

func toHistoryEntry(r engine.ResearchResult) HistoryEntry {
	return HistoryEntry{
		ID:          r.ID,
		Industry:    r.Industry,
		Timestamp:   formatTime(r.Timestamp),
		Depth:       r.Depth,
		Insights:    len(r.Insights),
		Strategies:  len(r.Strategies),
		PainPoints:  len(r.PainPoints),
		Videos:      r.TranscriptionStats.Successful,
		SuccessRate: r.TranscriptionStats.SuccessRate,
		Summary:     engine.TruncateAtWord(r.AISummary, 300),
	}
}

// ResearchCacheDeleteOutput is the output for research_cache_delete.
type ResearchCacheDeleteOutput struct {
	Industry       string `json:"industry"`
	DeletedResults int64  `json:"deleted_results"`
}

// YouTubeSearchInput is the input for youtube_search.
type YouTubeSearchInput struct {
	Query      string `json:"query" jsonschema:"Search terms"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"1-50, default 10"`
}

// YouTubeSearchOutput is the output for youtube_search.
type YouTubeSearchOutput struct {
	Query  string                  `json:"query"`
	Videos []engine.VideoCandidate `json:"videos"`
}

// TranscriptInput is the input for youtube_transcript.
type TranscriptInput struct {
	Video     string `json:"video" jsonschema:"YouTube URL or 11-character video ID"`
	UseCache  *bool  `json:"use_cache,omitempty" jsonschema:"Serve from the transcript cache when present (default true)"`
	MinLength int    `json:"min_length,omitempty" jsonschema:"Reject transcripts shorter than this many characters"`
}

// TranscriptOutput is the output for youtube_transcript.
type TranscriptOutput struct {
	VideoID    string `json:"video_id"`
	Found      bool   `json:"found"`
	Method     string `json:"method,omitempty"`
	FromCache  bool   `json:"from_cache"`
	Length     int    `json:"length"`
	Transcript string `json:"transcript,omitempty"`
}

// VideoIDInput names a cached transcript.
type VideoIDInput struct {
	VideoID string `json:"video_id" jsonschema:"YouTube URL or 11-character video ID"`
}

// TranscriptDeleteOutput is the output for transcript_cache_delete.
type TranscriptDeleteOutput struct {
	VideoID string `json:"video_id"`
	Deleted bool   `json:"deleted"`
}

// EmptyInput is used by tools without arguments.
type EmptyInput struct{}

// LeadContactsInput is the input for lead_contacts.
type LeadContactsInput struct {
	URLs []string `json:"urls" jsonschema:"Lead website pages to scan (max 10)"`
}

// LeadContactsOutput is the output for lead_contacts.
type LeadContactsOutput struct {
	Contacts []*research.Contacts `json:"contacts"`
	Errors   map[string]string    `json:"errors,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
