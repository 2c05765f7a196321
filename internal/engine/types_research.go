package engine

import (
	"strings"
	"time"
)

// --- Research pipeline domain types ---

// Query sources.
const (
	SourceYouTube     = "youtube"
	SourceChannelFeed = "channel-feed"
)

// ResearchQuery is one search issued by the aggregator for an industry.
type ResearchQuery struct {
	Term   string `json:"term" bson:"term"`
	Source string `json:"source" bson:"source"`
	Intent string `json:"intent" bson:"intent"`
}

// VideoCandidate is a single search hit from the video index.
type VideoCandidate struct {
	ID           string `json:"id" bson:"id"`
	Title        string `json:"title" bson:"title"`
	ChannelTitle string `json:"channel_title" bson:"channel_title"`
	URL          string `json:"url,omitempty" bson:"url,omitempty"`
	Description  string `json:"description,omitempty" bson:"description,omitempty"`
}

// TranscriptMethod identifies the retrieval technique that produced a transcript.
type TranscriptMethod string

const (
	MethodCaptions    TranscriptMethod = "captions"
	MethodASRFallback TranscriptMethod = "asr-fallback"
	MethodUnknown     TranscriptMethod = "unknown"
)

// TranscriptRecord is a cached transcript keyed by video ID.
type TranscriptRecord struct {
	VideoID    string           `json:"video_id" bson:"video_id"`
	Transcript string           `json:"transcript" bson:"transcript"`
	Method     TranscriptMethod `json:"method" bson:"method"`
	CachedAt   time.Time        `json:"cached_at" bson:"cached_at"`
	Length     int              `json:"length" bson:"length"`
}

// NewTranscriptRecord builds a record with derived metadata.
func NewTranscriptRecord(videoID, transcript string, method TranscriptMethod, now time.Time) TranscriptRecord {
	if method == "" {
		method = MethodUnknown
	}
	return TranscriptRecord{
		VideoID:    videoID,
		Transcript: transcript,
		Method:     method,
		CachedAt:   now.UTC(),
		Length:     len(transcript),
	}
}

// Consistent reports whether derived metadata matches the transcript.
func (r TranscriptRecord) Consistent() bool {
	return r.Length == len(r.Transcript) && r.Method != ""
}

// TranscriptCacheStats is the aggregate view over cached transcripts.
type TranscriptCacheStats struct {
	TotalCached   int            `json:"total_cached"`
	TotalLength   int64          `json:"total_length"`
	AverageLength float64        `json:"average_length"`
	Methods       map[string]int `json:"methods"`
}

// InsightItem is one extracted insight, strategy, pain point or approach.
type InsightItem struct {
	Text        string `json:"text" bson:"text"`
	Relevance   string `json:"relevance,omitempty" bson:"relevance,omitempty"`
	Application string `json:"application,omitempty" bson:"application,omitempty"`
	Confidence  int    `json:"confidence" bson:"confidence"`
}

// VideoSource records how a video contributed to a research run.
type VideoSource struct {
	VideoID      string           `json:"video_id" bson:"video_id"`
	Title        string           `json:"title" bson:"title"`
	ChannelTitle string           `json:"channel_title" bson:"channel_title"`
	Query        string           `json:"query" bson:"query"`
	Method       TranscriptMethod `json:"method,omitempty" bson:"method,omitempty"`
	FromCache    bool             `json:"from_cache" bson:"from_cache"`
	InsightCount int              `json:"insight_count" bson:"insight_count"`
}

// TranscriptionStats counts per-run transcript outcomes.
type TranscriptionStats struct {
	Attempted   int            `json:"attempted" bson:"attempted"`
	Successful  int            `json:"successful" bson:"successful"`
	Cached      int            `json:"cached" bson:"cached"`
	Methods     map[string]int `json:"methods" bson:"methods"`
	SuccessRate float64        `json:"success_rate" bson:"success_rate"`
}

// ResearchResult is the persisted outcome of one research run.
type ResearchResult struct {
	ID                 string             `json:"id" bson:"_id"`
	Industry           string             `json:"industry" bson:"industry"`
	IndustryKey        string             `json:"-" bson:"industry_key"`
	Timestamp          time.Time          `json:"timestamp" bson:"timestamp"`
	Depth              string             `json:"depth" bson:"depth"`
	CompanySize        string             `json:"company_size,omitempty" bson:"company_size,omitempty"`
	Queries            []ResearchQuery    `json:"queries" bson:"queries"`
	Insights           []InsightItem      `json:"insights" bson:"insights"`
	Strategies         []InsightItem      `json:"strategies" bson:"strategies"`
	PainPoints         []InsightItem      `json:"pain_points" bson:"pain_points"`
	Approaches         []InsightItem      `json:"approaches" bson:"approaches"`
	VideoSources       []VideoSource      `json:"video_sources" bson:"video_sources"`
	TranscriptionStats TranscriptionStats `json:"transcription_stats" bson:"transcription_stats"`
	AISummary          string             `json:"ai_summary" bson:"ai_summary"`
	FromCache          bool               `json:"from_cache" bson:"-"`
}

// IndustryKnowledge is the rolling per-industry summary.
type IndustryKnowledge struct {
	Industry           string             `json:"industry" bson:"industry"`
	IndustryKey        string             `json:"-" bson:"industry_key"`
	LastUpdated        time.Time          `json:"last_updated" bson:"last_updated"`
	TotalInsights      int                `json:"total_insights" bson:"total_insights"`
	TotalStrategies    int                `json:"total_strategies" bson:"total_strategies"`
	TotalPainPoints    int                `json:"total_pain_points" bson:"total_pain_points"`
	TopInsights        []InsightItem      `json:"top_insights" bson:"top_insights"`
	TopStrategies      []InsightItem      `json:"top_strategies" bson:"top_strategies"`
	TopPainPoints      []InsightItem      `json:"top_pain_points" bson:"top_pain_points"`
	ResearchSummary    string             `json:"research_summary" bson:"research_summary"`
	TranscriptionStats TranscriptionStats `json:"transcription_stats" bson:"transcription_stats"`
}

// ResultFilter narrows a research history listing.
type ResultFilter struct {
	Industry string
	Since    time.Time
	Limit    int
}

// IndustryKey normalises an industry label for case-insensitive matching.
func IndustryKey(industry string) string {
	return strings.ToLower(strings.TrimSpace(industry))
}
