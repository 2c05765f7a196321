package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
	"golang.org/x/sync/errgroup"
)

// Research depth controls videos per query.
const (
	DepthShallow = "shallow"
	DepthDeep    = "deep"

	shallowVideosPerQuery = 10
	deepVideosPerQuery    = 15

	knowledgeTopInsights   = 20
	knowledgeTopStrategies = 15
	knowledgeTopPainPoints = 15

	minTranscriptLength = 100
	summaryMaxTokens    = 600
	summaryTemperature  = 0.4
)

// VideoSearcher queries the video index.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]engine.VideoCandidate, error)
}

// ChannelLister lists a channel's recent uploads.
type ChannelLister interface {
	ChannelVideos(ctx context.Context, channelID string, limit int) ([]engine.VideoCandidate, error)
}

// TranscriptFetcher returns a transcript or reports it absent.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, opts FetchOptions) (FetchResult, bool, error)
}

// VideoAnalyzer extracts filtered insights from one transcript.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, transcript, industry string, video engine.VideoCandidate) (AnalysisResult, error)
}

// ResultStore persists research results and industry knowledge.
type ResultStore interface {
	LatestResult(ctx context.Context, industryKey string) (engine.ResearchResult, error)
	SaveResult(ctx context.Context, res engine.ResearchResult) error
	UpsertKnowledge(ctx context.Context, k engine.IndustryKnowledge) error
}

// AggregatorConfig wires the aggregator's collaborators.
type AggregatorConfig struct {
	Searcher   VideoSearcher
	Channels   ChannelLister // optional; channel-feed queries are skipped without it
	Fetcher    TranscriptFetcher
	Analyzer   VideoAnalyzer
	Summarizer engine.Completer // optional; a deterministic summary is used without it
	Store      ResultStore      // optional; nothing is cached or persisted without it
	Templates  Templates

	Concurrency   int
	Freshness     time.Duration
	SearchTimeout time.Duration
	MinTranscript int
	Now           func() time.Time
}

// ResearchOptions are the caller's parameters for one run.
type ResearchOptions struct {
	Industry    string `json:"industry"`
	Depth       string `json:"depth,omitempty"`
	CompanySize string `json:"company_size,omitempty"`
	UseCache    bool   `json:"use_cache"`
}

// Aggregator runs the per-industry research pipeline.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator fills defaults and returns an aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 24 * time.Hour
	}
	if cfg.MinTranscript <= 0 {
		cfg.MinTranscript = minTranscriptLength
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Templates.Base == nil && cfg.Templates.CompanySize == nil && cfg.Templates.Channels == nil {
		cfg.Templates = DefaultTemplates()
	}
	return &Aggregator{cfg: cfg}
}

type videoJob struct {
	query engine.ResearchQuery
	video engine.VideoCandidate
}

type videoOutcome struct {
	fetched  bool
	fetch    FetchResult
	analysis AnalysisResult
}

// Research runs the pipeline for one industry. It returns a result even when
// every video fails; only configuration problems, an empty industry or an
// empty query set are errors.
func (a *Aggregator) Research(ctx context.Context, opts ResearchOptions) (*engine.ResearchResult, error) {
	if a.cfg.Searcher == nil {
		return nil, &ConfigError{Component: "research", Msg: "video search client not configured"}
	}
	if a.cfg.Fetcher == nil {
		return nil, &ConfigError{Component: "research", Msg: "transcript fetcher not configured"}
	}
	if a.cfg.Analyzer == nil {
		return nil, &ConfigError{Component: "research", Msg: "content analyzer not configured (LLM_API_KEY missing?)"}
	}

	industry := strings.TrimSpace(opts.Industry)
	if industry == "" {
		return nil, errors.New("research: industry is required")
	}
	key := engine.IndustryKey(industry)
	depth := opts.Depth
	if depth != DepthDeep {
		depth = DepthShallow
	}

	engine.IncrResearchRun()

	if opts.UseCache {
		if cached, ok := a.cachedResult(ctx, key); ok {
			engine.IncrResearchCacheHit()
			slog.Info("research: cache hit", slog.String("industry", industry), slog.String("id", cached.ID))
			return cached, nil
		}
	}

	queries, err := a.cfg.Templates.BuildQueries(industry, opts.CompanySize)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	perQuery := shallowVideosPerQuery
	if depth == DepthDeep {
		perQuery = deepVideosPerQuery
	}

	jobs := a.collectJobs(ctx, queries, perQuery)
	slog.Info("research: candidates collected",
		slog.String("industry", industry),
		slog.Int("queries", len(queries)),
		slog.Int("videos", len(jobs)))

	outcomes, stats := a.processVideos(ctx, industry, jobs)

	res := &engine.ResearchResult{
		ID:                 uuid.NewString(),
		Industry:           industry,
		IndustryKey:        key,
		Timestamp:          a.cfg.Now().UTC(),
		Depth:              depth,
		CompanySize:        NormalizeCompanySize(opts.CompanySize),
		Queries:            queries,
		TranscriptionStats: stats,
	}

	var insights, strategies, painPoints []engine.InsightItem
	for i, out := range outcomes {
		if !out.fetched {
			continue
		}
		job := jobs[i]
		insights = append(insights, out.analysis.Insights...)
		strategies = append(strategies, out.analysis.Strategies...)
		painPoints = append(painPoints, out.analysis.PainPoints...)
		res.Approaches = append(res.Approaches, out.analysis.Approaches...)
		res.VideoSources = append(res.VideoSources, engine.VideoSource{
			VideoID:      job.video.ID,
			Title:        job.video.Title,
			ChannelTitle: job.video.ChannelTitle,
			Query:        job.query.Term,
			Method:       out.fetch.Method,
			FromCache:    out.fetch.FromCache,
			InsightCount: out.analysis.Count(),
		})
	}

	res.Insights = Dedupe(insights)
	res.Strategies = Dedupe(strategies)
	res.PainPoints = Dedupe(painPoints)
	sortByConfidence(res.Approaches)
	if res.Approaches == nil {
		res.Approaches = []engine.InsightItem{}
	}

	res.AISummary = a.summarize(ctx, res, len(queries))
	a.persist(ctx, res)

	slog.Info("research: done",
		slog.String("industry", industry),
		slog.Int("attempted", stats.Attempted),
		slog.Int("successful", stats.Successful),
		slog.Int("insights", len(res.Insights)),
		slog.Int("pain_points", len(res.PainPoints)))
	return res, nil
}

func (a *Aggregator) cachedResult(ctx context.Context, key string) (*engine.ResearchResult, bool) {
	if a.cfg.Store == nil {
		return nil, false
	}
	prev, err := a.cfg.Store.LatestResult(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("research: cache lookup failed", slog.String("industry", key), slog.Any("error", err))
		}
		return nil, false
	}
	if a.cfg.Now().Sub(prev.Timestamp) >= a.cfg.Freshness {
		return nil, false
	}
	prev.FromCache = true
	return &prev, true
}

// collectJobs runs every query in order and returns the unique videos in
// first-seen order.
func (a *Aggregator) collectJobs(ctx context.Context, queries []engine.ResearchQuery, perQuery int) []videoJob {
	seen := make(map[string]bool)
	var jobs []videoJob
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		videos, err := a.searchQuery(ctx, q, perQuery)
		if err != nil {
			slog.Warn("research: query failed",
				slog.String("query", q.Term),
				slog.String("source", q.Source),
				slog.Any("error", err))
			continue
		}
		for _, v := range videos {
			if v.ID == "" || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			jobs = append(jobs, videoJob{query: q, video: v})
		}
	}
	return jobs
}

func (a *Aggregator) searchQuery(ctx context.Context, q engine.ResearchQuery, limit int) ([]engine.VideoCandidate, error) {
	if a.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SearchTimeout)
		defer cancel()
	}

	var (
		videos []engine.VideoCandidate
		err    error
	)
	switch q.Source {
	case engine.SourceChannelFeed:
		if a.cfg.Channels == nil {
			return nil, nil
		}
		videos, err = a.cfg.Channels.ChannelVideos(ctx, q.Term, limit)
	default:
		videos, err = a.cfg.Searcher.Search(ctx, q.Term, limit)
	}
	if err != nil {
		return nil, &TransientExternalError{Op: "search " + q.Source, Err: err}
	}
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// processVideos fetches and analyzes every job with at most Concurrency
// workers. Outcomes are indexed by job so merging stays in candidate order.
func (a *Aggregator) processVideos(ctx context.Context, industry string, jobs []videoJob) ([]videoOutcome, engine.TranscriptionStats) {
	outcomes := make([]videoOutcome, len(jobs))
	var attempted, successful, cached atomic.Int64

	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			attempted.Add(1)
			out, ok := a.processVideo(ctx, industry, job)
			if !ok {
				return nil
			}
			successful.Add(1)
			if out.fetch.FromCache {
				cached.Add(1)
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	stats := engine.TranscriptionStats{
		Attempted:  int(attempted.Load()),
		Successful: int(successful.Load()),
		Cached:     int(cached.Load()),
		Methods:    map[string]int{},
	}
	for _, out := range outcomes {
		if out.fetched {
			stats.Methods[string(out.fetch.Method)]++
		}
	}
	if stats.Attempted > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Attempted) * 100
	}
	return outcomes, stats
}

// processVideo returns ok=false when no transcript could be obtained.
// Analysis failures keep the video successful with zero contribution.
func (a *Aggregator) processVideo(ctx context.Context, industry string, job videoJob) (videoOutcome, bool) {
	fr, ok, err := a.cfg.Fetcher.Fetch(ctx, job.video.ID, FetchOptions{UseCache: true, MinLength: a.cfg.MinTranscript})
	if err != nil {
		slog.Warn("research: transcript fetch failed", slog.String("video_id", job.video.ID), slog.Any("error", err))
		return videoOutcome{}, false
	}
	if !ok {
		slog.Info("research: no transcript", slog.String("video_id", job.video.ID), slog.String("title", job.video.Title))
		return videoOutcome{}, false
	}

	out := videoOutcome{fetched: true, fetch: fr}
	analysis, err := a.cfg.Analyzer.Analyze(ctx, fr.Transcript, industry, job.video)
	if err != nil {
		engine.IncrAnalyzeFailure()
		slog.Warn("research: analysis failed",
			slog.String("video_id", job.video.ID),
			slog.Bool("malformed", IsMalformed(err)),
			slog.Any("error", err))
		return out, true
	}
	engine.IncrVideoAnalyzed()
	out.analysis = analysis
	return out, true
}

func (a *Aggregator) summarize(ctx context.Context, res *engine.ResearchResult, queryCount int) string {
	fallback := fallbackSummary(res)
	if a.cfg.Summarizer == nil || len(res.Insights)+len(res.PainPoints)+len(res.Strategies) == 0 {
		return fallback
	}

	prompt := fmt.Sprintf(summaryPrompt, res.Industry, len(res.VideoSources), queryCount,
		bulletList(top(res.Insights, 10)),
		bulletList(top(res.PainPoints, 10)),
		bulletList(top(res.Strategies, 5)))
	text, err := a.cfg.Summarizer.Complete(ctx, prompt, summaryMaxTokens, summaryTemperature)
	if err != nil {
		slog.Warn("research: summary failed, using fallback", slog.String("industry", res.Industry), slog.Any("error", err))
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

func bulletList(items []engine.InsightItem) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "- [%d] %s\n", it.Confidence, it.Text)
	}
	return sb.String()
}

func fallbackSummary(res *engine.ResearchResult) string {
	s := res.TranscriptionStats
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzed %d of %d videos for %s: %d insights, %d strategies, %d pain points.",
		s.Successful, s.Attempted, res.Industry, len(res.Insights), len(res.Strategies), len(res.PainPoints))
	if len(res.Insights) > 0 {
		fmt.Fprintf(&sb, " Top insight: %s", res.Insights[0].Text)
	}
	if len(res.PainPoints) > 0 {
		fmt.Fprintf(&sb, " Top pain point: %s", res.PainPoints[0].Text)
	}
	return sb.String()
}

func (a *Aggregator) persist(ctx context.Context, res *engine.ResearchResult) {
	if a.cfg.Store == nil {
		return
	}
	if err := a.cfg.Store.SaveResult(ctx, *res); err != nil {
		slog.Error("research: save result failed", slog.String("industry", res.Industry), slog.Any("error", err))
	}
	if err := a.cfg.Store.UpsertKnowledge(ctx, KnowledgeFromResult(res)); err != nil {
		slog.Error("research: upsert knowledge failed", slog.String("industry", res.Industry), slog.Any("error", err))
	}
}

// KnowledgeFromResult derives the rolling industry summary from a result.
func KnowledgeFromResult(res *engine.ResearchResult) engine.IndustryKnowledge {
	return engine.IndustryKnowledge{
		Industry:           res.Industry,
		IndustryKey:        res.IndustryKey,
		LastUpdated:        res.Timestamp,
		TotalInsights:      len(res.Insights),
		TotalStrategies:    len(res.Strategies),
		TotalPainPoints:    len(res.PainPoints),
		TopInsights:        top(res.Insights, knowledgeTopInsights),
		TopStrategies:      top(res.Strategies, knowledgeTopStrategies),
		TopPainPoints:      top(res.PainPoints, knowledgeTopPainPoints),
		ResearchSummary:    res.AISummary,
		TranscriptionStats: res.TranscriptionStats,
	}
}
