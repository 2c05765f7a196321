package leadserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
)

type stubResearcher struct {
	mu    sync.Mutex
	store store.Store
	last  research.ResearchOptions
}

func (s *stubResearcher) Research(ctx context.Context, opts research.ResearchOptions) (*engine.ResearchResult, error) {
	s.mu.Lock()
	s.last = opts
	s.mu.Unlock()
	if opts.Industry == "broken" {
		return nil, &research.ConfigError{Component: "llm", Msg: "not configured"}
	}
	res := engine.ResearchResult{
		ID:          "run-1",
		Industry:    opts.Industry,
		IndustryKey: engine.IndustryKey(opts.Industry),
		Timestamp:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Depth:       "shallow",
		Insights:    []engine.InsightItem{{Text: "Video testimonials convert", Confidence: 9}},
		TranscriptionStats: engine.TranscriptionStats{
			Attempted: 1, Successful: 1, SuccessRate: 100,
		},
		AISummary: "Testimonials work.",
	}
	if err := s.store.SaveResult(ctx, res); err != nil {
		return nil, err
	}
	if err := s.store.UpsertKnowledge(ctx, research.KnowledgeFromResult(&res)); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *stubResearcher) Last() research.ResearchOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, query string, maxResults int) ([]engine.VideoCandidate, error) {
	out := make([]engine.VideoCandidate, 0, maxResults)
	for i := 0; i < maxResults && i < 3; i++ {
		out = append(out, engine.VideoCandidate{ID: "vid" + string(rune('a'+i)) + "1234567", Title: query})
	}
	return out, nil
}

type stubTranscripts struct {
	cache *research.TranscriptCache
}

func (s stubTranscripts) Fetch(ctx context.Context, videoID string, opts research.FetchOptions) (research.FetchResult, bool, error) {
	if videoID == "missing0000" {
		return research.FetchResult{}, false, nil
	}
	text := strings.Repeat("hello dentists ", 20)
	if err := s.cache.Put(ctx, videoID, text, engine.MethodCaptions); err != nil {
		return research.FetchResult{}, false, err
	}
	return research.FetchResult{Transcript: text, Method: engine.MethodCaptions}, true, nil
}

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, prompt string, _ int, _ float64) (string, error) {
	return `{"subject":"Quick idea","message":"Hi there","follow_up":"Bumping this","personalization_notes":["dental"]}`, nil
}

type stubPages struct{}

func (stubPages) Fetch(_ context.Context, u string) (*engine.Page, error) {
	if strings.Contains(u, "down") {
		return nil, errors.New("connection refused")
	}
	return &engine.Page{
		URL:   u,
		Title: "Bright Smiles",
		HTML:  `<html><body><a href="mailto:hello@brightsmiles.test">Email</a></body></html>`,
	}, nil
}

type stubWeb struct{}

func (stubWeb) Search(_ context.Context, q string) ([]engine.WebResult, error) {
	return []engine.WebResult{
		{Title: "Bright Smiles on Yelp", URL: "https://www.yelp.com/biz/bright-smiles"},
		{Title: "Bright Smiles Family Dentistry", URL: "https://brightsmiles.test/"},
	}, nil
}

func setupServer(t *testing.T) (*mcp.ClientSession, *stubResearcher) {
	t.Helper()

	st := store.NewMemory()
	cache := research.NewTranscriptCache(st)
	r := &stubResearcher{store: st}
	srv := NewServer("leadgen_test", "test", Deps{
		Research:    r,
		Search:      stubSearcher{},
		Transcripts: stubTranscripts{cache: cache},
		Cache:       cache,
		Store:       st,
		Outreach:    research.NewOutreach(stubLLM{}, st, 0),
		Pages:       stubPages{},
		Web:         stubWeb{},
	})

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session, r
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content type %T", result.Content[0])
	require.False(t, result.IsError, "%s: %s", name, tc.Text)
	require.NoError(t, json.Unmarshal([]byte(tc.Text), out))
}

func callToolError(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.True(t, result.IsError, "%s: expected tool error", name)
	return result.Content[0].(*mcp.TextContent).Text
}

func TestListTools(t *testing.T) {
	session, _ := setupServer(t)
	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Tools, ToolCount)

	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"industry_research", "industry_knowledge", "research_history", "research_cache_delete",
		"youtube_search", "youtube_transcript", "transcript_cache_stats", "transcript_cache_delete",
		"outreach_draft", "lead_contacts", "lead_website_search",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestIndustryKnowledgeNotFound(t *testing.T) {
	session, _ := setupServer(t)
	var out KnowledgeOutput
	callTool(t, session, "industry_knowledge", map[string]any{"industry": "Plumbing"}, &out)
	assert.False(t, out.Found)
	assert.Equal(t, "Plumbing", out.Industry)
}

func TestResearchThenKnowledgeAndHistory(t *testing.T) {
	session, r := setupServer(t)

	var res ResearchOutput
	callTool(t, session, "industry_research", map[string]any{"industry": "Dentistry", "depth": "Shallow"}, &res)
	assert.Equal(t, "run-1", res.ID)
	assert.Equal(t, "2026-10-01T12:00:00Z", res.Timestamp)
	require.Len(t, res.Insights, 1)
	assert.True(t, r.Last().UseCache, "use_cache defaults to true")
	assert.Equal(t, "shallow", r.Last().Depth)

	var k KnowledgeOutput
	callTool(t, session, "industry_knowledge", map[string]any{"industry": " dentistry "}, &k)
	assert.True(t, k.Found)
	assert.Equal(t, 1, k.TotalInsights)

	var hist ResearchHistoryOutput
	callTool(t, session, "research_history", map[string]any{"industry": "dentistry"}, &hist)
	require.Equal(t, 1, hist.Total)
	assert.Equal(t, 100.0, hist.Results[0].SuccessRate)

	var del ResearchCacheDeleteOutput
	callTool(t, session, "research_cache_delete", map[string]any{"industry": "Dentistry"}, &del)
	assert.Equal(t, int64(1), del.DeletedResults)

	callTool(t, session, "industry_knowledge", map[string]any{"industry": "dentistry"}, &k)
	assert.False(t, k.Found)
}

func TestIndustryResearchErrors(t *testing.T) {
	session, _ := setupServer(t)
	msg := callToolError(t, session, "industry_research", map[string]any{"industry": "broken"})
	assert.Contains(t, msg, "not configured")

	callToolError(t, session, "industry_research", map[string]any{"industry": "  "})
}

func TestResearchHistoryBadSince(t *testing.T) {
	session, _ := setupServer(t)
	callToolError(t, session, "research_history", map[string]any{"since": "yesterday-ish"})
}

func TestYouTubeSearchDefaults(t *testing.T) {
	session, _ := setupServer(t)
	var out YouTubeSearchOutput
	callTool(t, session, "youtube_search", map[string]any{"query": "dental marketing"}, &out)
	assert.Equal(t, "dental marketing", out.Query)
	assert.Len(t, out.Videos, 3)
}

func TestTranscriptToolsRoundTrip(t *testing.T) {
	session, _ := setupServer(t)

	var tr TranscriptOutput
	callTool(t, session, "youtube_transcript", map[string]any{"video": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, &tr)
	assert.True(t, tr.Found)
	assert.Equal(t, "dQw4w9WgXcQ", tr.VideoID)
	assert.Equal(t, string(engine.MethodCaptions), tr.Method)
	assert.Equal(t, len(tr.Transcript), tr.Length)

	var missing TranscriptOutput
	callTool(t, session, "youtube_transcript", map[string]any{"video": "missing0000"}, &missing)
	assert.False(t, missing.Found)

	var stats engine.TranscriptCacheStats
	callTool(t, session, "transcript_cache_stats", map[string]any{}, &stats)
	assert.Equal(t, 1, stats.TotalCached)

	var del TranscriptDeleteOutput
	callTool(t, session, "transcript_cache_delete", map[string]any{"video_id": "dQw4w9WgXcQ"}, &del)
	assert.True(t, del.Deleted)

	callTool(t, session, "transcript_cache_delete", map[string]any{"video_id": "dQw4w9WgXcQ"}, &del)
	assert.False(t, del.Deleted)

	callToolError(t, session, "youtube_transcript", map[string]any{"video": "not a video"})
}

func TestOutreachDraftTool(t *testing.T) {
	session, _ := setupServer(t)
	var out research.OutreachDraft
	callTool(t, session, "outreach_draft", map[string]any{
		"company":  "Bright Smiles",
		"industry": "dentistry",
		"channel":  "linkedin",
	}, &out)
	assert.Equal(t, "Hi there", out.Message)
	assert.Empty(t, out.Subject)

	callToolError(t, session, "outreach_draft", map[string]any{"company": "Bright Smiles", "industry": ""})
}

func TestLeadContactsTool(t *testing.T) {
	session, _ := setupServer(t)
	var out LeadContactsOutput
	callTool(t, session, "lead_contacts", map[string]any{
		"urls": []string{"https://brightsmiles.test/contact", "https://down.test/"},
	}, &out)
	require.Len(t, out.Contacts, 1)
	assert.Equal(t, []string{"hello@brightsmiles.test"}, out.Contacts[0].Emails)
	assert.Contains(t, out.Errors, "https://down.test/")
}

func TestLeadWebsiteSearchTool(t *testing.T) {
	session, _ := setupServer(t)
	var out LeadWebsitesOutput
	callTool(t, session, "lead_website_search", map[string]any{
		"company":       "Bright Smiles",
		"location":      "Austin",
		"scan_contacts": true,
	}, &out)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "brightsmiles.test", out.Candidates[0].Domain)
	require.NotNil(t, out.Contacts)
	assert.Equal(t, []string{"hello@brightsmiles.test"}, out.Contacts.Emails)
	assert.Empty(t, out.ScanError)

	callToolError(t, session, "lead_website_search", map[string]any{"company": ""})
}
