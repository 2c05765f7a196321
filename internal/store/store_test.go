package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "research.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

// runSuite exercises the Store contract. It is shared with the integration
// tests for the networked backends.
func runSuite(t *testing.T, s Store) {
	t.Run("transcripts", func(t *testing.T) { testTranscripts(t, s) })
	t.Run("results", func(t *testing.T) { testResults(t, s) })
	t.Run("knowledge", func(t *testing.T) { testKnowledge(t, s) })
}

func TestStoreBackends(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { runSuite(t, s) })
	}
}

func testTranscripts(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.GetTranscript(ctx, "missing0001")
	assert.ErrorIs(t, err, ErrNotFound)

	first := engine.NewTranscriptRecord("vid00000001", "short text", engine.MethodCaptions, now)
	require.NoError(t, s.PutTranscript(ctx, first))

	second := engine.NewTranscriptRecord("vid00000001", "a considerably longer transcript", engine.MethodASRFallback, now.Add(time.Hour))
	require.NoError(t, s.PutTranscript(ctx, second))

	got, err := s.GetTranscript(ctx, "vid00000001")
	require.NoError(t, err)
	assert.Equal(t, second.Transcript, got.Transcript)
	assert.Equal(t, engine.MethodASRFallback, got.Method)
	assert.Equal(t, len(second.Transcript), got.Length)
	assert.True(t, got.CachedAt.Equal(second.CachedAt), "cached_at %v != %v", got.CachedAt, second.CachedAt)
	assert.True(t, got.Consistent())

	require.NoError(t, s.PutTranscript(ctx, engine.NewTranscriptRecord("vid00000002", "0123456789", engine.MethodCaptions, now)))

	stats, err := s.TranscriptStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCached)
	assert.Equal(t, int64(len(second.Transcript)+10), stats.TotalLength)
	assert.InDelta(t, float64(len(second.Transcript)+10)/2, stats.AverageLength, 0.001)
	assert.Equal(t, map[string]int{"captions": 1, "asr-fallback": 1}, stats.Methods)

	found, err := s.DeleteTranscript(ctx, "vid00000001")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = s.DeleteTranscript(ctx, "vid00000001")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.GetTranscript(ctx, "vid00000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testResults(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.LatestResult(ctx, "dentistry")
	assert.ErrorIs(t, err, ErrNotFound)

	mk := func(id, industry string, ts time.Time) engine.ResearchResult {
		return engine.ResearchResult{
			ID:          id,
			Industry:    industry,
			IndustryKey: engine.IndustryKey(industry),
			Timestamp:   ts,
			Depth:       "shallow",
			Insights:    []engine.InsightItem{{Text: "Use video testimonials", Confidence: 8}},
			AISummary:   "summary " + id,
		}
	}
	require.NoError(t, s.SaveResult(ctx, mk("r1", "Dentistry", base)))
	require.NoError(t, s.SaveResult(ctx, mk("r2", "dentistry ", base.Add(2*time.Hour))))
	require.NoError(t, s.SaveResult(ctx, mk("r3", "Roofing", base.Add(time.Hour))))

	latest, err := s.LatestResult(ctx, "DENTISTRY")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
	assert.Equal(t, "dentistry", latest.IndustryKey)
	assert.False(t, latest.FromCache)
	require.Len(t, latest.Insights, 1)
	assert.Equal(t, 8, latest.Insights[0].Confidence)

	all, err := s.ListResults(ctx, engine.ResultFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r2", "r3", "r1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	since, err := s.ListResults(ctx, engine.ResultFilter{Since: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	limited, err := s.ListResults(ctx, engine.ResultFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.UpsertKnowledge(ctx, engine.IndustryKnowledge{Industry: "Dentistry", IndustryKey: "dentistry"}))
	n, err := s.DeleteIndustry(ctx, "Dentistry")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.LatestResult(ctx, "dentistry")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetKnowledge(ctx, "dentistry")
	assert.ErrorIs(t, err, ErrNotFound)

	rest, err := s.ListResults(ctx, engine.ResultFilter{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "r3", rest[0].ID)
}

func testKnowledge(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetKnowledge(ctx, "saas")
	assert.ErrorIs(t, err, ErrNotFound)

	k := engine.IndustryKnowledge{
		Industry:        "SaaS",
		IndustryKey:     "saas",
		LastUpdated:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		TotalInsights:   2,
		TopInsights:     []engine.InsightItem{{Text: "Free trials convert", Confidence: 9}},
		ResearchSummary: "first",
	}
	require.NoError(t, s.UpsertKnowledge(ctx, k))

	k.ResearchSummary = "second"
	k.TotalInsights = 5
	require.NoError(t, s.UpsertKnowledge(ctx, k))

	got, err := s.GetKnowledge(ctx, "SaaS")
	require.NoError(t, err)
	assert.Equal(t, "second", got.ResearchSummary)
	assert.Equal(t, 5, got.TotalInsights)
	assert.Equal(t, "saas", got.IndustryKey)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, engine.Config{StoreBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	path := filepath.Join(t.TempDir(), "r.db")
	s, err = Open(ctx, engine.Config{SQLitePath: path})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, engine.Config{StoreBackend: "cassandra"})
	assert.Error(t, err)
}

func TestDefaultSQLitePath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/.leadgen/research.db", DefaultSQLitePath())
}

func TestListLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultListLimit},
		{-3, defaultListLimit},
		{5, 5},
		{1000, maxListLimit},
	}
	for _, tt := range tests {
		if got := listLimit(tt.in); got != tt.want {
			t.Errorf("listLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
