package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_ConfidenceFilter(t *testing.T) {
	llm := &fakeCompleter{fallback: `{"insights":[
		{"text":"c3","confidence":3},
		{"text":"c5","confidence":5},
		{"text":"c6","confidence":6},
		{"text":"c8","confidence":8},
		{"text":"c10","confidence":10}
	]}`}
	a := NewAnalyzer(llm, 0)

	res, err := a.Analyze(context.Background(), "transcript", "SaaS", video("abc123def45", "Title"))
	require.NoError(t, err)

	var got []int
	for _, it := range res.Insights {
		got = append(got, it.Confidence)
	}
	assert.Equal(t, []int{6, 8, 10}, got)
}

func TestAnalyze_PromptCarriesContext(t *testing.T) {
	llm := &fakeCompleter{fallback: `{"insights":[]}`}
	a := NewAnalyzer(llm, 0)

	transcript := strings.Repeat("ж", MaxTranscriptRunes+500)
	_, err := a.Analyze(context.Background(), transcript, "Dentistry", engine.VideoCandidate{
		ID: "abc123def45", Title: "Patient Growth Secrets", ChannelTitle: "Dental Marketing Pro",
	})
	require.NoError(t, err)

	prompts := llm.Prompts()
	require.Len(t, prompts, 1)
	p := prompts[0]
	assert.Contains(t, p, "Dentistry")
	assert.Contains(t, p, "Patient Growth Secrets")
	assert.Contains(t, p, "Dental Marketing Pro")
	assert.Equal(t, MaxTranscriptRunes, strings.Count(p, "ж"))
}

func TestAnalyze_LLMErrorIsTransient(t *testing.T) {
	a := NewAnalyzer(&fakeCompleter{err: errors.New("429 quota")}, 0)
	_, err := a.Analyze(context.Background(), "t", "SaaS", video("abc123def45", "T"))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		malformed bool
		check     func(t *testing.T, r AnalysisResult)
	}{
		{name: "prose only", raw: "I cannot help with that.", malformed: true},
		{name: "no known keys", raw: `{"answer":"yes"}`, malformed: true},
		{name: "category not array", raw: `{"insights":"lots"}`, malformed: true},
		{name: "broken json", raw: `{"insights":[{"text":"a",}]}`, malformed: true},
		{
			name: "wrapped in prose",
			raw:  "Sure! Here it is:\n{\"strategies\":[{\"text\":\"Offer a free audit\",\"confidence\":7}]}\nThanks",
			check: func(t *testing.T, r AnalysisResult) {
				require.Len(t, r.Strategies, 1)
				assert.Equal(t, "Offer a free audit", r.Strategies[0].Text)
			},
		},
		{
			name: "confidence variants",
			raw: `{"insights":[
				{"text":"string","confidence":"7"},
				{"text":"float","confidence":7.6},
				{"text":"missing"},
				{"text":"too high","confidence":11},
				{"text":"negative","confidence":-1},
				{"text":"   ","confidence":9},
				{"text":"null","confidence":null}
			]}`,
			check: func(t *testing.T, r AnalysisResult) {
				require.Len(t, r.Insights, 2)
				assert.Equal(t, 7, r.Insights[0].Confidence)
				assert.Equal(t, 8, r.Insights[1].Confidence)
			},
		},
		{
			name: "snake case aliases",
			raw:  `{"pain_points":[{"text":"No-shows","confidence":9}],"relevance_score":14}`,
			check: func(t *testing.T, r AnalysisResult) {
				require.Len(t, r.PainPoints, 1)
				assert.Equal(t, 10, r.RelevanceScore)
			},
		},
		{
			name: "null category",
			raw:  `{"insights":null,"approaches":[{"text":"Loom video intro","relevance":"personal","application":"send before call","confidence":6}]}`,
			check: func(t *testing.T, r AnalysisResult) {
				assert.Empty(t, r.Insights)
				require.Len(t, r.Approaches, 1)
				assert.Equal(t, "send before call", r.Approaches[0].Application)
				assert.Equal(t, 1, r.Count())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseAnalysis(tt.raw)
			if tt.malformed {
				require.Error(t, err)
				assert.True(t, IsMalformed(err), "want MalformedResponseError, got %T", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}
