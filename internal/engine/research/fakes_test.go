package research

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

type fakeSource struct {
	method engine.TranscriptMethod
	texts  map[string]string
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Method() engine.TranscriptMethod { return f.method }

func (f *fakeSource) Fetch(_ context.Context, videoID string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	text, ok := f.texts[videoID]
	if !ok {
		return "", errors.New("no captions")
	}
	return text, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSearcher struct {
	results map[string][]engine.VideoCandidate
	errs    map[string]error

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]engine.VideoCandidate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeSearcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeChannels struct {
	videos map[string][]engine.VideoCandidate
}

func (f *fakeChannels) ChannelVideos(_ context.Context, channelID string, _ int) ([]engine.VideoCandidate, error) {
	return f.videos[channelID], nil
}

// fakeCompleter answers with the first reply whose key occurs in the prompt.
type fakeCompleter struct {
	replies  map[string]string
	fallback string
	err      error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int, _ float64) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	for key, reply := range f.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return f.fallback, nil
}

func (f *fakeCompleter) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type fakeAnalyzer struct {
	results map[string]AnalysisResult
	errs    map[string]error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _, _ string, video engine.VideoCandidate) (AnalysisResult, error) {
	if err := f.errs[video.ID]; err != nil {
		return AnalysisResult{}, err
	}
	return f.results[video.ID], nil
}

func video(id, title string) engine.VideoCandidate {
	return engine.VideoCandidate{ID: id, Title: title, ChannelTitle: "Growth Channel"}
}

func longText(seed string) string {
	return strings.Repeat(seed+" ", 200/len(seed)+20)
}
