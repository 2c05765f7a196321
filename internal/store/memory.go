package store

import (
	"context"
	"sort"
	"sync"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// Memory is a process-local Store used in tests and ephemeral runs.
type Memory struct {
	mu          sync.RWMutex
	transcripts map[string]engine.TranscriptRecord
	results     map[string]engine.ResearchResult
	knowledge   map[string]engine.IndustryKnowledge
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		transcripts: make(map[string]engine.TranscriptRecord),
		results:     make(map[string]engine.ResearchResult),
		knowledge:   make(map[string]engine.IndustryKnowledge),
	}
}

func (m *Memory) GetTranscript(_ context.Context, videoID string) (engine.TranscriptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.transcripts[videoID]
	if !ok {
		return engine.TranscriptRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) PutTranscript(_ context.Context, rec engine.TranscriptRecord) error {
	m.mu.Lock()
	m.transcripts[rec.VideoID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteTranscript(_ context.Context, videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.transcripts[videoID]
	delete(m.transcripts, videoID)
	return ok, nil
}

func (m *Memory) TranscriptStats(_ context.Context) (engine.TranscriptCacheStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b := newStatsBuilder()
	for _, rec := range m.transcripts {
		b.add(string(rec.Method), 1, int64(rec.Length))
	}
	return b.result(), nil
}

func (m *Memory) SaveResult(_ context.Context, res engine.ResearchResult) error {
	if res.IndustryKey == "" {
		res.IndustryKey = engine.IndustryKey(res.Industry)
	}
	res.FromCache = false
	m.mu.Lock()
	m.results[res.ID] = res
	m.mu.Unlock()
	return nil
}

func (m *Memory) LatestResult(ctx context.Context, industryKey string) (engine.ResearchResult, error) {
	list, err := m.ListResults(ctx, engine.ResultFilter{Industry: industryKey, Limit: 1})
	if err != nil {
		return engine.ResearchResult{}, err
	}
	if len(list) == 0 {
		return engine.ResearchResult{}, ErrNotFound
	}
	return list[0], nil
}

func (m *Memory) ListResults(_ context.Context, f engine.ResultFilter) ([]engine.ResearchResult, error) {
	key := engine.IndustryKey(f.Industry)
	m.mu.RLock()
	var out []engine.ResearchResult
	for _, r := range m.results {
		if key != "" && r.IndustryKey != key {
			continue
		}
		if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n := listLimit(f.Limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) DeleteIndustry(_ context.Context, industryKey string) (int64, error) {
	key := engine.IndustryKey(industryKey)
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.results {
		if r.IndustryKey == key {
			delete(m.results, id)
			n++
		}
	}
	delete(m.knowledge, key)
	return n, nil
}

func (m *Memory) UpsertKnowledge(_ context.Context, k engine.IndustryKnowledge) error {
	if k.IndustryKey == "" {
		k.IndustryKey = engine.IndustryKey(k.Industry)
	}
	m.mu.Lock()
	m.knowledge[k.IndustryKey] = k
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetKnowledge(_ context.Context, industryKey string) (engine.IndustryKnowledge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.knowledge[engine.IndustryKey(industryKey)]
	if !ok {
		return engine.IndustryKnowledge{}, ErrNotFound
	}
	return k, nil
}

func (m *Memory) Close() error { return nil }
