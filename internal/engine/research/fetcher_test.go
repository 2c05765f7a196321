package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/sources"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(srcs ...sources.TranscriptSource) (*Fetcher, *store.Memory) {
	mem := store.NewMemory()
	return NewFetcher(NewTranscriptCache(mem), srcs, time.Second), mem
}

func TestFetcher_Idempotent(t *testing.T) {
	ctx := context.Background()
	text := longText("pricing")
	captions := &fakeSource{method: engine.MethodCaptions, texts: map[string]string{"abc123def45": text}}
	f, _ := newTestFetcher(captions)

	first, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{UseCache: true, MinLength: 100})
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, first.FromCache)
	assert.Equal(t, engine.MethodCaptions, first.Method)

	second, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{UseCache: true, MinLength: 100})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Transcript, second.Transcript)
	assert.Equal(t, first.Method, second.Method)
	assert.Equal(t, 1, captions.Calls(), "second fetch must be served from cache")
}

func TestFetcher_FallsBackInOrder(t *testing.T) {
	ctx := context.Background()
	captions := &fakeSource{method: engine.MethodCaptions, err: errors.New("captions disabled")}
	asr := &fakeSource{method: engine.MethodASRFallback, texts: map[string]string{"abc123def45": longText("auto")}}
	f, mem := newTestFetcher(captions, asr)

	res, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{UseCache: true, MinLength: 100})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, engine.MethodASRFallback, res.Method)
	assert.Equal(t, 1, captions.Calls())
	assert.Equal(t, 1, asr.Calls())

	rec, err := mem.GetTranscript(ctx, "abc123def45")
	require.NoError(t, err)
	assert.Equal(t, engine.MethodASRFallback, rec.Method)
	assert.Equal(t, len(rec.Transcript), rec.Length)
}

func TestFetcher_TooShortIsAbsent(t *testing.T) {
	ctx := context.Background()
	captions := &fakeSource{method: engine.MethodCaptions, texts: map[string]string{"abc123def45": "too short"}}
	f, mem := newTestFetcher(captions)

	_, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{UseCache: true, MinLength: 100})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = mem.GetTranscript(ctx, "abc123def45")
	assert.ErrorIs(t, err, store.ErrNotFound, "short transcripts are not cached")
}

func TestFetcher_AllSourcesFail(t *testing.T) {
	f, _ := newTestFetcher(
		&fakeSource{method: engine.MethodCaptions, err: errors.New("403")},
		&fakeSource{method: engine.MethodASRFallback, err: errors.New("timeout")},
	)
	_, ok, err := f.Fetch(context.Background(), "abc123def45", FetchOptions{UseCache: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetcher_EmptyID(t *testing.T) {
	f, _ := newTestFetcher()
	_, _, err := f.Fetch(context.Background(), "", FetchOptions{})
	assert.Error(t, err)
}

func TestFetcher_CancelledContext(t *testing.T) {
	f, _ := newTestFetcher(&fakeSource{method: engine.MethodCaptions, texts: map[string]string{"abc123def45": longText("x")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestFetcher_BypassCacheStillWrites(t *testing.T) {
	ctx := context.Background()
	captions := &fakeSource{method: engine.MethodCaptions, texts: map[string]string{"abc123def45": longText("fresh")}}
	f, mem := newTestFetcher(captions)
	require.NoError(t, mem.PutTranscript(ctx, engine.NewTranscriptRecord("abc123def45", longText("stale"), engine.MethodCaptions, time.Now())))

	res, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{UseCache: false, MinLength: 10})
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, res.FromCache)
	assert.True(t, strings.HasPrefix(res.Transcript, "fresh"))

	rec, err := mem.GetTranscript(ctx, "abc123def45")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.Transcript, "fresh"))
}

func TestFetcher_RepairsInconsistentRecord(t *testing.T) {
	ctx := context.Background()
	f, mem := newTestFetcher()
	text := longText("repair")
	require.NoError(t, mem.PutTranscript(ctx, engine.TranscriptRecord{
		VideoID:    "abc123def45",
		Transcript: text,
		Method:     engine.MethodCaptions,
		Length:     3,
	}))

	res, ok, err := f.Fetch(ctx, "abc123def45", FetchOptions{UseCache: true})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.FromCache)

	rec, err := mem.GetTranscript(ctx, "abc123def45")
	require.NoError(t, err)
	assert.Equal(t, len(text), rec.Length)
	assert.False(t, rec.CachedAt.IsZero())
}

func TestTranscriptCache_Upsert(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewTranscriptCache(mem)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	_, hit, err := c.Get(ctx, "abc123def45")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Put(ctx, "abc123def45", "first", engine.MethodCaptions))
	require.NoError(t, c.Put(ctx, "abc123def45", "second version", engine.MethodASRFallback))

	rec, hit, err := c.Get(ctx, "abc123def45")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "second version", rec.Transcript)
	assert.Equal(t, len("second version"), rec.Length)
	assert.Equal(t, engine.MethodASRFallback, rec.Method)
	assert.Equal(t, c.now(), rec.CachedAt)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCached)
	assert.Equal(t, map[string]int{"asr-fallback": 1}, stats.Methods)

	found, err := c.Delete(ctx, "abc123def45")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = c.Delete(ctx, "abc123def45")
	require.NoError(t, err)
	assert.False(t, found)
}
