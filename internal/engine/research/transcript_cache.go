package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
)

// TranscriptStore is the persistence surface the transcript cache needs.
type TranscriptStore interface {
	GetTranscript(ctx context.Context, videoID string) (engine.TranscriptRecord, error)
	PutTranscript(ctx context.Context, rec engine.TranscriptRecord) error
	DeleteTranscript(ctx context.Context, videoID string) (bool, error)
	TranscriptStats(ctx context.Context) (engine.TranscriptCacheStats, error)
}

// TranscriptCache maps video IDs to previously fetched transcripts.
// Records are retained until deleted explicitly.
type TranscriptCache struct {
	store TranscriptStore
	now   func() time.Time
}

// NewTranscriptCache wraps a store.
func NewTranscriptCache(s TranscriptStore) *TranscriptCache {
	return &TranscriptCache{store: s, now: time.Now}
}

// Get returns the cached record. A missing record is (zero, false, nil).
func (c *TranscriptCache) Get(ctx context.Context, videoID string) (engine.TranscriptRecord, bool, error) {
	rec, err := c.store.GetTranscript(ctx, videoID)
	if errors.Is(err, store.ErrNotFound) {
		engine.IncrTranscriptCacheMiss()
		return engine.TranscriptRecord{}, false, nil
	}
	if err != nil {
		return engine.TranscriptRecord{}, false, fmt.Errorf("transcript cache get %s: %w", videoID, err)
	}
	engine.IncrTranscriptCacheHit()
	return rec, true, nil
}

// Put upserts the record for videoID, overwriting every field.
// CachedAt and Length are recomputed.
func (c *TranscriptCache) Put(ctx context.Context, videoID, transcript string, method engine.TranscriptMethod) error {
	rec := engine.NewTranscriptRecord(videoID, transcript, method, c.now())
	if err := c.store.PutTranscript(ctx, rec); err != nil {
		return fmt.Errorf("transcript cache put %s: %w", videoID, err)
	}
	return nil
}

// Delete removes the record and reports whether it existed.
func (c *TranscriptCache) Delete(ctx context.Context, videoID string) (bool, error) {
	found, err := c.store.DeleteTranscript(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("transcript cache delete %s: %w", videoID, err)
	}
	return found, nil
}

// Stats aggregates totals and the method histogram over every record.
func (c *TranscriptCache) Stats(ctx context.Context) (engine.TranscriptCacheStats, error) {
	stats, err := c.store.TranscriptStats(ctx)
	if err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("transcript cache stats: %w", err)
	}
	return stats, nil
}
