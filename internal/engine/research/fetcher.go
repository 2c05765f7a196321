package research

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/sources"
)

// FetchOptions controls a single transcript fetch.
type FetchOptions struct {
	UseCache  bool
	MinLength int
}

// FetchResult is a transcript together with how it was obtained.
type FetchResult struct {
	Transcript string                  `json:"transcript"`
	Method     engine.TranscriptMethod `json:"method"`
	FromCache  bool                    `json:"from_cache"`
}

// Fetcher returns transcripts, consulting the cache before trying each
// source in order.
type Fetcher struct {
	cache   *TranscriptCache
	sources []sources.TranscriptSource
	timeout time.Duration
}

// NewFetcher builds a fetcher. Sources are tried in the given order.
func NewFetcher(cache *TranscriptCache, srcs []sources.TranscriptSource, timeout time.Duration) *Fetcher {
	return &Fetcher{cache: cache, sources: srcs, timeout: timeout}
}

// Fetch returns the transcript for videoID. ok is false when every source
// failed or produced text shorter than opts.MinLength. An error is returned
// only for an empty id or a cancelled context.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, opts FetchOptions) (FetchResult, bool, error) {
	if videoID == "" {
		return FetchResult{}, false, errors.New("fetch transcript: empty video id")
	}

	if opts.UseCache && f.cache != nil {
		rec, hit, err := f.cache.Get(ctx, videoID)
		switch {
		case err != nil:
			slog.Warn("transcript cache read failed", slog.String("video_id", videoID), slog.Any("error", err))
		case hit:
			if !rec.Consistent() {
				if err := f.cache.Put(ctx, videoID, rec.Transcript, rec.Method); err != nil {
					slog.Warn("transcript cache repair failed", slog.String("video_id", videoID), slog.Any("error", err))
				}
			}
			method := rec.Method
			if method == "" {
				method = engine.MethodUnknown
			}
			return FetchResult{Transcript: rec.Transcript, Method: method, FromCache: true}, true, nil
		}
	}

	for _, src := range f.sources {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, false, err
		}
		text, err := f.fetchFrom(ctx, src, videoID)
		if err != nil {
			slog.Debug("transcript source failed",
				slog.String("video_id", videoID),
				slog.String("method", string(src.Method())),
				slog.Any("error", err))
			continue
		}
		if len(text) < opts.MinLength {
			slog.Debug("transcript too short",
				slog.String("video_id", videoID),
				slog.String("method", string(src.Method())),
				slog.Int("length", len(text)))
			continue
		}

		if f.cache != nil {
			if err := f.cache.Put(ctx, videoID, text, src.Method()); err != nil {
				slog.Warn("transcript cache write failed", slog.String("video_id", videoID), slog.Any("error", err))
			}
		}
		return FetchResult{Transcript: text, Method: src.Method()}, true, nil
	}

	return FetchResult{}, false, nil
}

func (f *Fetcher) fetchFrom(ctx context.Context, src sources.TranscriptSource, videoID string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	text, err := src.Fetch(ctx, videoID)
	if err != nil {
		return "", &TransientExternalError{Op: "transcript " + string(src.Method()), Err: err}
	}
	return text, nil
}
