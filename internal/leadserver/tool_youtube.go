package leadserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/sources"
	"github.com/msaym22/final-lead-gen-sub001/internal/toolutil"
)

func registerYouTubeSearch(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_search",
		Description: "Search YouTube videos. Uses the Data API when a key is configured, otherwise the public results page. Returns video IDs, titles and channels.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input YouTubeSearchInput) (*mcp.CallToolResult, *YouTubeSearchOutput, error) {
		q := strings.TrimSpace(input.Query)
		if q == "" {
			return nil, nil, errors.New("query is required")
		}
		max := input.MaxResults
		if max <= 0 {
			max = 10
		}
		videos, err := d.Search.Search(ctx, q, max)
		if err != nil {
			return nil, nil, err
		}
		if videos == nil {
			videos = []engine.VideoCandidate{}
		}
		return nil, &YouTubeSearchOutput{Query: q, Videos: videos}, nil
	})
}

func registerYouTubeTranscript(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Get the transcript of a YouTube video. Tries manual captions first, then auto-generated captions, and caches the result by video ID. Returns found=false when no transcript is available.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, *TranscriptOutput, error) {
		id := sources.ExtractVideoID(input.Video)
		if id == "" {
			return nil, nil, fmt.Errorf("invalid video %q: want a YouTube URL or 11-character ID", input.Video)
		}
		res, ok, err := d.Transcripts.Fetch(ctx, id, research.FetchOptions{
			UseCache:  toolutil.BoolOr(input.UseCache, true),
			MinLength: input.MinLength,
		})
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, &TranscriptOutput{VideoID: id}, nil
		}
		return nil, &TranscriptOutput{
			VideoID:    id,
			Found:      true,
			Method:     string(res.Method),
			FromCache:  res.FromCache,
			Length:     len(res.Transcript),
			Transcript: res.Transcript,
		}, nil
	})
}

func registerTranscriptCacheStats(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_cache_stats",
		Description: "Summarise the transcript cache: number of cached videos, total and average transcript length, and a count per retrieval method.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, *engine.TranscriptCacheStats, error) {
		stats, err := d.Cache.Stats(ctx)
		if err != nil {
			return nil, nil, err
		}
		return nil, &stats, nil
	})
}

func registerTranscriptCacheDelete(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_cache_delete",
		Description: "Remove one video's cached transcript so the next fetch retrieves it again.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input VideoIDInput) (*mcp.CallToolResult, *TranscriptDeleteOutput, error) {
		id := sources.ExtractVideoID(input.VideoID)
		if id == "" {
			return nil, nil, fmt.Errorf("invalid video_id %q", input.VideoID)
		}
		deleted, err := d.Cache.Delete(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return nil, &TranscriptDeleteOutput{VideoID: id, Deleted: deleted}, nil
	})
}
