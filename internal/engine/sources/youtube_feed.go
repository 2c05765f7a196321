package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// ChannelVideos lists a channel's most recent uploads from its public RSS feed.
// The feed carries at most 15 entries.
func (y *YouTube) ChannelVideos(ctx context.Context, channelID string, limit int) ([]engine.VideoCandidate, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel feed: empty channel id")
	}
	engine.IncrYouTubeFeed()

	if err := y.wait(ctx); err != nil {
		return nil, err
	}

	feedURL := y.webBase + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept", "application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("channel feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel feed HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read channel feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse channel feed: %w", err)
	}

	var videos []engine.VideoCandidate
	for _, item := range feed.Items {
		if limit > 0 && len(videos) >= limit {
			break
		}
		id := feedVideoID(item)
		if id == "" {
			continue
		}
		channel := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			channel = item.Author.Name
		}
		videos = append(videos, engine.VideoCandidate{
			ID:           id,
			Title:        item.Title,
			ChannelTitle: channel,
			URL:          y.watchURL(id),
			Description:  engine.TruncateRunes(item.Description, 200, ""),
		})
	}
	return videos, nil
}

// feedVideoID reads yt:videoId, falling back to the entry link.
func feedVideoID(item *gofeed.Item) string {
	if ext, ok := item.Extensions["yt"]; ok {
		if vals := ext["videoId"]; len(vals) > 0 && vals[0].Value != "" {
			return vals[0].Value
		}
	}
	return ExtractVideoID(item.Link)
}
