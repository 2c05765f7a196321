package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

const (
	ytInitialDataMarker = "var ytInitialData = "
	ytSearchFilter      = "EgIQAQ%3D%3D" // videos-only filter param
	ytMaxSearchResults  = 50
)

var videoIDRE = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID pulls the 11-char video ID from any YouTube URL format.
// A bare 11-char ID is returned unchanged.
func ExtractVideoID(raw string) string {
	if m := videoIDRE.FindStringSubmatch(raw); len(m) >= 2 {
		return m[1]
	}
	if bareIDRE.MatchString(raw) {
		return raw
	}
	return ""
}

var bareIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// --- YouTube Data API v3 types ---

type ytDataSearchResp struct {
	Items []ytDataItem `json:"items"`
}

type ytDataItem struct {
	ID      ytDataItemID      `json:"id"`
	Snippet ytDataItemSnippet `json:"snippet"`
}

type ytDataItemID struct {
	VideoID string `json:"videoId"`
}

type ytDataItemSnippet struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
}

type ytRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r ytRuns) first() string {
	if len(r.Runs) == 0 {
		return ""
	}
	return r.Runs[0].Text
}

func (r ytRuns) join() string {
	var sb strings.Builder
	for _, run := range r.Runs {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// --- ytInitialData scraping types ---

type ytVideoRenderer struct {
	VideoID            string  `json:"videoId"`
	Title              ytRuns  `json:"title"`
	OwnerText          ytRuns  `json:"ownerText"`
	DescriptionSnippet *ytRuns `json:"descriptionSnippet"`
}

// Search returns up to maxResults videos for query in index ranking order.
// Uses YouTube Data API v3 when a key is configured; otherwise scrapes ytInitialData.
func (y *YouTube) Search(ctx context.Context, query string, maxResults int) ([]engine.VideoCandidate, error) {
	if maxResults <= 0 {
		maxResults = 1
	}
	if maxResults > ytMaxSearchResults {
		maxResults = ytMaxSearchResults
	}

	key := engine.CacheKey("yt_search", query, strconv.Itoa(maxResults))
	if cached, ok := engine.CacheLoadJSON[[]engine.VideoCandidate](ctx, y.cache, key); ok {
		return cached, nil
	}

	engine.IncrYouTubeSearch()
	var (
		videos []engine.VideoCandidate
		err    error
	)
	if len(y.apiKeys) > 0 {
		videos, err = y.searchDataAPI(ctx, query, maxResults)
	} else {
		videos, err = y.searchInitialData(ctx, query, maxResults)
	}
	if err != nil {
		return nil, err
	}

	if len(videos) > 0 {
		engine.CacheStoreJSON(ctx, y.cache, key, videos, y.cacheTTL)
	}
	return videos, nil
}

// searchDataAPI searches via YouTube Data API v3.
// Falls back to the secondary key when the primary fails (quota 403).
func (y *YouTube) searchDataAPI(ctx context.Context, query string, limit int) ([]engine.VideoCandidate, error) {
	var lastErr error
	for i, key := range y.apiKeys {
		videos, err := y.doDataSearch(ctx, query, limit, key)
		if err == nil {
			return videos, nil
		}
		lastErr = err
		if i+1 < len(y.apiKeys) {
			slog.Warn("youtube data API key failed, trying fallback", slog.Any("error", err))
		}
	}
	return nil, lastErr
}

func (y *YouTube) doDataSearch(ctx context.Context, query string, limit int, apiKey string) ([]engine.VideoCandidate, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("key", apiKey)

	if err := y.wait(ctx); err != nil {
		return nil, err
	}

	apiURL := y.apiBase + "/search?" + params.Encode()
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("youtube data API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("youtube data API %d: %s", resp.StatusCode, string(body))
	}

	var result ytDataSearchResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube data API: %w", err)
	}

	videos := make([]engine.VideoCandidate, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, engine.VideoCandidate{
			ID:           item.ID.VideoID,
			Title:        engine.CleanHTML(item.Snippet.Title),
			ChannelTitle: item.Snippet.ChannelTitle,
			URL:          y.watchURL(item.ID.VideoID),
			Description:  engine.TruncateRunes(item.Snippet.Description, 200, ""),
		})
	}
	return videos, nil
}

// searchInitialData scrapes YouTube search results by parsing ytInitialData.
func (y *YouTube) searchInitialData(ctx context.Context, query string, limit int) ([]engine.VideoCandidate, error) {
	searchURL := y.webBase + "/results?search_query=" + url.QueryEscape(query) + "&sp=" + ytSearchFilter

	body, err := y.getHTML(ctx, searchURL, 4*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}

	idx := strings.Index(string(body), ytInitialDataMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialData not found in YouTube search response")
	}
	jsonData := extractJSON(body[idx+len(ytInitialDataMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialData JSON")
	}
	return y.extractVideosFromInitialData(jsonData, limit), nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	esc := false
	for i, c := range b {
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// extractVideosFromInitialData streams ytInitialData JSON and collects
// videoRenderer entries in document order.
func (y *YouTube) extractVideosFromInitialData(data []byte, limit int) []engine.VideoCandidate {
	var results []engine.VideoCandidate
	seen := make(map[string]bool)

	dec := json.NewDecoder(bytes.NewReader(data))
	for len(results) < limit {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if key, ok := tok.(string); !ok || key != "videoRenderer" {
			continue
		}
		var vr ytVideoRenderer
		if err := dec.Decode(&vr); err != nil {
			break
		}
		if vc, ok := y.candidateFromRenderer(vr); ok && !seen[vc.ID] {
			seen[vc.ID] = true
			results = append(results, vc)
		}
	}
	return results
}

func (y *YouTube) candidateFromRenderer(vr ytVideoRenderer) (engine.VideoCandidate, bool) {
	if vr.VideoID == "" {
		return engine.VideoCandidate{}, false
	}
	desc := ""
	if vr.DescriptionSnippet != nil {
		desc = vr.DescriptionSnippet.join()
	}
	return engine.VideoCandidate{
		ID:           vr.VideoID,
		Title:        vr.Title.first(),
		ChannelTitle: vr.OwnerText.first(),
		URL:          y.watchURL(vr.VideoID),
		Description:  engine.TruncateRunes(desc, 200, ""),
	}, true
}
