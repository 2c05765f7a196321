package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// Transcript sources, tried by the fetcher in a fixed order:
//   captions:     manually authored caption tracks (watch page, then ANDROID player)
//   asr-fallback: auto-generated tracks, then the engagement-panel transcript

// TranscriptSource retrieves a transcript using one technique.
type TranscriptSource interface {
	Method() engine.TranscriptMethod
	Fetch(ctx context.Context, videoID string) (string, error)
}

var (
	errNoCaptions    = errors.New("no captions")
	errNoUsableTrack = errors.New("no usable caption track")
)

const (
	ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "
	tracksCacheTTL                = 10 * time.Minute
)

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// CaptionsSource fetches manually authored caption tracks.
type CaptionsSource struct{ yt *YouTube }

// ASRSource fetches auto-generated speech-recognition transcripts.
type ASRSource struct{ yt *YouTube }

// Captions returns the manual-captions transcript source.
func (y *YouTube) Captions() *CaptionsSource { return &CaptionsSource{yt: y} }

// ASR returns the auto-generated transcript source.
func (y *YouTube) ASR() *ASRSource { return &ASRSource{yt: y} }

// TranscriptSources returns every source in preference order.
func (y *YouTube) TranscriptSources() []TranscriptSource {
	return []TranscriptSource{y.Captions(), y.ASR()}
}

func (s *CaptionsSource) Method() engine.TranscriptMethod { return engine.MethodCaptions }

// Fetch tries the watch page tracks, then the ANDROID player tracks.
func (s *CaptionsSource) Fetch(ctx context.Context, videoID string) (string, error) {
	engine.IncrYouTubeTranscript()
	y := s.yt

	tracks, err := y.watchPageTracks(ctx, videoID)
	if err == nil {
		if track, ok := pickTrack(tracks, y.langs, false); ok {
			return y.fetchTimedText(ctx, track.BaseURL)
		}
	} else {
		slog.Debug("youtube: watch page tracks failed, trying player",
			slog.String("id", videoID), slog.Any("error", err))
	}

	tracks, err = y.playerTracks(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("captions: %w", err)
	}
	track, ok := pickTrack(tracks, y.langs, false)
	if !ok {
		return "", fmt.Errorf("captions: %w", errNoUsableTrack)
	}
	return y.fetchTimedText(ctx, track.BaseURL)
}

func (s *ASRSource) Method() engine.TranscriptMethod { return engine.MethodASRFallback }

// Fetch tries auto-generated watch page tracks, then the engagement panel.
func (s *ASRSource) Fetch(ctx context.Context, videoID string) (string, error) {
	engine.IncrYouTubeTranscript()
	y := s.yt

	if tracks, err := y.watchPageTracks(ctx, videoID); err == nil {
		if track, ok := pickTrack(tracks, y.langs, true); ok {
			if text, err := y.fetchTimedText(ctx, track.BaseURL); err == nil && text != "" {
				return text, nil
			}
		}
	}

	text, err := y.fetchViaEngagementPanel(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("asr: %w", err)
	}
	return text, nil
}

// watchPageTracks scrapes ytInitialPlayerResponse from the watch page.
// Track lists are cached briefly so both sources share one page load.
func (y *YouTube) watchPageTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	key := engine.CacheKey("yt_tracks", videoID)
	if tracks, ok := engine.CacheLoadJSON[[]captionTrack](ctx, y.cache, key); ok {
		return tracks, nil
	}

	body, err := y.getHTML(ctx, y.watchURL(videoID), 6*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	tracks := playerResp.tracks()
	if len(tracks) == 0 {
		return nil, errNoCaptions
	}
	engine.CacheStoreJSON(ctx, y.cache, key, tracks, tracksCacheTTL)
	return tracks, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects the best usable track of the requested kind
// (auto-generated when asr is true, manual otherwise).
func pickTrack(tracks []captionTrack, langs []string, asr bool) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.auto() == asr && t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func (y *YouTube) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	if strings.HasPrefix(baseURL, "/") {
		baseURL = y.webBase + baseURL
	}
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		return y.client.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", err
	}

	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		text := engine.CollapseWhitespace(engine.CleanHTML(line.Text))
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", errors.New("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments extracts plain text from a /get_transcript JSON response.
func parseTranscriptSegments(resp ytGetTranscriptResp) string {
	var sb strings.Builder
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				if run.Text != "" {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(run.Text)
				}
			}
		}
	}
	return sb.String()
}

// fetchViaEngagementPanel fetches a transcript via:
//  1. POST /next → engagementPanels containing the transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
//
// Works from datacenter IPs where /player returns LOGIN_REQUIRED.
func (y *YouTube) fetchViaEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitorData := generateVisitorData()

	nextData, err := y.postInnertubeWEB(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	transcriptData, err := y.postInnertubeWEB(ctx, ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}

	text := parseTranscriptSegments(transcriptResp)
	if text == "" {
		return "", errors.New("empty transcript segments")
	}
	return text, nil
}
