package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

func newTestYouTube(t *testing.T, srv *httptest.Server, cfg engine.Config, opts ...Option) *YouTube {
	t.Helper()
	cfg.HTTPClient = srv.Client()
	opts = append([]Option{WithEndpoints(srv.URL+"/youtube/v3", srv.URL)}, opts...)
	return NewYouTube(cfg, opts...)
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ&t=30", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/watch?v=short", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExtractVideoID(tt.in); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};var x`, `{"a":1}`},
		{"nested", `{"a":{"b":"}"}} trailing`, `{"a":{"b":"}"}}`},
		{"escaped backslash before quote", `{"a":"x\\"}rest`, `{"a":"x\\"}`},
		{"not object", `[1,2]`, ""},
		{"unterminated", `{"a":1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(extractJSON([]byte(tt.in))); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSearchDataAPIFallbackKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/youtube/v3/search" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") == "primary" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"errors":[{"reason":"quotaExceeded"}]}}`))
			return
		}
		if got := r.URL.Query().Get("maxResults"); got != "2" {
			t.Errorf("maxResults = %q, want 2", got)
		}
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"AAAAAAAAAAA"},"snippet":{"title":"Cold email that converts","channelTitle":"Growth Lab","description":"d1"}},
			{"id":{},"snippet":{"title":"playlist"}},
			{"id":{"videoId":"BBBBBBBBBBB"},"snippet":{"title":"Tom &amp; Jerry ads","channelTitle":"Ad School"}}
		]}`))
	}))
	defer srv.Close()

	yt := newTestYouTube(t, srv, engine.Config{YouTubeAPIKey: "primary", YouTubeAPIKeyFallback: "backup"})
	videos, err := yt.Search(context.Background(), "saas marketing", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}
	if videos[0].ID != "AAAAAAAAAAA" || videos[0].ChannelTitle != "Growth Lab" {
		t.Errorf("unexpected first video: %+v", videos[0])
	}
	if videos[1].Title != "Tom & Jerry ads" {
		t.Errorf("title not unescaped: %q", videos[1].Title)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSearchAllKeysFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	yt := newTestYouTube(t, srv, engine.Config{YouTubeAPIKey: "a", YouTubeAPIKeyFallback: "b"})
	if _, err := yt.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error when every key fails")
	}
}

func TestSearchInitialDataScrape(t *testing.T) {
	initial := map[string]any{
		"contents": map[string]any{
			"sectionListRenderer": map[string]any{
				"contents": []any{
					map[string]any{"videoRenderer": map[string]any{
						"videoId":   "CCCCCCCCCCC",
						"title":     map[string]any{"runs": []any{map[string]any{"text": "Dental marketing 101"}}},
						"ownerText": map[string]any{"runs": []any{map[string]any{"text": "Practice Growth"}}},
					}},
					map[string]any{"adSlotRenderer": map[string]any{}},
					map[string]any{"videoRenderer": map[string]any{
						"videoId":            "DDDDDDDDDDD",
						"title":              map[string]any{"runs": []any{map[string]any{"text": "Patient psychology"}}},
						"ownerText":          map[string]any{"runs": []any{map[string]any{"text": "Chairside"}}},
						"descriptionSnippet": map[string]any{"runs": []any{map[string]any{"text": "why "}, map[string]any{"text": "patients say yes"}}},
					}},
					map[string]any{"videoRenderer": map[string]any{"videoId": "EEEEEEEEEEE"}},
				},
			},
		},
	}
	payload, _ := json.Marshal(initial)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/results" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><script>var ytInitialData = %s;</script></html>`, payload)
	}))
	defer srv.Close()

	cache := engine.NewCache("", time.Minute, 100, time.Minute)
	defer cache.Close()

	yt := newTestYouTube(t, srv, engine.Config{}, WithCache(cache, time.Minute))
	videos, err := yt.Search(context.Background(), "dentist marketing", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}
	if videos[0].ID != "CCCCCCCCCCC" || videos[1].ID != "DDDDDDDDDDD" {
		t.Errorf("order not preserved: %s, %s", videos[0].ID, videos[1].ID)
	}
	if videos[1].Description != "why patients say yes" {
		t.Errorf("description = %q", videos[1].Description)
	}

	if _, err := yt.Search(context.Background(), "dentist marketing", 2); err != nil {
		t.Fatalf("cached Search: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected second search to be served from cache, hits=%d", hits.Load())
	}
}

func TestSearchClampsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxResults"); got != "50" {
			t.Errorf("maxResults = %q, want 50", got)
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	yt := newTestYouTube(t, srv, engine.Config{YouTubeAPIKey: "k"})
	videos, err := yt.Search(context.Background(), "q", 500)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("expected empty result, got %d", len(videos))
	}
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Growth Lab</title>
 <entry>
  <id>yt:video:FFFFFFFFFFF</id>
  <yt:videoId>FFFFFFFFFFF</yt:videoId>
  <title>Pricing page teardown</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=FFFFFFFFFFF"/>
  <author><name>Growth Lab</name></author>
  <published>2026-09-01T10:00:00+00:00</published>
 </entry>
 <entry>
  <id>yt:video:GGGGGGGGGGG</id>
  <title>Link only entry</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=GGGGGGGGGGG"/>
  <published>2026-08-25T10:00:00+00:00</published>
 </entry>
</feed>`

func TestChannelVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/videos.xml" || r.URL.Query().Get("channel_id") != "UC123" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	yt := newTestYouTube(t, srv, engine.Config{})
	videos, err := yt.ChannelVideos(context.Background(), "UC123", 10)
	if err != nil {
		t.Fatalf("ChannelVideos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}
	if videos[0].ID != "FFFFFFFFFFF" || videos[0].ChannelTitle != "Growth Lab" {
		t.Errorf("unexpected first entry: %+v", videos[0])
	}
	if videos[1].ID != "GGGGGGGGGGG" {
		t.Errorf("link fallback failed: %+v", videos[1])
	}

	if _, err := yt.ChannelVideos(context.Background(), "", 10); err == nil {
		t.Error("expected error for empty channel id")
	}
}

func TestPickTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u-asr-en", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "u-de", LanguageCode: "de"},
		{BaseURL: "u-en-po&exp=xpe", LanguageCode: "en"},
		{BaseURL: "u-en-gb", LanguageCode: "en-GB"},
	}
	langs := []string{"en", "en-US", "en-GB"}

	manual, ok := pickTrack(tracks, langs, false)
	if !ok || manual.BaseURL != "u-en-gb" {
		t.Errorf("manual pick = %+v, %v; want en-GB (PoToken track skipped)", manual, ok)
	}
	asr, ok := pickTrack(tracks, langs, true)
	if !ok || asr.BaseURL != "u-asr-en" {
		t.Errorf("asr pick = %+v, %v", asr, ok)
	}
	if _, ok := pickTrack([]captionTrack{{BaseURL: "x", Kind: "asr"}}, langs, false); ok {
		t.Error("expected no manual track")
	}
}

// watchPage renders a watch page whose player response lists the given tracks.
func watchPage(tracks []captionTrack) string {
	resp := map[string]any{
		"captions": map[string]any{
			"playerCaptionsTracklistRenderer": map[string]any{"captionTracks": tracks},
		},
	}
	b, _ := json.Marshal(resp)
	return `<html><script>var ytInitialPlayerResponse = ` + string(b) + `;var meta = {};</script></html>`
}

func TestCaptionsSourceWatchPage(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			_, _ = w.Write([]byte(watchPage([]captionTrack{
				{BaseURL: srvURL + "/api/timedtext?kind=asr", LanguageCode: "en", Kind: "asr"},
				{BaseURL: srvURL + "/api/timedtext?manual=1", LanguageCode: "en"},
			})))
		case "/api/timedtext":
			if r.URL.Query().Get("manual") == "1" {
				_, _ = w.Write([]byte(`<transcript><text start="0">Lead with the &amp;amp; pain</text><text start="2">then   the offer</text></transcript>`))
				return
			}
			_, _ = w.Write([]byte(`<transcript><text>auto words</text></transcript>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	yt := newTestYouTube(t, srv, engine.Config{})

	captions := yt.Captions()
	if captions.Method() != engine.MethodCaptions {
		t.Errorf("method = %q", captions.Method())
	}
	text, err := captions.Fetch(context.Background(), "HHHHHHHHHHH")
	if err != nil {
		t.Fatalf("captions Fetch: %v", err)
	}
	if text != "Lead with the & pain then the offer" {
		t.Errorf("captions text = %q", text)
	}

	asr := yt.ASR()
	if asr.Method() != engine.MethodASRFallback {
		t.Errorf("method = %q", asr.Method())
	}
	text, err = asr.Fetch(context.Background(), "HHHHHHHHHHH")
	if err != nil {
		t.Fatalf("asr Fetch: %v", err)
	}
	if text != "auto words" {
		t.Errorf("asr text = %q", text)
	}
}

func TestCaptionsSourceNoManualTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			_, _ = w.Write([]byte(watchPage([]captionTrack{{BaseURL: "/api/timedtext", LanguageCode: "en", Kind: "asr"}})))
		case ytPlayerPath:
			_, _ = w.Write([]byte(`{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Sign in to confirm"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	yt := newTestYouTube(t, srv, engine.Config{})
	_, err := yt.Captions().Fetch(context.Background(), "IIIIIIIIIII")
	if err == nil || !strings.Contains(err.Error(), "Sign in") {
		t.Fatalf("expected player reason in error, got %v", err)
	}
}

func TestASRSourceEngagementPanel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			_, _ = w.Write([]byte(`<html>no player</html>`))
		case ytNextPath:
			_, _ = w.Write([]byte(`{"engagementPanels":[{"x":{"getTranscriptEndpoint":{"params":"abc%3D"}}}]}`))
		case ytGetTranscriptPath:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["params"] != "abc=" {
				t.Errorf("params = %v, want decoded token", body["params"])
			}
			_, _ = w.Write([]byte(`{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[
				{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"first segment"}]}}},
				{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"second segment"}]}}}
			]}}}}}}}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	yt := newTestYouTube(t, srv, engine.Config{})
	text, err := yt.ASR().Fetch(context.Background(), "JJJJJJJJJJJ")
	if err != nil {
		t.Fatalf("asr Fetch: %v", err)
	}
	if text != "first segment second segment" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscriptSourcesOrder(t *testing.T) {
	yt := NewYouTube(engine.Config{})
	srcs := yt.TranscriptSources()
	if len(srcs) != 2 || srcs[0].Method() != engine.MethodCaptions || srcs[1].Method() != engine.MethodASRFallback {
		t.Errorf("unexpected source order: %v", srcs)
	}
}
