package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoBrowser is returned by web search when no stealth client is configured.
var ErrNoBrowser = errors.New("web search: browser client not configured")

// WebResult is one organic hit from a web search engine.
type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	URL     string `json:"url"`
	Engine  string `json:"engine"`
}

// WebSearcher queries DuckDuckGo and Startpage through the browser client.
type WebSearcher struct {
	bc *BrowserClient
	rc RetryConfig
}

// NewWebSearcher returns a searcher. A nil client makes every search fail
// with ErrNoBrowser.
func NewWebSearcher(bc *BrowserClient) *WebSearcher {
	return &WebSearcher{bc: bc, rc: DefaultRetryConfig}
}

// Search runs both engines concurrently and merges their hits, DuckDuckGo
// first. It fails only when every engine fails.
func (w *WebSearcher) Search(ctx context.Context, query string) ([]WebResult, error) {
	if w.bc == nil {
		return nil, ErrNoBrowser
	}

	var (
		wg      sync.WaitGroup
		ddg, sp []WebResult
		ddgErr  error
		spErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ddg, ddgErr = RetryDo(ctx, w.rc, func() ([]WebResult, error) {
			return w.DuckDuckGo(ctx, query, "")
		})
		if ddgErr != nil {
			slog.Debug("ddg search failed", slog.Any("error", ddgErr))
		}
	}()
	go func() {
		defer wg.Done()
		sp, spErr = RetryDo(ctx, w.rc, func() ([]WebResult, error) {
			return w.Startpage(ctx, query, "")
		})
		if spErr != nil {
			slog.Debug("startpage search failed", slog.Any("error", spErr))
		}
	}()
	wg.Wait()

	if ddgErr != nil && spErr != nil {
		return nil, fmt.Errorf("web search %q: %w", query, errors.Join(ddgErr, spErr))
	}
	return MergeWebResults(ddg, sp), nil
}

// MergeWebResults concatenates result lists, dropping repeated URLs.
func MergeWebResults(lists ...[]WebResult) []WebResult {
	seen := map[string]bool{}
	var out []WebResult
	for _, list := range lists {
		for _, r := range list {
			key := strings.TrimSuffix(strings.ToLower(r.URL), "/")
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

// DedupByDomain keeps at most maxPerDomain results per host, ignoring "www.".
func DedupByDomain(results []WebResult, maxPerDomain int) []WebResult {
	counts := make(map[string]int)
	var out []WebResult
	for _, r := range results {
		host := HostOf(r.URL)
		if host == "" {
			continue
		}
		if counts[host] < maxPerDomain {
			out = append(out, r)
			counts[host]++
		}
	}
	return out
}

// HostOf returns the lower-cased host of rawURL without a "www." prefix.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// --- DuckDuckGo ---

var vqdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vqd='([^']+)'`),
	regexp.MustCompile(`vqd="([^"]+)"`),
	regexp.MustCompile(`vqd=([a-zA-Z0-9_-]+)`),
}

type ddgItem struct {
	T string `json:"t"`
	A string `json:"a"`
	U string `json:"u"`
	C string `json:"c"`
}

// DuckDuckGo queries the HTML lite endpoint and falls back to the d.js API.
func (w *WebSearcher) DuckDuckGo(ctx context.Context, query, region string) ([]WebResult, error) {
	if w.bc == nil {
		return nil, ErrNoBrowser
	}
	if region == "" {
		region = "wt-wt"
	}
	metrics.WebSearchRequests.Add(1)

	results, err := w.ddgLite(ctx, query, region)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	if err != nil {
		slog.Debug("ddg lite failed, trying d.js", slog.Any("error", err))
	}

	vqd, err := w.ddgVQD(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ddg vqd: %w", err)
	}
	results, err = w.ddgJS(ctx, query, vqd, region)
	if err != nil {
		return nil, fmt.Errorf("ddg d.js: %w", err)
	}
	return results, nil
}

func (w *WebSearcher) ddgLite(ctx context.Context, query, region string) ([]WebResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	form := url.Values{"q": {query}, "kl": {region}, "df": {""}}

	headers := ChromeHeaders()
	headers["referer"] = "https://html.duckduckgo.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"

	data, _, status, err := w.bc.Do("POST", "https://html.duckduckgo.com/html/", headers, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("ddg lite status %d", status)
	}
	return parseDDGLite(data)
}

func parseDDGLite(data []byte) ([]WebResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []WebResult
	doc.Find(".result, .web-result").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		link := s.Find("a.result__a, .result__title a, a.result-link").First()
		title := CollapseWhitespace(link.Text())
		href, ok := link.Attr("href")
		if !ok || title == "" {
			return
		}
		href = ddgUnwrapURL(href)
		if href == "" {
			return
		}
		results = append(results, WebResult{
			Title:   title,
			Snippet: CollapseWhitespace(s.Find(".result__snippet, .result__body").First().Text()),
			URL:     href,
			Engine:  "duckduckgo",
		})
	})
	return results, nil
}

// ddgUnwrapURL resolves //duckduckgo.com/l/?uddg=... redirect links.
func ddgUnwrapURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}

func (w *WebSearcher) ddgVQD(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	headers := ChromeHeaders()
	headers["referer"] = "https://duckduckgo.com/"

	data, _, status, err := w.bc.Do("GET", "https://duckduckgo.com/?q="+url.QueryEscape(query), headers, nil)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("ddg homepage status %d", status)
	}
	if vqd := extractVQD(string(data)); vqd != "" {
		return vqd, nil
	}
	return "", fmt.Errorf("vqd token not found (%d bytes)", len(data))
}

func extractVQD(body string) string {
	for _, pat := range vqdPatterns {
		if m := pat.FindStringSubmatch(body); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func (w *WebSearcher) ddgJS(ctx context.Context, query, vqd, region string) ([]WebResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := url.Values{
		"q":   {query},
		"vqd": {vqd},
		"kl":  {region},
		"l":   {"us-en"},
		"o":   {"json"},
	}

	headers := ChromeHeaders()
	headers["referer"] = "https://duckduckgo.com/"
	headers["accept"] = "application/json, text/javascript, */*; q=0.01"

	data, _, status, err := w.bc.Do("GET", "https://links.duckduckgo.com/d.js?"+params.Encode(), headers, nil)
	if err != nil {
		return nil, err
	}
	if status != 200 && status != 202 {
		return nil, fmt.Errorf("ddg d.js status %d", status)
	}
	return parseDDGJS(data)
}

// parseDDGJS reads the d.js payload, which is a JSON array optionally
// wrapped in a JSONP call.
func parseDDGJS(data []byte) ([]WebResult, error) {
	body := strings.TrimSpace(string(data))
	if start := strings.Index(body, "["); start >= 0 {
		if end := strings.LastIndex(body, "]"); end > start {
			body = body[start : end+1]
		}
	}

	var raw []ddgItem
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("ddg json: %w (first 200 bytes: %s)", err, Truncate(body, 200))
	}

	var results []WebResult
	for _, r := range raw {
		u := r.U
		if u == "" {
			u = r.C
		}
		if u == "" || r.T == "" || strings.HasPrefix(u, "https://duckduckgo.com/") {
			continue
		}
		results = append(results, WebResult{
			Title:   CleanHTML(r.T),
			Snippet: CleanHTML(r.A),
			URL:     u,
			Engine:  "duckduckgo",
		})
	}
	return results, nil
}

// --- Startpage ---

// Startpage posts the query to Startpage and parses organic results.
func (w *WebSearcher) Startpage(ctx context.Context, query, language string) ([]WebResult, error) {
	if w.bc == nil {
		return nil, ErrNoBrowser
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if language == "" {
		language = "english"
	}
	metrics.WebSearchRequests.Add(1)

	form := url.Values{"query": {query}, "cat": {"web"}, "language": {language}}

	headers := ChromeHeaders()
	headers["referer"] = "https://www.startpage.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"
	headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	data, _, status, err := w.bc.Do("POST", "https://www.startpage.com/sp/search", headers, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("startpage request: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("startpage status %d", status)
	}
	return parseStartpage(data)
}

func parseStartpage(data []byte) ([]WebResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []WebResult
	doc.Find(".w-gl__result, .result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.w-gl__result-title, h3 a, a.result-link").First()
		title := CollapseWhitespace(link.Text())
		href, ok := link.Attr("href")
		if !ok || title == "" || href == "" || strings.Contains(href, "startpage.com/do/") {
			return
		}
		results = append(results, WebResult{
			Title:   title,
			Snippet: CollapseWhitespace(s.Find("p.w-gl__description, .w-gl__description, p.result-description").First().Text()),
			URL:     href,
			Engine:  "startpage",
		})
	})
	return results, nil
}
