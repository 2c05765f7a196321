package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Page is a fetched web page with its extracted main content.
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	HTML    string `json:"-"`
}

// PageFetcher downloads web pages and extracts readable content.
// When a stealth BrowserClient is configured it is tried first.
type PageFetcher struct {
	client   *http.Client
	browser  *BrowserClient
	timeout  time.Duration
	maxChars int
}

// NewPageFetcher builds a fetcher from engine config.
func NewPageFetcher(c Config) *PageFetcher {
	c.Defaults()
	return &PageFetcher{
		client:   newFetchClient(c.FetchTimeout),
		browser:  c.BrowserClient,
		timeout:  c.FetchTimeout,
		maxChars: c.MaxContentChars,
	}
}

// newFetchClient creates an HTTP client with proper settings for web scraping.
func newFetchClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout * 2,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// Fetch downloads rawURL and extracts its title and main content.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (page *Page, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.fetchBody(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title, content := ExtractContent(string(body), rawURL)
	return &Page{
		URL:     rawURL,
		Title:   title,
		Content: TruncateRunes(content, f.maxChars, "..."),
		HTML:    string(body),
	}, nil
}

func (f *PageFetcher) fetchBody(ctx context.Context, rawURL string) ([]byte, error) {
	if f.browser != nil {
		headers := ChromeHeaders()
		headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
		data, _, status, err := f.browser.Do(http.MethodGet, rawURL, headers, nil)
		if err == nil && status == http.StatusOK {
			return data, nil
		}
	}

	resp, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readResponseBody(resp)
}

// fetchWithRetry performs an HTTP GET with retry logic using exponential backoff.
func (f *PageFetcher) fetchWithRetry(ctx context.Context, fetchURL string) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if IsRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(f.timeout))
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, err
	}
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return body, nil
}
