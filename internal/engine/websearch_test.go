package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVQD(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"single quotes", `some html vqd='4-123456789_abc' more html`, "4-123456789_abc"},
		{"double quotes", `vqd="4-987654321_xyz"`, "4-987654321_xyz"},
		{"no quotes", `nrj('/d.js?q=test&vqd=4-abcdef123&kl=wt-wt')`, "4-abcdef123"},
		{"not found", `<html>no token here</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractVQD(tt.body))
		})
	}
}

func TestParseDDGJS(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCount int
		wantErr   bool
	}{
		{
			name: "jsonp wrapped",
			data: `DDG.pageLayout.load('d',[
				{"t":"Bright Smiles Dental","a":"Family dentist in Austin","u":"https://brightsmiles.example/","c":""},
				{"t":"Yelp","a":"Reviews","u":"","c":"https://yelp.example/biz/bright-smiles"}
			]);`,
			wantCount: 2,
		},
		{
			name:      "skip ddg internal links",
			data:      `[{"t":"Real","a":"x","u":"https://example.com/real"},{"t":"Ad","a":"x","u":"https://duckduckgo.com/y.js?ad"}]`,
			wantCount: 1,
		},
		{
			name:      "skip empty title or url",
			data:      `[{"t":"","u":"https://example.com"},{"t":"Valid","u":""},{"t":"Real","u":"https://example.com/ok"}]`,
			wantCount: 1,
		},
		{name: "invalid json", data: `not json at all`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := parseDDGJS([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, results, tt.wantCount)
			for _, r := range results {
				assert.Equal(t, "duckduckgo", r.Engine)
			}
		})
	}
}

func TestParseDDGJSStripsHTML(t *testing.T) {
	results, err := parseDDGJS([]byte(`[{"t":"<b>Bold</b> Title","a":"<b>snippet</b> &amp; more","u":"https://example.com"}]`))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Bold Title", results[0].Title)
	assert.Equal(t, "snippet & more", results[0].Snippet)
}

func TestParseDDGLite(t *testing.T) {
	page := `<html><body>
		<div class="result">
			<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fbrightsmiles.example%2F&rut=abc">Bright   Smiles</a>
			<a class="result__snippet">Family dentistry.</a>
		</div>
		<div class="result result--ad">
			<a class="result__a" href="https://ads.example/">Sponsored</a>
		</div>
		<div class="result">
			<a class="result__a" href="https://example.org/direct">Direct</a>
		</div>
		<div class="result">
			<a class="result__a" href="/relative">Relative</a>
		</div>
	</body></html>`

	results, err := parseDDGLite([]byte(page))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, WebResult{
		Title:   "Bright Smiles",
		Snippet: "Family dentistry.",
		URL:     "https://brightsmiles.example/",
		Engine:  "duckduckgo",
	}, results[0])
	assert.Equal(t, "https://example.org/direct", results[1].URL)
}

func TestDDGUnwrapURL(t *testing.T) {
	assert.Equal(t, "https://example.com", ddgUnwrapURL("//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=abc"))
	assert.Equal(t, "https://example.com/direct", ddgUnwrapURL("https://example.com/direct"))
	assert.Empty(t, ddgUnwrapURL(""))
	assert.Empty(t, ddgUnwrapURL("/relative/path"))
}

func TestParseStartpage(t *testing.T) {
	page := `<html><body>
		<div class="w-gl__result">
			<a class="w-gl__result-title" href="https://example.com/1">First Result</a>
			<p class="w-gl__description">First description text.</p>
		</div>
		<div class="result">
			<h3><a href="https://example.com/3">Fallback selector</a></h3>
			<p class="result-description">Third.</p>
		</div>
		<div class="w-gl__result">
			<a class="w-gl__result-title" href="">No URL</a>
		</div>
		<div class="w-gl__result">
			<a class="w-gl__result-title" href="https://www.startpage.com/do/something">Internal</a>
		</div>
	</body></html>`

	results, err := parseStartpage([]byte(page))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "First description text.", results[0].Snippet)
	assert.Equal(t, "Third.", results[1].Snippet)
	assert.Equal(t, "startpage", results[1].Engine)
}

func TestMergeAndDedupByDomain(t *testing.T) {
	ddg := []WebResult{
		{URL: "https://www.brightsmiles.example/"},
		{URL: "https://brightsmiles.example/contact"},
		{URL: "https://yelp.example/biz/1"},
	}
	sp := []WebResult{
		{URL: "https://WWW.brightsmiles.example"},
		{URL: "https://brightsmiles.example/about"},
	}

	merged := MergeWebResults(ddg, sp)
	assert.Len(t, merged, 4, "trailing slash and case variants collapse")

	deduped := DedupByDomain(merged, 1)
	require.Len(t, deduped, 2)
	assert.Equal(t, "https://www.brightsmiles.example/", deduped[0].URL)
	assert.Equal(t, "yelp.example", HostOf(deduped[1].URL))
}

func TestWebSearcherWithoutBrowser(t *testing.T) {
	w := NewWebSearcher(nil)
	_, err := w.Search(context.Background(), "dentist austin")
	assert.True(t, errors.Is(err, ErrNoBrowser))
	_, err = w.Startpage(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrNoBrowser)
}
