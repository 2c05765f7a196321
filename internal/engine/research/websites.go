package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// WebSearcher runs a general web search.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]engine.WebResult, error)
}

// WebsiteCandidate is a likely company homepage.
type WebsiteCandidate struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Snippet string `json:"snippet,omitempty"`
	Score   int    `json:"score"`
}

// Hosts that list businesses rather than being one.
var directoryHosts = []string{
	"yelp.", "yellowpages.", "facebook.com", "instagram.com", "linkedin.com",
	"twitter.com", "x.com", "youtube.com", "tiktok.com", "wikipedia.org",
	"mapquest.com", "bbb.org", "angi.com", "thumbtack.com", "tripadvisor.",
	"healthgrades.com", "zocdoc.com", "glassdoor.", "indeed.com",
	"crunchbase.com", "bloomberg.com", "google.com",
}

func isDirectory(host string) bool {
	for _, d := range directoryHosts {
		if strings.HasPrefix(host, d) || strings.Contains(host, "."+d) || host == strings.TrimSuffix(d, ".") {
			return true
		}
	}
	return false
}

// FindWebsites searches for a company's own site. Directory and social
// listings are dropped, one result is kept per domain and candidates are
// ordered by how well the domain and title match the company name.
func FindWebsites(ctx context.Context, ws WebSearcher, company, location string, max int) ([]WebsiteCandidate, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, errors.New("company is required")
	}
	if ws == nil {
		return nil, &ConfigError{Component: "websearch", Msg: "no web searcher configured"}
	}
	if max <= 0 {
		max = 5
	}

	query := fmt.Sprintf("%q %s official website", company, strings.TrimSpace(location))
	results, err := ws.Search(ctx, strings.Join(strings.Fields(query), " "))
	if err != nil {
		if errors.Is(err, engine.ErrNoBrowser) {
			return nil, &ConfigError{Component: "websearch", Msg: err.Error()}
		}
		return nil, &TransientExternalError{Op: "web search", Err: err}
	}

	tokens := nameTokens(company)
	var out []WebsiteCandidate
	for _, r := range engine.DedupByDomain(results, 1) {
		host := engine.HostOf(r.URL)
		if isDirectory(host) {
			continue
		}
		out = append(out, WebsiteCandidate{
			Title:   r.Title,
			URL:     r.URL,
			Domain:  host,
			Snippet: engine.TruncateAtWord(r.Snippet, 200),
			Score:   matchScore(tokens, host, r.Title),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

var nameStopwords = map[string]bool{
	"the": true, "and": true, "inc": true, "llc": true, "ltd": true, "co": true,
	"corp": true, "company": true, "group": true, "of": true,
}

func nameTokens(company string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(company), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) > 1 && !nameStopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

// matchScore weights name tokens found in the domain above tokens found in
// the title.
func matchScore(tokens []string, host, title string) int {
	label := host
	if i := strings.LastIndex(host, "."); i > 0 {
		label = host[:i]
	}
	label = strings.NewReplacer("-", "", ".", "").Replace(label)
	title = strings.ToLower(title)

	score := 0
	for _, t := range tokens {
		if strings.Contains(label, t) {
			score += 3
		}
		if strings.Contains(title, t) {
			score++
		}
	}
	return score
}
