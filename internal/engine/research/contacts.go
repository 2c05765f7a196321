package research

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// Contacts is the contact information found on a lead's web page.
type Contacts struct {
	URL     string            `json:"url"`
	Title   string            `json:"title"`
	Summary string            `json:"summary,omitempty"`
	Emails  []string          `json:"emails"`
	Phones  []string          `json:"phones"`
	Socials map[string]string `json:"socials"`
}

// PageFetcher downloads a page with its extracted content.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*engine.Page, error)
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

	ignoredEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}
	ignoredEmailDomains  = []string{"example.com", "sentry.io", "wixpress.com"}

	socialHosts = map[string]string{
		"linkedin.com":  "linkedin",
		"facebook.com":  "facebook",
		"instagram.com": "instagram",
		"twitter.com":   "twitter",
		"x.com":         "twitter",
		"youtube.com":   "youtube",
		"tiktok.com":    "tiktok",
	}
)

// ExtractContacts fetches pageURL and parses contact details from it.
func ExtractContacts(ctx context.Context, f PageFetcher, pageURL string) (*Contacts, error) {
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		return nil, fmt.Errorf("contacts: invalid url %q: %w", pageURL, err)
	}
	engine.IncrContactPage()
	page, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, &TransientExternalError{Op: "fetch " + pageURL, Err: err}
	}
	c := ParseContacts(page.HTML, pageURL)
	if page.Title != "" {
		c.Title = page.Title
	}
	c.Summary = engine.TruncateAtWord(page.Content, 600)
	return c, nil
}

// ParseContacts extracts emails, phone numbers and social profile links
// from mailto/tel anchors and from visible text.
func ParseContacts(html, pageURL string) *Contacts {
	c := &Contacts{URL: pageURL, Emails: []string{}, Phones: []string{}, Socials: map[string]string{}}

	emails := map[string]bool{}
	phones := map[string]bool{}
	addEmail := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !emailRe.MatchString(e) {
			return
		}
		for _, s := range ignoredEmailSuffixes {
			if strings.HasSuffix(e, s) {
				return
			}
		}
		for _, d := range ignoredEmailDomains {
			if strings.HasSuffix(e, "@"+d) || strings.HasSuffix(e, "."+d) {
				return
			}
		}
		emails[e] = true
	}
	addPhone := func(p string) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' || r == '+' {
				return r
			}
			return -1
		}, p)
		if n := len(strings.TrimPrefix(digits, "+")); n < 10 || n > 15 {
			return
		}
		phones[digits] = true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		for _, m := range emailRe.FindAllString(html, -1) {
			addEmail(m)
		}
		c.Emails = sortedKeys(emails)
		return c
	}

	c.Title = strings.TrimSpace(doc.Find("title").First().Text())

	base, _ := url.Parse(pageURL)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			addr := href[len("mailto:"):]
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if un, err := url.PathUnescape(addr); err == nil {
				addr = un
			}
			addEmail(addr)
		case strings.HasPrefix(lower, "tel:"):
			addPhone(href[len("tel:"):])
		default:
			if network, link := socialLink(base, href); network != "" {
				if _, ok := c.Socials[network]; !ok {
					c.Socials[network] = link
				}
			}
		}
	})

	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	for _, m := range emailRe.FindAllString(text, -1) {
		addEmail(m)
	}
	for _, m := range phoneRe.FindAllString(text, -1) {
		addPhone(m)
	}

	c.Emails = sortedKeys(emails)
	c.Phones = sortedKeys(phones)
	return c
}

func socialLink(base *url.URL, href string) (string, string) {
	u, err := url.Parse(href)
	if err != nil {
		return "", ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if base != nil && strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.") == host {
		return "", ""
	}
	network, ok := socialHosts[host]
	if !ok || u.Path == "" || u.Path == "/" {
		return "", ""
	}
	if network == "youtube" && strings.HasPrefix(u.Path, "/watch") {
		return "", ""
	}
	return network, u.String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
