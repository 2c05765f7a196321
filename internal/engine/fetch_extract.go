package engine

import (
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ExtractContent returns the title and main content of an HTML document.
// Readability output is converted to markdown; goquery is the fallback.
func ExtractContent(htmlContent, rawURL string) (title, content string) {
	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(htmlContent), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		md, mdErr := htmltomarkdown.ConvertString(article.Content)
		if mdErr != nil || strings.TrimSpace(md) == "" {
			md = article.TextContent
		}
		title = strings.TrimSpace(article.Title)
		if title == "" {
			title = extractTitle(htmlContent)
		}
		return title, strings.TrimSpace(md)
	}
	return extractWithGoquery(htmlContent)
}

// extractWithGoquery uses goquery for structured HTML parsing when readability fails.
func extractWithGoquery(htmlContent string) (title, content string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", CollapseWhitespace(CleanHTML(htmlContent))
	}

	title = titleFromDoc(doc)

	removeSelectors := []string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".comments",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}
	doc.Find(strings.Join(removeSelectors, ", ")).Remove()

	contentSel := doc.Find("article, main, .content, .post-content, .article-content, #content").First()
	if contentSel.Length() == 0 {
		contentSel = doc.Find("body")
	}

	return title, CollapseWhitespace(contentSel.Text())
}

func extractTitle(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return titleFromDoc(doc)
}

func titleFromDoc(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
