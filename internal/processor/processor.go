// Package processor turns a fetched HTTP body into a clean document:
// a title, a Markdown body, and whatever author and date metadata the page carries.
package processor

import (
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is the normalised form of one fetched page.
type Page struct {
	Title       string
	Body        string
	Author      string
	PublishedAt *time.Time
}

// Processor converts HTML content to Markdown.
type Processor struct{}

// New creates a new processor.
func New() *Processor {
	return &Processor{}
}

// noise is stripped before conversion; it never carries article text.
const noise = "script, style, noscript, nav, footer, header, aside, form, iframe"

// Process normalises a fetched body. Markdown bodies pass through untouched.
func (p *Processor) Process(pageURL, contentType, raw string) (*Page, error) {
	if IsMarkdown(pageURL, contentType, raw) {
		return &Page{Title: markdownTitle(raw), Body: strings.TrimSpace(raw)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	page := &Page{
		Title:       p.ExtractTitle(raw),
		Author:      firstAttr(doc, "content", `meta[name="author"]`, `meta[property="article:author"]`),
		PublishedAt: publishedAt(doc),
	}
	if page.Title == "" {
		page.Title = firstAttr(doc, "content", `meta[property="og:title"]`)
	}

	doc.Find(noise).Remove()
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	inner, err := goquery.OuterHtml(root)
	if err != nil || inner == "" {
		inner = raw
	}

	page.Body, err = p.Convert(inner)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Convert transforms HTML content into Markdown.
func (p *Processor) Convert(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}
	markdown, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}

// ExtractTitle extracts the <title> content from HTML.
func (p *Processor) ExtractTitle(htmlContent string) string {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				return n.FirstChild.Data
			}
			return ""
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := walk(c); t != "" {
				return t
			}
		}
		return ""
	}
	return strings.TrimSpace(walk(root))
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func publishedAt(doc *goquery.Document) *time.Time {
	raw := firstAttr(doc, "content", `meta[property="article:published_time"]`, `meta[name="date"]`)
	if raw == "" {
		raw = firstAttr(doc, "datetime", "time[datetime]")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// IsMarkdown reports whether a body is already Markdown, judged by
// Content-Type, then URL extension, then content heuristics.
func IsMarkdown(pageURL, contentType, content string) bool {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "text/markdown") || strings.HasPrefix(ct, "text/x-markdown") {
		return true
	}
	lower := strings.ToLower(pageURL)
	if strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown") {
		return true
	}
	return looksLikeMarkdown(content)
}

var (
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	mdList    = regexp.MustCompile(`(?m)^[\-\*]\s+\S`)
	mdLink    = regexp.MustCompile(`\[.+?\]\(.+?\)`)
)

func looksLikeMarkdown(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	if trimmed == "" {
		return false
	}
	for _, prefix := range []string{"<!doctype", "<html", "<head", "<body", "<"} {
		if strings.HasPrefix(trimmed, prefix) {
			return false
		}
	}
	return mdHeading.MatchString(content) || mdList.MatchString(content) || mdLink.MatchString(content)
}

func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
