package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// A scrape query may name several pages; fetching is capped so one
	// decision cannot stall the whole pass.
	maxScrapeURLs  = 3
	maxScrapeChars = 3000
)

var urlSplitRegex = regexp.MustCompile(`[,\s]+`)

// WebScrape fetches web pages named in the query and extracts their text
// content. The query is free-form: URLs are picked out of it, bare domains
// get an https scheme.
type WebScrape struct {
	httpClient *http.Client
}

func NewWebScrape(timeout time.Duration) *WebScrape {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebScrape{httpClient: &http.Client{Timeout: timeout}}
}

func (s *WebScrape) Name() string { return "web_scrape" }

func (s *WebScrape) Description() string {
	return "Extract the full text content of specific web pages. Input: one or more URLs."
}

// Available is always true: scraping needs no credentials.
func (s *WebScrape) Available() bool { return true }

func (s *WebScrape) Execute(ctx context.Context, query string) Result {
	urls := parseScrapeURLs(query)
	if len(urls) == 0 {
		return failure(s.Name(), "no valid urls in query")
	}
	if len(urls) > maxScrapeURLs {
		urls = urls[:maxScrapeURLs]
	}

	var docs []Document
	var failed []string
	for _, u := range urls {
		doc, err := s.fetch(ctx, u)
		if err != nil {
			failed = append(failed, fmt.Sprintf("failed to fetch %s: %v", u, err))
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return failure(s.Name(), strings.Join(failed, "; "))
	}

	text := renderDocuments(docs)
	if len(failed) > 0 {
		text += "\n\n" + strings.Join(failed, "\n")
	}
	return Result{Tool: s.Name(), OK: true, Text: text, Documents: docs}
}

func (s *WebScrape) fetch(ctx context.Context, pageURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; scout/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	text := collapseWhitespace(pageText(doc))
	if text == "" {
		return Document{}, fmt.Errorf("no text content extracted")
	}

	return Document{
		Title:   pageTitle(doc),
		URL:     pageURL,
		Snippet: truncate(text, maxScrapeChars),
		Origin:  s.Name(),
	}, nil
}

// parseScrapeURLs picks URLs out of the query. Pieces without a scheme are
// kept when they look like a domain, with https assumed.
func parseScrapeURLs(query string) []string {
	var urls []string
	for _, part := range urlSplitRegex.Split(strings.TrimSpace(query), -1) {
		part = strings.Trim(part, `"',`)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, "http://") && !strings.HasPrefix(part, "https://") {
			if !strings.Contains(part, ".") || strings.HasPrefix(part, ".") {
				continue
			}
			part = "https://" + part
		}
		if u, err := url.Parse(part); err == nil && u.Host != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

// pageText walks the parsed document collecting visible text, skipping
// script, style, and navigation chrome.
func pageText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "aside", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func pageTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return collapseWhitespace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := pageTitle(c); title != "" {
			return title
		}
	}
	return ""
}
