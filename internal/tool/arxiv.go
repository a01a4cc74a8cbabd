package tool

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultArxivBaseURL = "http://export.arxiv.org/api"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// ArxivSearch queries the ArXiv Atom API for academic papers.
type ArxivSearch struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type ArxivOption func(*ArxivSearch)

// WithArxivBaseURL overrides the API endpoint, used by tests.
func WithArxivBaseURL(u string) ArxivOption {
	return func(a *ArxivSearch) { a.baseURL = strings.TrimRight(u, "/") }
}

func NewArxivSearch(maxResults int, timeout time.Duration, opts ...ArxivOption) *ArxivSearch {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a := &ArxivSearch{
		baseURL:    defaultArxivBaseURL,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ArxivSearch) Name() string { return "arxiv_search" }

func (a *ArxivSearch) Description() string {
	return "Search ArXiv for academic papers on AI, ML, physics, math, and other scientific domains."
}

// Available is always true: the ArXiv API needs no credentials.
func (a *ArxivSearch) Available() bool { return true }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []string `xml:"author>name"`
}

func (a *ArxivSearch) Execute(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return failure(a.Name(), "empty search query")
	}

	endpoint := fmt.Sprintf("%s/query?search_query=%s&start=0&max_results=%d&sortBy=relevance",
		a.baseURL, url.QueryEscape("all:"+query), a.maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failure(a.Name(), fmt.Sprintf("create request: %v", err))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return failure(a.Name(), fmt.Sprintf("send request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(a.Name(), fmt.Sprintf("arxiv http %d", resp.StatusCode))
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return failure(a.Name(), fmt.Sprintf("decode feed: %v", err))
	}

	if len(feed.Entries) == 0 {
		return failure(a.Name(), "no arxiv papers found")
	}

	// The API occasionally returns the same paper under several versions;
	// dedupe by normalized title.
	seen := make(map[string]bool)
	docs := make([]Document, 0, a.maxResults)
	for _, entry := range feed.Entries {
		title := collapseWhitespace(entry.Title)
		key := strings.ToLower(title)
		if title == "" || seen[key] {
			continue
		}
		seen[key] = true

		snippet := collapseWhitespace(entry.Summary)
		if len(entry.Authors) > 0 {
			snippet = "Authors: " + strings.Join(entry.Authors, ", ") + ". " + snippet
		}
		docs = append(docs, Document{
			Title:     title,
			URL:       arxivAbsURL(entry.ID),
			Published: publishedDate(entry.Published),
			Snippet:   truncate(snippet, 800),
			Origin:    a.Name(),
		})
		if len(docs) >= a.maxResults {
			break
		}
	}

	if len(docs) == 0 {
		return failure(a.Name(), "no arxiv papers found")
	}

	return Result{
		Tool:      a.Name(),
		OK:        true,
		Text:      renderDocuments(docs),
		Documents: docs,
	}
}

// arxivAbsURL normalizes an entry id like http://arxiv.org/abs/2301.00001v2
// to the versionless abstract URL.
func arxivAbsURL(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.Index(id, "/abs/"); idx >= 0 {
		paperID := id[idx+len("/abs/"):]
		if v := strings.LastIndex(paperID, "v"); v > 0 && isDigits(paperID[v+1:]) {
			paperID = paperID[:v]
		}
		return "https://arxiv.org/abs/" + paperID
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func publishedDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("2006-01-02")
	}
	return raw
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
