package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultBraveBaseURL = "https://api.search.brave.com/res/v1"

// BraveSearch queries the Brave Search web API. The free tier allows one
// request per second, so concurrent executions are paced through a mutex
// with a minimum interval between requests.
type BraveSearch struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client

	mu      sync.Mutex
	readyAt time.Time
}

type BraveOption func(*BraveSearch)

// WithBraveBaseURL overrides the API endpoint, used by tests.
func WithBraveBaseURL(u string) BraveOption {
	return func(b *BraveSearch) { b.baseURL = strings.TrimRight(u, "/") }
}

func WithBraveHTTPClient(c *http.Client) BraveOption {
	return func(b *BraveSearch) { b.httpClient = c }
}

func NewBraveSearch(apiKey string, maxResults int, timeout time.Duration, opts ...BraveOption) *BraveSearch {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	b := &BraveSearch{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBraveBaseURL,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BraveSearch) Name() string { return "web_search" }

func (b *BraveSearch) Description() string {
	return "Search the web for current information, news, and general knowledge."
}

func (b *BraveSearch) Available() bool { return b.apiKey != "" }

func (b *BraveSearch) Execute(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return failure(b.Name(), "empty search query")
	}
	if b.apiKey == "" {
		return failure(b.Name(), "brave api key not configured")
	}

	if err := b.waitTurn(ctx); err != nil {
		return failure(b.Name(), err.Error())
	}

	endpoint := fmt.Sprintf("%s/web/search?q=%s&count=%d", b.baseURL, url.QueryEscape(query), b.maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failure(b.Name(), fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.setNextTurn(time.Second)
		return failure(b.Name(), fmt.Sprintf("send request: %v", err))
	}
	defer resp.Body.Close()
	b.setNextTurn(braveNextDelay(resp.Header))

	if resp.StatusCode != http.StatusOK {
		return failure(b.Name(), fmt.Sprintf("brave http %d", resp.StatusCode))
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
				PageAge     string `json:"page_age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure(b.Name(), fmt.Sprintf("decode response: %v", err))
	}

	if len(payload.Web.Results) == 0 {
		return failure(b.Name(), "no web results found")
	}

	docs := make([]Document, 0, b.maxResults)
	for _, r := range payload.Web.Results {
		docs = append(docs, Document{
			Title:     r.Title,
			URL:       r.URL,
			Published: r.PageAge,
			Snippet:   r.Description,
			Origin:    b.Name(),
		})
		if len(docs) >= b.maxResults {
			break
		}
	}

	return Result{
		Tool:      b.Name(),
		OK:        true,
		Text:      renderDocuments(docs),
		Documents: docs,
	}
}

// waitTurn blocks until the pacing window allows another request.
func (b *BraveSearch) waitTurn(ctx context.Context) error {
	b.mu.Lock()
	wait := time.Until(b.readyAt)
	b.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (b *BraveSearch) setNextTurn(delay time.Duration) {
	b.mu.Lock()
	b.readyAt = time.Now().Add(delay)
	b.mu.Unlock()
}

// braveNextDelay inspects X-RateLimit-Remaining ("per-second, per-month") to
// decide whether the next request must wait out the one-second bucket.
func braveNextDelay(h http.Header) time.Duration {
	raw := h.Get("X-RateLimit-Remaining")
	if raw == "" {
		return time.Second
	}
	parts := strings.SplitN(raw, ",", 2)
	perSecond, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || perSecond <= 0 {
		return time.Second
	}
	return 0
}
