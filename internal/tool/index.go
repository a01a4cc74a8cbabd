package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/stellarlinkco/scout/internal/index"
)

// IndexSearch answers queries from the local document index.
type IndexSearch struct {
	store      *index.Store
	maxResults int
	threshold  float64
}

func NewIndexSearch(store *index.Store, maxResults int, threshold float64) *IndexSearch {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &IndexSearch{store: store, maxResults: maxResults, threshold: threshold}
}

func (t *IndexSearch) Name() string { return "index_search" }

func (t *IndexSearch) Description() string {
	return "Search the local document index for previously stored material. Input: a natural language query."
}

// Available is false until at least one embedded document exists, so the
// planner is never offered an index that cannot answer.
func (t *IndexSearch) Available() bool {
	if t.store == nil {
		return false
	}
	return t.store.HasDocuments(context.Background())
}

func (t *IndexSearch) Execute(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return failure(t.Name(), "empty query")
	}

	hits, err := t.store.Search(ctx, query, t.maxResults, t.threshold)
	if err != nil {
		return failure(t.Name(), err.Error())
	}
	if len(hits) == 0 {
		return failure(t.Name(), "no matching documents in the index")
	}

	docs := make([]Document, 0, len(hits))
	var b strings.Builder
	for i, hit := range hits {
		docs = append(docs, Document{
			Title:     hit.Document.Title,
			URL:       hit.Document.URL,
			Published: hit.Document.Published,
			Snippet:   hit.Document.Snippet,
			Origin:    t.Name(),
			Score:     hit.Score,
		})
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (similarity %.2f)\n%s", i+1, hit.Document.Title, hit.Score, excerpt(hit.Document.Content, 600))
	}

	return Result{Tool: t.Name(), OK: true, Text: b.String(), Documents: docs}
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
