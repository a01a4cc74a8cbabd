// Package index implements the local vector index backing the index_search
// tool: a sqlite document store with embedded vectors and cosine ranking.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Document is an indexed source document.
type Document struct {
	ID        int64
	Title     string
	URL       string
	Published string
	Snippet   string
	Content   string
}

// Hit is a search match with its similarity score in [0, 1].
type Hit struct {
	Document Document
	Score    float64
}

// Stats summarizes the index contents.
type Stats struct {
	Documents int
	Pending   int // rows still waiting for an embedding
}

type Store struct {
	db       *sql.DB
	embedder Embedder
	mu       sync.Mutex
}

func Open(dbPath string, embedder Embedder) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, embedder: embedder}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			published TEXT NOT NULL DEFAULT '',
			snippet TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding BLOB,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_pending ON documents(id) WHERE embedding IS NULL`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add stores a document, embedding it immediately when possible. If the
// embedding call fails the row is kept with a NULL embedding so a later
// Backfill can pick it up.
func (s *Store) Add(ctx context.Context, doc Document) (int64, error) {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return 0, fmt.Errorf("index add: empty content")
	}

	var blob []byte
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, embeddingText(doc))
		if err != nil {
			log.Printf("[index] embed failed, queued for backfill: %v", err)
		} else if blob, err = EncodeVector(vec); err != nil {
			return 0, fmt.Errorf("index add: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (title, url, published, snippet, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`, strings.TrimSpace(doc.Title), strings.TrimSpace(doc.URL), strings.TrimSpace(doc.Published),
		strings.TrimSpace(doc.Snippet), content, blob)
	if err != nil {
		return 0, fmt.Errorf("index add: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index add: %w", err)
	}
	return id, nil
}

// Search embeds the query and ranks embedded documents by cosine similarity,
// discarding hits below threshold.
func (s *Store) Search(ctx context.Context, query string, limit int, threshold float64) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("index search: empty query")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("index search: no embedder configured")
	}
	if limit <= 0 {
		limit = 5
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, published, snippet, content, embedding
		FROM documents
		WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var doc Document
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.URL, &doc.Published, &doc.Snippet, &doc.Content, &blob); err != nil {
			return nil, fmt.Errorf("index search: scan: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			log.Printf("[index] skipping document %d: %v", doc.ID, err)
			continue
		}
		score, err := CosineSimilarity(queryVec, vec)
		if err != nil {
			log.Printf("[index] skipping document %d: %v", doc.ID, err)
			continue
		}
		if score < threshold {
			continue
		}
		hits = append(hits, Hit{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index search: iterate: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.Documents); err != nil {
		return Stats{}, fmt.Errorf("index stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE embedding IS NULL`).Scan(&st.Pending); err != nil {
		return Stats{}, fmt.Errorf("index stats: %w", err)
	}
	return st, nil
}

// HasDocuments reports whether any embedded documents exist; the index_search
// tool uses it as its availability check.
func (s *Store) HasDocuments(ctx context.Context) bool {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE embedding IS NOT NULL LIMIT 1`).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// Backfill embeds up to limit rows whose embedding is missing and returns
// how many were filled in.
func (s *Store) Backfill(ctx context.Context, limit int) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("index backfill: no embedder configured")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, published, snippet, content
		FROM documents
		WHERE embedding IS NULL
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("index backfill: %w", err)
	}

	var pending []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.URL, &doc.Published, &doc.Snippet, &doc.Content); err != nil {
			rows.Close()
			return 0, fmt.Errorf("index backfill: scan: %w", err)
		}
		pending = append(pending, doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("index backfill: iterate: %w", err)
	}
	rows.Close()

	if len(pending) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, doc := range pending {
		texts[i] = embeddingText(doc)
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("index backfill: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filled := 0
	for i, doc := range pending {
		blob, err := EncodeVector(vecs[i])
		if err != nil {
			log.Printf("[index] backfill skip document %d: %v", doc.ID, err)
			continue
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE documents SET embedding = ? WHERE id = ?`, blob, doc.ID); err != nil {
			return filled, fmt.Errorf("index backfill: update: %w", err)
		}
		filled++
	}
	return filled, nil
}

func embeddingText(doc Document) string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(doc.Title); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, strings.TrimSpace(doc.Content))
	return strings.Join(parts, "\n")
}
