package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBraveSearchExecute(t *testing.T) {
	var gotToken, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("X-RateLimit-Remaining", "1, 1000")
		fmt.Fprint(w, `{"web":{"results":[
			{"title":"Go","url":"https://go.dev","description":"The Go programming language","page_age":"2026-01-01"},
			{"title":"Go docs","url":"https://go.dev/doc","description":"Documentation","page_age":""},
			{"title":"Go blog","url":"https://go.dev/blog","description":"Blog","page_age":""}
		]}}`)
	}))
	defer srv.Close()

	b := NewBraveSearch("test-key", 2, 0, WithBraveBaseURL(srv.URL))

	if !b.Available() {
		t.Fatal("brave search with key should be available")
	}

	res := b.Execute(context.Background(), "golang")
	if !res.OK {
		t.Fatalf("execute failed: %s", res.Err)
	}
	if gotToken != "test-key" {
		t.Fatalf("subscription token = %q, want test-key", gotToken)
	}
	if gotQuery != "golang" {
		t.Fatalf("query = %q, want golang", gotQuery)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("got %d documents, want 2 (capped)", len(res.Documents))
	}
	if res.Documents[0].URL != "https://go.dev" {
		t.Fatalf("unexpected first document: %+v", res.Documents[0])
	}
	if res.Documents[0].Origin != "web_search" {
		t.Fatalf("origin = %q, want web_search", res.Documents[0].Origin)
	}

	// The text payload is what the model reads, so it must carry what each
	// document says, not just that documents exist.
	for _, want := range []string{
		"Title: Go",
		"URL: https://go.dev",
		"Content: The Go programming language",
		"Title: Go docs",
	} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("result text missing %q:\n%s", want, res.Text)
		}
	}
}

func TestBraveSearchFailures(t *testing.T) {
	t.Run("no api key", func(t *testing.T) {
		b := NewBraveSearch("", 5, 0)
		if b.Available() {
			t.Fatal("brave search without key should be unavailable")
		}
		res := b.Execute(context.Background(), "anything")
		if res.OK {
			t.Fatal("expected failure without key")
		}
	})

	t.Run("empty query", func(t *testing.T) {
		b := NewBraveSearch("key", 5, 0)
		if res := b.Execute(context.Background(), "   "); res.OK {
			t.Fatal("expected failure for empty query")
		}
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		b := NewBraveSearch("key", 5, 0, WithBraveBaseURL(srv.URL))
		res := b.Execute(context.Background(), "golang")
		if res.OK {
			t.Fatal("expected failure on http 429")
		}
	})

	t.Run("empty results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"web":{"results":[]}}`)
		}))
		defer srv.Close()

		b := NewBraveSearch("key", 5, 0, WithBraveBaseURL(srv.URL))
		res := b.Execute(context.Background(), "nothing matches this")
		if res.OK {
			t.Fatal("expected failure for empty results")
		}
	})
}

func TestBraveSearchTimeout(t *testing.T) {
	b := NewBraveSearch("key", 5, 7*time.Second)
	if b.httpClient.Timeout != 7*time.Second {
		t.Fatalf("timeout = %v, want 7s", b.httpClient.Timeout)
	}
	if d := NewBraveSearch("key", 5, 0); d.httpClient.Timeout != 30*time.Second {
		t.Fatalf("default timeout = %v, want 30s", d.httpClient.Timeout)
	}
}

func TestBraveNextDelay(t *testing.T) {
	h := http.Header{}
	if braveNextDelay(h) == 0 {
		t.Fatal("missing header should force a wait")
	}

	h.Set("X-RateLimit-Remaining", "0, 1000")
	if braveNextDelay(h) == 0 {
		t.Fatal("exhausted per-second quota should force a wait")
	}

	h.Set("X-RateLimit-Remaining", "1, 1000")
	if braveNextDelay(h) != 0 {
		t.Fatal("remaining quota should not wait")
	}
}
