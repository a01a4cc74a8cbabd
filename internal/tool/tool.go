// Package tool provides the capability abstraction behind the research loop:
// a closed set of named tools sharing one execute contract, plus the registry
// that holds them.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateName     = errors.New("tool: duplicate tool name")
	ErrUnknownTool       = errors.New("tool: unknown tool")
	ErrInvalidExpression = errors.New("calculator: invalid expression")
)

// Document is a single retrieved source. Search-type tools produce them;
// the evidence log dedupes them by URL.
type Document struct {
	Title     string
	URL       string
	Published string
	Snippet   string
	Origin    string  // name of the tool that produced it
	Score     float64 // similarity score, 0 for non-vector sources
}

// Result is the outcome of one tool invocation. Expected failure modes
// (network errors, empty results, rejected expressions) surface as OK=false
// with Err set; Execute never returns a Go error for those.
type Result struct {
	Tool      string
	OK        bool
	Text      string
	Documents []Document
	Value     float64
	Numeric   bool
	Err       string
}

// Tool is a named capability. Available reports whether the tool can
// currently run (credentials present, backing store reachable); it is
// checked at registration lookup time, not per execution.
type Tool interface {
	Name() string
	Description() string
	Available() bool
	Execute(ctx context.Context, query string) Result
}

func failure(name, reason string) Result {
	return Result{Tool: name, Err: reason}
}

// renderDocuments formats retrieved documents as the text payload of a
// Result, one block per document with title, URL, and snippet. The model
// only ever sees a Result through this text, so everything it should read
// from a document must appear here.
func renderDocuments(docs []Document) string {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\nResult %d:\n", i+1)
		title := d.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "Title: %s\n", title)
		if d.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", d.URL)
		}
		if d.Published != "" {
			fmt.Fprintf(&b, "Published: %s\n", d.Published)
		}
		fmt.Fprintf(&b, "Content: %s", d.Snippet)
	}
	return strings.TrimPrefix(b.String(), "\n")
}
