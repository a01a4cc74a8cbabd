// Package research contains the retrieval loop: tool decisions, evidence
// accumulation, sufficiency checks, and answer synthesis.
package research

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/scout/internal/tool"
)

// Entry records one tool execution inside a research pass.
type Entry struct {
	Tool      string
	Query     string
	OK        bool
	Text      string
	Err       string
	Documents []tool.Document
}

// EvidenceLog is the append-only record of everything gathered while
// answering one question. Entries are never removed or rewritten; duplicate
// documents (same URL) are suppressed on read, not on write.
type EvidenceLog struct {
	entries []Entry
	notes   []string
}

func NewEvidenceLog() *EvidenceLog {
	return &EvidenceLog{}
}

func (l *EvidenceLog) Append(e Entry) {
	l.entries = append(l.entries, e)
}

// AddNote records a loop-level observation, such as a skipped redundant
// query, so the synthesis prompt can see what happened.
func (l *EvidenceLog) AddNote(format string, args ...any) {
	l.notes = append(l.notes, fmt.Sprintf(format, args...))
}

func (l *EvidenceLog) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *EvidenceLog) Notes() []string {
	out := make([]string, len(l.notes))
	copy(out, l.notes)
	return out
}

// Empty reports whether no tool produced any usable output.
func (l *EvidenceLog) Empty() bool {
	for _, e := range l.entries {
		if e.OK {
			return false
		}
	}
	return true
}

// Seen reports whether the exact (tool, query) pair was already executed.
// Queries are compared after trimming surrounding whitespace.
func (l *EvidenceLog) Seen(toolName, query string) bool {
	query = strings.TrimSpace(query)
	for _, e := range l.entries {
		if e.Tool == toolName && strings.TrimSpace(e.Query) == query {
			return true
		}
	}
	return false
}

// Documents returns every document gathered so far, deduplicated by URL in
// first appearance order. Documents without a URL are always kept.
func (l *EvidenceLog) Documents() []tool.Document {
	var docs []tool.Document
	seen := make(map[string]bool)
	for _, e := range l.entries {
		for _, d := range e.Documents {
			if d.URL != "" {
				if seen[d.URL] {
					continue
				}
				seen[d.URL] = true
			}
			docs = append(docs, d)
		}
	}
	return docs
}

// Render formats the log for inclusion in a prompt. Successful entries show
// their text payload; failures show the error so the model knows an avenue
// was tried and came up empty.
func (l *EvidenceLog) Render() string {
	if len(l.entries) == 0 && len(l.notes) == 0 {
		return "No tools have been used yet."
	}

	var b strings.Builder
	for i, e := range l.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.OK {
			fmt.Fprintf(&b, "=== %s RESULTS (query: %s) ===\n%s", strings.ToUpper(e.Tool), e.Query, e.Text)
		} else {
			fmt.Fprintf(&b, "=== %s ERROR (query: %s) ===\n%s", strings.ToUpper(e.Tool), e.Query, e.Err)
		}
	}
	for _, n := range l.notes {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "NOTE: %s", n)
	}
	return b.String()
}
