package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/stellarlinkco/scout/internal/llm"
	"github.com/stellarlinkco/scout/internal/tool"
)

// Answer is the final product of a research run.
type Answer struct {
	Text      string
	Citations []tool.Document
	Degraded  bool
}

// Synthesizer turns an evidence log into a cited answer. Like the loop it
// never returns an error: if the model cannot be reached it falls back to a
// plain rendering of the evidence.
type Synthesizer struct {
	client  llm.Client
	backoff time.Duration
}

func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client, backoff: 500 * time.Millisecond}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, evidence *EvidenceLog, degraded bool) Answer {
	prompt := buildSynthesisPrompt(question, evidence, degraded)

	text, err := s.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		log.Printf("[research] synthesis failed, retrying once: %v", err)
		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
		}
		text, err = s.client.Complete(ctx, systemPrompt, prompt)
	}
	if err != nil {
		log.Printf("[research] synthesis failed twice, falling back to evidence summary: %v", err)
		return Answer{
			Text:      fallbackText(question, evidence),
			Citations: evidence.Documents(),
			Degraded:  true,
		}
	}

	return Answer{
		Text:      strings.TrimSpace(text),
		Citations: evidence.Documents(),
		Degraded:  degraded,
	}
}

// fallbackText is the answer of last resort when the model is unreachable at
// synthesis time. It admits the failure and lists what was found.
func fallbackText(question string, evidence *EvidenceLog) string {
	var b strings.Builder
	b.WriteString("The research could not be completed because the language model was unavailable during synthesis.")
	docs := evidence.Documents()
	if len(docs) == 0 {
		fmt.Fprintf(&b, " No evidence was gathered for the question: %s", question)
		return b.String()
	}
	b.WriteString(" The following sources were gathered and may be relevant:\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "\n%d. %s", i+1, d.Title)
		if d.URL != "" {
			fmt.Fprintf(&b, " (%s)", d.URL)
		}
		if d.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", d.Snippet)
		}
	}
	return b.String()
}
