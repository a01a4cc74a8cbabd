package research

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/stellarlinkco/scout/internal/llm"
	"github.com/stellarlinkco/scout/internal/tool"
)

// State names the phases of the retrieval loop.
type State int

const (
	StateDeciding State = iota
	StateExecuting
	StateEvaluating
	StateSynthesizing
)

func (s State) String() string {
	switch s {
	case StateDeciding:
		return "deciding"
	case StateExecuting:
		return "executing"
	case StateEvaluating:
		return "evaluating"
	case StateSynthesizing:
		return "synthesizing"
	default:
		return "unknown"
	}
}

// Loop runs the iterative retrieval process for one question. It never
// returns an error: every failure mode degrades into synthesis over
// whatever evidence exists.
type Loop struct {
	client    llm.Client
	registry  *tool.Registry
	budget    int
	threshold float64
	backoff   time.Duration
}

func NewLoop(client llm.Client, registry *tool.Registry, maxIterations int, threshold float64) *Loop {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	return &Loop{
		client:    client,
		registry:  registry,
		budget:    maxIterations,
		threshold: threshold,
		backoff:   500 * time.Millisecond,
	}
}

// Run gathers evidence for the question and reports whether the process
// degraded (repeated model failures or cancellation) before a clean finish.
func (l *Loop) Run(ctx context.Context, question string) (*EvidenceLog, bool) {
	evidence := NewEvidenceLog()
	budget := l.budget
	var missing []string
	failures := 0

	for {
		if ctx.Err() != nil {
			log.Printf("[research] cancelled before %s, moving to synthesis", StateDeciding)
			return evidence, true
		}

		decision, err := l.decide(ctx, question, evidence, missing)
		if err != nil {
			failures++
			log.Printf("[research] decision failed (%d consecutive): %v", failures, err)
			if failures >= 2 {
				return evidence, true
			}
			l.wait(ctx)
			continue
		}

		if !decision.NeedTool {
			log.Printf("[research] no tool needed: %s", decision.Reasoning)
			return evidence, false
		}

		calls, bad := l.resolve(decision.Calls())
		if len(calls) == 0 {
			failures++
			log.Printf("[research] decision named unusable tool %q (%d consecutive)", bad, failures)
			if failures >= 2 {
				return evidence, true
			}
			l.wait(ctx)
			continue
		}
		failures = 0

		fresh := calls[:0]
		for _, c := range calls {
			if evidence.Seen(c.Tool, c.Query) {
				evidence.AddNote("skipped redundant %s query: %s", c.Tool, c.Query)
				log.Printf("[research] skipping redundant %s query %q", c.Tool, c.Query)
				continue
			}
			fresh = append(fresh, c)
		}

		if len(fresh) > 0 {
			l.execute(ctx, fresh, evidence)
		}
		budget--
		if budget <= 0 {
			log.Printf("[research] iteration budget exhausted, moving to synthesis")
			return evidence, false
		}

		if ctx.Err() != nil {
			return evidence, true
		}

		verdict, err := l.evaluate(ctx, question, evidence)
		if err != nil {
			log.Printf("[research] evaluation failed, retrying: %v", err)
			l.wait(ctx)
			verdict, err = l.evaluate(ctx, question, evidence)
			if err != nil {
				log.Printf("[research] evaluation failed twice: %v", err)
				return evidence, true
			}
		}

		if verdict.Sufficient && verdict.Confidence >= l.threshold {
			log.Printf("[research] evidence sufficient (confidence %.2f)", verdict.Confidence)
			return evidence, false
		}
		missing = verdict.MissingAspects
		log.Printf("[research] evidence insufficient (confidence %.2f), missing: %s",
			verdict.Confidence, strings.Join(missing, "; "))
	}
}

func (l *Loop) decide(ctx context.Context, question string, evidence *EvidenceLog, missing []string) (Decision, error) {
	prompt := buildDecisionPrompt(question, l.registry.Available(), evidence, missing)
	raw, err := l.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Decision{}, err
	}
	return ParseDecision(raw)
}

func (l *Loop) evaluate(ctx context.Context, question string, evidence *EvidenceLog) (Verdict, error) {
	prompt := buildSufficiencyPrompt(question, evidence)
	raw, err := l.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Verdict{}, err
	}
	return ParseVerdict(raw)
}

// resolve keeps the calls whose tool is registered and currently available.
// It returns the first rejected tool name for logging.
func (l *Loop) resolve(calls []Call) ([]Call, string) {
	var usable []Call
	var bad string
	for _, c := range calls {
		t, err := l.registry.Get(c.Tool)
		if err != nil || !t.Available() {
			if bad == "" {
				bad = c.Tool
			}
			continue
		}
		usable = append(usable, c)
	}
	return usable, bad
}

// execute runs the calls concurrently and appends their results to the log
// in registry registration order, so the evidence is deterministic no matter
// which tool finishes first.
func (l *Loop) execute(ctx context.Context, calls []Call, evidence *EvidenceLog) {
	results := make([]tool.Result, len(calls))
	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func(i int, c Call) {
			defer wg.Done()
			t, err := l.registry.Get(c.Tool)
			if err != nil {
				results[i] = tool.Result{Tool: c.Tool, Err: err.Error()}
				return
			}
			log.Printf("[research] executing %s: %s", c.Tool, c.Query)
			results[i] = t.Execute(ctx, c.Query)
		}(i, c)
	}
	wg.Wait()

	order := make(map[string]int)
	for i, name := range l.registry.Names() {
		order[name] = i
	}
	for i := 0; i < len(calls); i++ {
		for j := i + 1; j < len(calls); j++ {
			if order[calls[j].Tool] < order[calls[i].Tool] {
				calls[i], calls[j] = calls[j], calls[i]
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	for i, c := range calls {
		r := results[i]
		if r.OK {
			log.Printf("[research] %s returned %d documents", c.Tool, len(r.Documents))
		} else {
			log.Printf("[research] %s failed: %s", c.Tool, r.Err)
		}
		evidence.Append(Entry{
			Tool:      c.Tool,
			Query:     c.Query,
			OK:        r.OK,
			Text:      r.Text,
			Err:       r.Err,
			Documents: r.Documents,
		})
	}
}

func (l *Loop) wait(ctx context.Context) {
	if l.backoff <= 0 {
		return
	}
	select {
	case <-time.After(l.backoff):
	case <-ctx.Done():
	}
}
