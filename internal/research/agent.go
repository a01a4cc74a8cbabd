package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/stellarlinkco/scout/internal/config"
	"github.com/stellarlinkco/scout/internal/llm"
	"github.com/stellarlinkco/scout/internal/tool"
)

// Agent answers questions by running the retrieval loop and synthesizing
// over whatever it gathered. One Agent serves many questions; each call gets
// a fresh evidence log and iteration budget.
type Agent struct {
	client        llm.Client
	registry      *tool.Registry
	maxIterations int
	threshold     float64
	synth         *Synthesizer
}

func NewAgent(client llm.Client, registry *tool.Registry, cfg config.ResearchConfig) *Agent {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = config.DefaultMaxIterations
	}
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = config.DefaultConfidenceThreshold
	}
	return &Agent{
		client:        client,
		registry:      registry,
		maxIterations: maxIter,
		threshold:     threshold,
		synth:         NewSynthesizer(client),
	}
}

// Answer runs the full research process for one question. It returns an
// error only for an empty question or a context cancelled before synthesis
// could produce anything; every other failure degrades into an Answer.
func (a *Agent) Answer(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("research: empty question")
	}

	log.Printf("[research] answering: %s", question)

	loop := NewLoop(a.client, a.registry, a.maxIterations, a.threshold)
	evidence, degraded := loop.Run(ctx, question)

	if err := ctx.Err(); err != nil && evidence.Empty() {
		return Answer{}, fmt.Errorf("research: %w", err)
	}

	answer := a.synth.Synthesize(ctx, question, evidence, degraded)
	log.Printf("[research] answered with %d citations (degraded=%v)", len(answer.Citations), answer.Degraded)
	return answer, nil
}
