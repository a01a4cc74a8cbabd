// Package llm wraps the agentsdk-go model providers behind a minimal
// single-turn completion client.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cexll/agentsdk-go/pkg/model"

	"github.com/stellarlinkco/scout/internal/config"
)

// Client issues one completion per call. Implementations must be safe for
// concurrent use.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type modelClient struct {
	m         model.Model
	modelName string
	maxTokens int
	timeout   time.Duration
}

// NewClient builds a completion client from the provider and agent config
// sections. Supported provider types are "anthropic" and "openai".
func NewClient(prov config.ProviderConfig, agent config.AgentConfig, timeout time.Duration) (Client, error) {
	if prov.APIKey == "" {
		return nil, fmt.Errorf("llm client: api key not configured")
	}

	var provider model.Provider
	switch strings.ToLower(prov.Type) {
	case "", "anthropic":
		provider = &model.AnthropicProvider{
			APIKey:    prov.APIKey,
			BaseURL:   prov.BaseURL,
			ModelName: agent.Model,
		}
	case "openai":
		provider = &model.OpenAIProvider{
			APIKey:    prov.APIKey,
			BaseURL:   prov.BaseURL,
			ModelName: agent.Model,
		}
	default:
		return nil, fmt.Errorf("llm client: unsupported provider type %q", prov.Type)
	}

	m, err := provider.Model(context.Background())
	if err != nil {
		return nil, fmt.Errorf("llm client: init model: %w", err)
	}

	return &modelClient{
		m:         m,
		modelName: agent.Model,
		maxTokens: agent.MaxTokens,
		timeout:   timeout,
	}, nil
}

func (c *modelClient) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("llm complete: empty prompt")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := model.Request{
		Model:     c.modelName,
		System:    system,
		MaxTokens: c.maxTokens,
		Messages: []model.Message{
			{Role: "user", Content: user},
		},
	}

	resp, err := c.m.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", fmt.Errorf("llm complete: empty response")
	}
	return text, nil
}
