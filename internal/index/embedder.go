package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stellarlinkco/scout/internal/config"
)

const defaultEmbeddingBaseURL = "https://api.openai.com/v1"

// Embedder turns text into vectors. The HTTP implementation talks to any
// OpenAI-compatible /embeddings endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type embedderClient struct {
	baseURL     string
	apiKey      string
	model       string
	expectedDim int
	batchSize   int
	httpClient  *http.Client
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewEmbedder(cfg config.EmbeddingConfig, timeout time.Duration) Embedder {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultEmbeddingBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultEmbeddingModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &embedderClient{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		expectedDim: cfg.Dimension,
		batchSize:   config.DefaultEmbeddingBatchSize,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *embedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.request(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed: expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

func (c *embedderClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch: expected %d embeddings, got %d", end-start, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *embedderClient) request(ctx context.Context, input any) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("embed: missing embedding api key")
	}

	payload, err := json.Marshal(embeddingRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response data")
	}

	// Responses may arrive out of order; honor the index field.
	vecs := make([][]float32, len(decoded.Data))
	for _, d := range decoded.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embed: embedding index %d out of range", d.Index)
		}
		if c.expectedDim > 0 && len(d.Embedding) != c.expectedDim {
			return nil, fmt.Errorf("embed: dimension %d, want %d", len(d.Embedding), c.expectedDim)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("embed: missing embedding at index %d", i)
		}
	}
	return vecs, nil
}
