package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultModel       = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.2

	DefaultMaxIterations       = 3
	DefaultMaxResults          = 5
	DefaultConfidenceThreshold = 0.8
	DefaultCallTimeoutSeconds  = 30

	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDimension = 1536
	DefaultEmbeddingBatchSize = 16

	DefaultBackfillSchedule = "@hourly"
)

type Config struct {
	Provider    ProviderConfig    `json:"provider"`
	Agent       AgentConfig       `json:"agent"`
	Research    ResearchConfig    `json:"research"`
	Tools       ToolsConfig       `json:"tools"`
	Index       IndexConfig       `json:"index"`
	Channels    ChannelsConfig    `json:"channels"`
	Maintenance MaintenanceConfig `json:"maintenance"`
}

type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "anthropic" (default) or "openai"
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type AgentConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// ResearchConfig carries the knobs of the retrieval loop. MaxIterations is
// the number of tool passes allowed per question; ConfidenceThreshold is the
// minimum confidence for a sufficiency verdict to end the loop, and doubles
// as the minimum similarity for index hits to count as evidence.
type ResearchConfig struct {
	MaxIterations       int     `json:"maxIterations"`
	MaxResults          int     `json:"maxResults"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	CallTimeoutSeconds  int     `json:"callTimeoutSeconds"`
}

type ToolsConfig struct {
	BraveAPIKey string `json:"braveApiKey,omitempty"`
}

type IndexConfig struct {
	DBPath    string          `json:"dbPath,omitempty"`
	Embedding EmbeddingConfig `json:"embedding"`
}

type EmbeddingConfig struct {
	APIKey    string `json:"apiKey,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type MaintenanceConfig struct {
	BackfillSchedule string `json:"backfillSchedule,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{},
		Agent: AgentConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Research: ResearchConfig{
			MaxIterations:       DefaultMaxIterations,
			MaxResults:          DefaultMaxResults,
			ConfidenceThreshold: DefaultConfidenceThreshold,
			CallTimeoutSeconds:  DefaultCallTimeoutSeconds,
		},
		Index: IndexConfig{
			DBPath: filepath.Join(ConfigDir(), "index.db"),
			Embedding: EmbeddingConfig{
				Model:     DefaultEmbeddingModel,
				Dimension: DefaultEmbeddingDimension,
			},
		},
		Maintenance: MaintenanceConfig{
			BackfillSchedule: DefaultBackfillSchedule,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".scout")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("SCOUT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
		if cfg.Provider.Type == "" {
			cfg.Provider.Type = "openai"
		}
	}
	if url := os.Getenv("SCOUT_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("SCOUT_MODEL"); model != "" {
		cfg.Agent.Model = model
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		cfg.Tools.BraveAPIKey = key
	}
	if token := os.Getenv("SCOUT_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if path := os.Getenv("SCOUT_INDEX_DB_PATH"); path != "" {
		cfg.Index.DBPath = path
	}
	if key := os.Getenv("SCOUT_EMBEDDING_API_KEY"); key != "" {
		cfg.Index.Embedding.APIKey = key
	}
	if url := os.Getenv("SCOUT_EMBEDDING_BASE_URL"); url != "" {
		cfg.Index.Embedding.BaseURL = url
	}
	if n := os.Getenv("SCOUT_MAX_ITERATIONS"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil && parsed > 0 {
			cfg.Research.MaxIterations = parsed
		}
	}
	if n := os.Getenv("SCOUT_CONFIDENCE_THRESHOLD"); n != "" {
		if parsed, err := strconv.ParseFloat(n, 64); err == nil && parsed > 0 && parsed <= 1 {
			cfg.Research.ConfidenceThreshold = parsed
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = DefaultModel
	}
	if cfg.Agent.MaxTokens <= 0 {
		cfg.Agent.MaxTokens = DefaultMaxTokens
	}
	if cfg.Research.MaxIterations <= 0 {
		cfg.Research.MaxIterations = DefaultMaxIterations
	}
	if cfg.Research.MaxResults <= 0 {
		cfg.Research.MaxResults = DefaultMaxResults
	}
	if cfg.Research.ConfidenceThreshold <= 0 || cfg.Research.ConfidenceThreshold > 1 {
		cfg.Research.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.Research.CallTimeoutSeconds <= 0 {
		cfg.Research.CallTimeoutSeconds = DefaultCallTimeoutSeconds
	}
	if cfg.Index.DBPath == "" {
		cfg.Index.DBPath = filepath.Join(ConfigDir(), "index.db")
	}
	if cfg.Index.Embedding.Model == "" {
		cfg.Index.Embedding.Model = DefaultEmbeddingModel
	}
	if cfg.Index.Embedding.Dimension <= 0 {
		cfg.Index.Embedding.Dimension = DefaultEmbeddingDimension
	}
	if cfg.Maintenance.BackfillSchedule == "" {
		cfg.Maintenance.BackfillSchedule = DefaultBackfillSchedule
	}
}

// CallTimeout returns the uniform per-call deadline applied to every
// external request made during a research pass.
func (c *Config) CallTimeout() time.Duration {
	secs := c.Research.CallTimeoutSeconds
	if secs <= 0 {
		secs = DefaultCallTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
