package llm

import (
	"testing"
	"time"

	"github.com/stellarlinkco/scout/internal/config"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.ProviderConfig{}, config.AgentConfig{Model: "m"}, time.Second)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(config.ProviderConfig{Type: "palm", APIKey: "k"}, config.AgentConfig{Model: "m"}, time.Second)
	if err == nil {
		t.Fatal("expected error for unknown provider type")
	}
}
