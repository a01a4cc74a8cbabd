package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellarlinkco/scout/internal/config"
	"github.com/stellarlinkco/scout/internal/index"
	"github.com/stellarlinkco/scout/internal/research"
	"github.com/stellarlinkco/scout/internal/tool"
)

type fakeAnswerer struct {
	answer    research.Answer
	questions []string
}

func (f *fakeAnswerer) Answer(_ context.Context, question string) (research.Answer, error) {
	f.questions = append(f.questions, question)
	return f.answer, nil
}

func fakeFactory(f *fakeAnswerer) AnswererFactory {
	return func(cfg *config.Config) (Answerer, func(), error) {
		return f, func() {}, nil
	}
}

func TestRunAskSingleMessage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	fake := &fakeAnswerer{answer: research.Answer{
		Text:      "Go 1.18 added generics.",
		Citations: []tool.Document{{Title: "Go blog", URL: "https://go.dev/blog"}},
	}}

	messageFlag = "when did Go get generics?"
	defer func() { messageFlag = "" }()

	var stdout, stderr bytes.Buffer
	err := runAskWithOptions(AskOptions{
		Factory: fakeFactory(fake),
		Stdin:   strings.NewReader(""),
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("run ask: %v", err)
	}

	if len(fake.questions) != 1 || fake.questions[0] != "when did Go get generics?" {
		t.Fatalf("questions = %v", fake.questions)
	}
	out := stdout.String()
	if !strings.Contains(out, "Go 1.18 added generics.") {
		t.Fatalf("stdout = %q", out)
	}
	if !strings.Contains(out, "https://go.dev/blog") {
		t.Fatalf("stdout missing citation: %q", out)
	}
}

func TestRunAskREPL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	fake := &fakeAnswerer{answer: research.Answer{Text: "answered"}}

	messageFlag = ""
	var stdout, stderr bytes.Buffer
	err := runAskWithOptions(AskOptions{
		Factory: fakeFactory(fake),
		Stdin:   strings.NewReader("first question\n\nsecond question\nexit\n"),
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("run ask: %v", err)
	}

	if len(fake.questions) != 2 {
		t.Fatalf("questions = %v, want 2 (blank line skipped, exit stops)", fake.questions)
	}
	if fake.questions[0] != "first question" || fake.questions[1] != "second question" {
		t.Fatalf("questions = %v", fake.questions)
	}
}

func TestBuildRegistryExcludesUnconfiguredTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.BraveAPIKey = "" // web search unconfigured

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	names := registry.Names()
	if len(names) != 5 {
		t.Fatalf("registered %d tools, want all 5", len(names))
	}

	// Unconfigured tools stay registered but unavailable.
	if registry.IsAvailable("web_search") {
		t.Fatal("web_search should be unavailable without an API key")
	}
	if registry.IsAvailable("index_search") {
		t.Fatal("index_search should be unavailable on an empty index")
	}
	if !registry.IsAvailable("calculator") {
		t.Fatal("calculator should always be available")
	}
	if !registry.IsAvailable("arxiv_search") {
		t.Fatal("arxiv_search should always be available")
	}
	if !registry.IsAvailable("web_scrape") {
		t.Fatal("web_scrape should always be available")
	}

	avail := registry.Available()
	if len(avail) != 3 {
		t.Fatalf("got %d available tools, want 3", len(avail))
	}
}

func TestBuildRegistryWithBraveKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.BraveAPIKey = "key"

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if !registry.IsAvailable("web_search") {
		t.Fatal("web_search should be available with an API key")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "not set"},
		{"short", "set"},
		{"sk-ant-1234567890", "sk-a...7890"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.in); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProviderDisplay(t *testing.T) {
	if got := providerDisplay(""); got != "anthropic (default)" {
		t.Fatalf("providerDisplay(\"\") = %q", got)
	}
	if got := providerDisplay("openai"); got != "openai" {
		t.Fatalf("providerDisplay(openai) = %q", got)
	}
}
