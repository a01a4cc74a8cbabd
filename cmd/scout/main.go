package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/scout/internal/channel"
	"github.com/stellarlinkco/scout/internal/config"
	"github.com/stellarlinkco/scout/internal/index"
	"github.com/stellarlinkco/scout/internal/llm"
	"github.com/stellarlinkco/scout/internal/maintenance"
	"github.com/stellarlinkco/scout/internal/research"
	"github.com/stellarlinkco/scout/internal/tool"
)

// Answerer is the research entry point (allows mocking in tests)
type Answerer interface {
	Answer(ctx context.Context, question string) (research.Answer, error)
}

// AnswererFactory creates an Answerer from config
type AnswererFactory func(cfg *config.Config) (Answerer, func(), error)

// DefaultAnswererFactory wires the real LLM client, index, tools, and agent.
func DefaultAnswererFactory(cfg *config.Config) (Answerer, func(), error) {
	if cfg.Provider.APIKey == "" {
		return nil, nil, fmt.Errorf("API key not set. Run 'scout onboard' or set SCOUT_API_KEY / ANTHROPIC_API_KEY")
	}

	client, err := llm.NewClient(cfg.Provider, cfg.Agent, cfg.CallTimeout())
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	agent := research.NewAgent(client, registry, cfg.Research)
	cleanup := func() { store.Close() }
	return agent, cleanup, nil
}

func openStore(cfg *config.Config) (*index.Store, error) {
	var embedder index.Embedder
	if cfg.Index.Embedding.APIKey != "" {
		embedder = index.NewEmbedder(cfg.Index.Embedding, cfg.CallTimeout())
	}
	return index.Open(cfg.Index.DBPath, embedder)
}

// buildRegistry registers every tool whose credentials are present. A
// missing credential excludes that tool; it never fails startup.
func buildRegistry(cfg *config.Config, store *index.Store) (*tool.Registry, error) {
	registry := tool.NewRegistry()

	tools := []tool.Tool{
		tool.NewBraveSearch(cfg.Tools.BraveAPIKey, cfg.Research.MaxResults, cfg.CallTimeout()),
		tool.NewArxivSearch(cfg.Research.MaxResults, cfg.CallTimeout()),
		tool.NewWebScrape(cfg.CallTimeout()),
		tool.NewCalculator(),
		tool.NewIndexSearch(store, cfg.Research.MaxResults, cfg.Research.ConfidenceThreshold),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}
	return registry, nil
}

// AskOptions for running ask with custom dependencies
type AskOptions struct {
	Factory AnswererFactory
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "scout - iterative research assistant",
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question in single message or REPL mode",
	RunE:  runAsk,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run long-lived mode (Telegram channel + index maintenance)",
	RunE:  runServe,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local document index",
}

var indexAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Add a document to the index",
	RunE:  runIndexAdd,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndexSearch,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runIndexStats,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scout status",
	RunE:  runStatus,
}

var (
	messageFlag string
	titleFlag   string
	urlFlag     string
	fileFlag    string
)

func init() {
	askCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single question to ask")
	indexAddCmd.Flags().StringVar(&titleFlag, "title", "", "Document title")
	indexAddCmd.Flags().StringVar(&urlFlag, "url", "", "Document source URL")
	indexAddCmd.Flags().StringVar(&fileFlag, "file", "", "Read document content from file")
	indexCmd.AddCommand(indexAddCmd, indexSearchCmd, indexStatsCmd)
	rootCmd.AddCommand(askCmd, serveCmd, indexCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	return runAskWithOptions(AskOptions{})
}

// runAskWithOptions runs ask with injectable dependencies for testing
func runAskWithOptions(opts AskOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	factory := opts.Factory
	if factory == nil {
		factory = DefaultAnswererFactory
	}

	agent, cleanup, err := factory(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	ctx := context.Background()

	// Single question mode
	if messageFlag != "" {
		answer, err := agent.Answer(ctx, messageFlag)
		if err != nil {
			return fmt.Errorf("research error: %w", err)
		}
		fmt.Fprintln(stdout, channel.FormatAnswer(answer))
		return nil
	}

	// REPL mode
	fmt.Fprintln(stdout, "scout (type 'exit' to quit)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		answer, err := agent.Answer(ctx, input)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(stdout, channel.FormatAnswer(answer))
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'scout onboard' or set SCOUT_API_KEY / ANTHROPIC_API_KEY")
	}

	client, err := llm.NewClient(cfg.Provider, cfg.Agent, cfg.CallTimeout())
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		return err
	}
	agent := research.NewAgent(client, registry, cfg.Research)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := maintenance.NewScheduler(store, cfg.Maintenance.BackfillSchedule)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	var tg *channel.TelegramChannel
	if cfg.Channels.Telegram.Enabled {
		tg, err = channel.NewTelegramChannel(cfg.Channels.Telegram, agent)
		if err != nil {
			return fmt.Errorf("create telegram channel: %w", err)
		}
		if err := tg.Start(ctx); err != nil {
			return fmt.Errorf("start telegram channel: %w", err)
		}
		defer tg.Stop()
	} else {
		fmt.Println("Telegram channel disabled; running maintenance only")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("shutting down")
	return nil
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var content string
	switch {
	case fileFlag != "":
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		content = string(data)
	case len(args) > 0:
		content = strings.Join(args, " ")
	default:
		return fmt.Errorf("provide content as arguments or via --file")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Add(context.Background(), index.Document{
		Title:   titleFlag,
		URL:     urlFlag,
		Content: content,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Indexed document %d\n", id)
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	query := strings.Join(args, " ")
	hits, err := store.Search(context.Background(), query, cfg.Research.MaxResults, cfg.Research.ConfidenceThreshold)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No matches")
		return nil
	}
	for i, hit := range hits {
		title := hit.Document.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s (%.2f)\n", i+1, title, hit.Score)
		if hit.Document.URL != "" {
			fmt.Printf("   %s\n", hit.Document.URL)
		}
	}
	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Documents: %d\n", stats.Documents)
	fmt.Printf("Pending embeddings: %d\n", stats.Pending)
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set SCOUT_API_KEY environment variable")
	fmt.Println("  3. Set BRAVE_API_KEY to enable web search")
	fmt.Println("  4. Run 'scout ask -m \"What is Go?\"' to test")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Agent.Model)
	fmt.Printf("Provider: %s\n", providerDisplay(cfg.Provider.Type))
	fmt.Printf("API Key: %s\n", maskKey(cfg.Provider.APIKey))
	fmt.Printf("Max iterations: %d\n", cfg.Research.MaxIterations)
	fmt.Printf("Confidence threshold: %.2f\n", cfg.Research.ConfidenceThreshold)
	fmt.Printf("Web search: %s\n", enabledDisplay(cfg.Tools.BraveAPIKey != ""))
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)

	store, err := openStore(cfg)
	if err != nil {
		fmt.Printf("Index: error (%v)\n", err)
		return nil
	}
	defer store.Close()
	if stats, err := store.Stats(context.Background()); err == nil {
		fmt.Printf("Index: %d documents (%d pending embeddings)\n", stats.Documents, stats.Pending)
	}

	return nil
}

func providerDisplay(t string) string {
	if t == "" {
		return "anthropic (default)"
	}
	return t
}

func enabledDisplay(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled (no API key)"
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "not set"
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	default:
		return "set"
	}
}
