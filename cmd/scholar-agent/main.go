package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/scholar-agent/pkg/clients"
	"github.com/mikeboe/scholar-agent/pkg/config"
	"github.com/mikeboe/scholar-agent/pkg/database"
	"github.com/mikeboe/scholar-agent/pkg/embeddings"
	"github.com/mikeboe/scholar-agent/pkg/export"
	"github.com/mikeboe/scholar-agent/pkg/library"
	"github.com/mikeboe/scholar-agent/pkg/research"
	"github.com/mikeboe/scholar-agent/pkg/search"
)

var (
	topic    string
	provider string
	outDir   string
	indexRun bool
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	rootCmd := &cobra.Command{
		Use:   "scholar-agent",
		Short: "A terminal-based research agent",
		Long:  `scholar-agent splits a topic into sub-topics, researches each one against a web search provider in parallel, and synthesizes the findings into a single report.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if provider != "" {
				cfg.SearchProvider = provider
			}

			topicFlagChanged := cmd.Flags().Changed("topic")

			if !topicFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)
			}
			if topic == "" {
				slog.Error("Topic cannot be empty")
				os.Exit(1)
			}

			slog.Info("Starting research", "topic", topic, "provider", cfg.SearchProvider)

			llm, err := buildCompleter(cfg)
			if err != nil {
				slog.Error("Failed to init LLM client", "error", err)
				os.Exit(1)
			}

			searchClient, err := search.NewClient(cfg)
			if err != nil {
				slog.Error("Failed to init search client", "error", err)
				os.Exit(1)
			}

			pipeline := research.NewPipeline(
				research.NewTopicSplitter(llm),
				research.NewResearcher(llm, searchClient, cfg.SearchResults, cfg.TopSources),
				research.NewSynthesizer(llm),
			)
			pipeline.MaxWorkers = cfg.MaxWorkers

			onProgress := func(message string, completed, total float64) {
				fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", completed/total*100, message)
			}

			result, err := pipeline.Run(context.Background(), topic, onProgress)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			fmt.Println()
			fmt.Println(export.Markdown(result))

			if outDir != "" {
				paths, err := export.WriteFiles(outDir, result)
				if err != nil {
					slog.Error("Failed to write output files", "error", err)
					os.Exit(1)
				}
				for _, p := range paths {
					slog.Info("Wrote output file", "path", p)
				}
			}

			if indexRun {
				if err := indexIntoLibrary(context.Background(), cfg, result); err != nil {
					slog.Error("Failed to index run into library", "error", err)
					os.Exit(1)
				}
			}
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().StringVar(&provider, "provider", "", "Search provider: tavily, serpapi or arxiv")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write report.md, report.json and sources.json")
	rootCmd.Flags().BoolVar(&indexRun, "index", false, "Index sources and findings into the pgvector library")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildCompleter(cfg *config.Config) (research.CompletionClient, error) {
	if cfg.OpenAIApiKey != "" {
		llm, err := clients.OpenAI(cfg.OpenAIApiKey, clients.ModelType(cfg.ReasoningModel))
		if err != nil {
			return nil, err
		}
		return clients.NewCompleter(llm), nil
	}
	if cfg.GoogleApiKey != "" {
		llm, err := clients.GoogleAI(context.Background(), cfg.GoogleApiKey, clients.GeminiFlash)
		if err != nil {
			return nil, err
		}
		return clients.NewCompleter(llm), nil
	}
	return nil, fmt.Errorf("no LLM API key configured, set OPENAI_API_KEY or GOOGLE_API_KEY")
}

func indexIntoLibrary(ctx context.Context, cfg *config.Config, result *research.Result) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		return err
	}

	store, err := library.NewStore(db, embedder, cfg.CollectionName, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	return store.IndexRun(ctx, result)
}
