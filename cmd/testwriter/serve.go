package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/test-writer/internal/db"
	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/server"
	"github.com/jonathan/test-writer/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort          int
	serveMaxConcurrent int64
	serveUseBrowser    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for uploading documents and running the test generation pipeline.

The server reads its backends from the environment: DATABASE_URL enables
PostgreSQL persistence and user accounts (with JWT_SECRET), S3_BUCKET enables
blob storage, GEMINI_API_KEY selects the Gemini provider over local Ollama.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().Int64Var(&serveMaxConcurrent, "max-concurrent", 4, "Maximum simultaneously executing pipelines (0 = unlimited)")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	llmClient, err := newLLMClient(ctx, os.Getenv("LLM_PROVIDER"), os.Getenv("GEMINI_API_KEY"), os.Getenv("OLLAMA_HOST"))
	if err != nil {
		return err
	}

	deps := server.Deps{LLM: llmClient}

	var database *db.DB
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		database, err = db.Connect(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.Database = database
	}

	var blobs *storage.S3Store
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		blobs, err = storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    os.Getenv("S3_REGION"),
			Bucket:    bucket,
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		})
		if err != nil {
			return fmt.Errorf("failed to create s3 store: %w", err)
		}
		deps.Storage = blobs
	}

	// Schema and bucket setup touch independent backends
	g, gCtx := errgroup.WithContext(ctx)
	if database != nil {
		g.Go(func() error { return database.EnsureSchema(gCtx) })
	}
	if blobs != nil {
		g.Go(func() error { return blobs.EnsureBucket(gCtx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to prepare backends: %w", err)
	}

	srv, err := server.New(server.Config{
		Port:          servePort,
		MaxConcurrent: serveMaxConcurrent,
		UseBrowser:    serveUseBrowser,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// newLLMClient picks the provider: an explicit name wins, otherwise Gemini
// when an API key is present and local Ollama when not.
func newLLMClient(ctx context.Context, provider, apiKey, ollamaHost string) (llm.Client, error) {
	if provider == "" {
		if apiKey != "" {
			provider = string(llm.ProviderGemini)
		} else {
			provider = string(llm.ProviderOllama)
		}
	}

	var cfg *llm.Config
	switch llm.Provider(provider) {
	case llm.ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		cfg = llm.DefaultGeminiConfig()
	case llm.ProviderOllama:
		cfg = llm.DefaultOllamaConfig()
		cfg.Host = ollamaHost
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: ollama, gemini)", provider)
	}

	return llm.NewClient(ctx, cfg, apiKey)
}
