package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/test-writer/internal/agents"
	"github.com/jonathan/test-writer/internal/config"
	"github.com/jonathan/test-writer/internal/db"
	"github.com/jonathan/test-writer/internal/extraction"
	"github.com/jonathan/test-writer/internal/fetch"
	"github.com/jonathan/test-writer/internal/observability"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/schemas"
	"github.com/jonathan/test-writer/internal/storage"
	"github.com/jonathan/test-writer/internal/types"
	"github.com/spf13/cobra"
)

var runCommand = &cobra.Command{
	Use:   "run [file]",
	Short: "Generate test cases from a document end-to-end",
	Long: `Runs the full pipeline over a local document or a web page: extraction -> understanding -> decomposition -> edge cases -> writer -> review -> finalization.

The final test set is written as JSON to --out. Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipelineCmd,
}

var (
	runConfigPath  string
	runURL         string
	runOut         string
	runProvider    string
	runAPIKey      string
	runOllamaHost  string
	runDatabaseURL string
	runUseBrowser  bool
	runVerbose     bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVar(&runURL, "url", "", "Fetch the document from a URL instead of a local file")
	runCommand.Flags().StringVarP(&runOut, "out", "o", "", "Path the final test set JSON is written to")
	runCommand.Flags().StringVar(&runProvider, "provider", "", "LLM provider: ollama or gemini (default: gemini when an API key is set)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print each stage result")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVar(&runOllamaHost, "ollama-host", "", "Ollama endpoint (optional, defaults to OLLAMA_HOST env var)")

	// Database URL for run history persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL for run history (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Validate loaded config
		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if len(args) > 0 {
		cfg.Document = args[0]
	}
	if cmd.Flags().Changed("url") {
		cfg.URL = runURL
	}
	if cmd.Flags().Changed("out") {
		cfg.Out = runOut
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = runProvider
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("ollama-host") {
		cfg.OllamaHost = runOllamaHost
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Config{
		Out: "test_cases.json",
	})

	// Step 4: Validate required fields
	if cfg.Document == "" && cfg.URL == "" {
		return fmt.Errorf("either a document path or --url must be provided (via argument or config)")
	}
	if cfg.Document != "" && cfg.URL != "" {
		return fmt.Errorf("a document path and --url are mutually exclusive; provide only one")
	}

	// Step 5: Environment fallbacks
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = os.Getenv("OLLAMA_HOST")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	llmClient, err := newLLMClient(ctx, cfg.Provider, cfg.APIKey, cfg.OllamaHost)
	if err != nil {
		return err
	}
	defer func() { _ = llmClient.Close() }()

	// In-memory stores; the run is self-contained
	store := storage.NewMemoryStore()
	docs := db.NewMemoryDocumentStore()

	doc, err := loadDocument(ctx, cfg, store, docs)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		MaxConcurrent: 1,
		Validator:     schemas.NewStageValidator(),
	}

	// Optional run history persistence
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare database schema: %w", err)
		}
		opts.Recorder = db.NewRecorder(database)
	}

	extractor := extraction.New(store, llmClient)
	coordinator, err := pipeline.NewCoordinator(memoryResolver{docs: docs}, agents.Roster(llmClient, extractor, docs), opts)
	if err != nil {
		return fmt.Errorf("failed to build coordinator: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coordinator.Close(shutdownCtx)
	}()

	pipelineID, err := coordinator.Start(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	events, unsubscribe, err := coordinator.Subscribe(pipelineID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to pipeline: %w", err)
	}
	defer unsubscribe()

	descriptors := coordinator.Descriptors()
	names := make(map[string]string, len(descriptors))
	position := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		names[d.Name] = d.DisplayName
		position[d.Name] = i + 1
	}

	// The channel closes once the pipeline reaches a terminal state
	for ev := range events {
		if ev.Event == pipeline.EventStageStarted {
			fmt.Printf("Step %d/%d: %s...\n", position[ev.Stage], len(descriptors), names[ev.Stage])
		}
	}

	snap, err := coordinator.WaitFor(ctx, pipelineID)
	if err != nil {
		return fmt.Errorf("pipeline did not finish: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		for _, result := range snap.StageResults {
			printStageResult(printer, result)
		}
	}
	printer.PrintPipelineStatus(string(snap.Status))

	if snap.Status != pipeline.StatusCompleted {
		if snap.Error != nil {
			return fmt.Errorf("pipeline %s at stage %s: %s", snap.Status, snap.Error.Stage, snap.Error.Error())
		}
		return fmt.Errorf("pipeline %s", snap.Status)
	}

	results, err := coordinator.GetResults(pipelineID)
	if err != nil {
		return fmt.Errorf("failed to collect results: %w", err)
	}

	out, err := json.MarshalIndent(results.Final, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode test set: %w", err)
	}
	if err := os.WriteFile(cfg.Out, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Out, err)
	}

	fmt.Printf("Wrote %s\n", cfg.Out)
	return nil
}

// loadDocument stages the input into the blob store and document store,
// either from a local file or by fetching a page.
func loadDocument(ctx context.Context, cfg config.Config, store storage.Store, docs *db.MemoryDocumentStore) (*db.Document, error) {
	var (
		data        []byte
		filename    string
		contentType string
	)

	if cfg.Document != "" {
		var err error
		data, err = os.ReadFile(cfg.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		filename = filepath.Base(cfg.Document)
		contentType = extraction.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(filename))
		}
	} else {
		page, err := fetch.Page(ctx, cfg.URL, &fetch.PageOptions{
			UseBrowser: cfg.UseBrowser,
			Fetch:      fetch.DefaultOptions(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", cfg.URL, err)
		}
		data = []byte(page.Text)
		filename = "page.txt"
		contentType = extraction.ContentTypeText
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	key := storage.Key(filename)
	if err := store.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &db.Document{
		ID:          uuid.New(),
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		S3Key:       key,
		Status:      db.DocumentStatusUploaded,
	}
	if err := docs.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}
	return doc, nil
}

// printStageResult boxes one committed stage output in verbose mode.
func printStageResult(printer *observability.Printer, result pipeline.StageResult) {
	switch out := result.Output.(type) {
	case *types.ExtractedContent:
		printer.PrintExtractedContent(out)
	case *types.DocumentAnalysis:
		printer.PrintDocumentAnalysis(out)
	case *types.RequirementSet:
		printer.PrintRequirements(out)
	case *types.EdgeCaseReport:
		printer.PrintEdgeCases(out)
	case *types.TestSuiteDraft:
		printer.PrintTestSuite(out)
	case *types.ReviewReport:
		printer.PrintReview(out)
	case *types.FinalTestSet:
		printer.PrintFinalSet(out)
	}
}

// memoryResolver answers the coordinator's document existence checks from
// the in-memory store.
type memoryResolver struct {
	docs *db.MemoryDocumentStore
}

func (r memoryResolver) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	doc, err := r.docs.GetDocument(ctx, id)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}
