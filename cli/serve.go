package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ragserve/ragserve/engine/chat"
	"github.com/ragserve/ragserve/engine/chunk"
	"github.com/ragserve/ragserve/engine/embedder"
	"github.com/ragserve/ragserve/engine/infra/server"
	"github.com/ragserve/ragserve/engine/ingest"
	llmadapter "github.com/ragserve/ragserve/engine/llm/adapter"
	"github.com/ragserve/ragserve/engine/retriever"
	"github.com/ragserve/ragserve/engine/vectordb"
	"github.com/ragserve/ragserve/pkg/config"
	"github.com/ragserve/ragserve/pkg/logger"
)

// NewServeCommand creates the serve command that runs the HTTP server.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ragserve HTTP server",
		RunE:  runServe,
	}
}

// storeAuth maps the scoped store credential onto the provider auth keys.
func storeAuth(store config.StoreConfig) map[string]string {
	if strings.TrimSpace(store.APIKey) == "" {
		return nil
	}
	return map[string]string{"api_key": store.APIKey}
}

func runServe(cobraCmd *cobra.Command, _ []string) error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON)
	log := logger.GetDefault()

	ctx, stop := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWith(ctx, log)

	store, err := vectordb.New(ctx, &vectordb.Config{
		ID:         "primary",
		Provider:   vectordb.Provider(cfg.Store.Provider),
		DSN:        cfg.Store.DSN,
		Path:       cfg.Store.Path,
		Table:      cfg.Store.Table,
		Collection: cfg.Store.Collection,
		Dimension:  cfg.Embedder.Dimension,
		Auth:       storeAuth(cfg.Store),
		MaxTopK:    cfg.Store.MaxTopK,
	})
	if err != nil {
		return fmt.Errorf("serve: connect vector store: %w", err)
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			log.Warn("failed to close vector store", "error", err)
		}
	}()

	emb, err := embedder.New(&embedder.Config{
		ID:            "primary",
		Provider:      embedder.Provider(cfg.Embedder.Provider),
		Model:         cfg.Embedder.Model,
		APIKey:        cfg.Embedder.APIKey,
		BaseURL:       cfg.Embedder.BaseURL,
		Dimension:     cfg.Embedder.Dimension,
		BatchSize:     cfg.Embedder.BatchSize,
		StripNewLines: true,
	})
	if err != nil {
		return fmt.Errorf("serve: build embedder: %w", err)
	}
	if cfg.Embedder.CacheSize > 0 {
		if err := emb.EnableCache(cfg.Embedder.CacheSize); err != nil {
			return fmt.Errorf("serve: enable embedding cache: %w", err)
		}
	}

	processor, err := chunk.NewProcessor(chunk.Settings{
		Size:    cfg.Chunking.Size,
		Overlap: cfg.Chunking.Overlap,
	})
	if err != nil {
		return fmt.Errorf("serve: build chunk processor: %w", err)
	}

	ingestSvc, err := ingest.NewService(store, emb, processor,
		ingest.WithUploadDir(cfg.Upload.Dir),
		ingest.WithMaxFileSize(int64(cfg.Upload.MaxFileSizeMB)*1024*1024),
		ingest.WithAllowedTypes(cfg.Upload.AllowedTypes),
	)
	if err != nil {
		return fmt.Errorf("serve: build ingest service: %w", err)
	}

	retrieverSvc, err := retriever.NewService(store, emb, cfg.Retrieval.TopK)
	if err != nil {
		return fmt.Errorf("serve: build retriever: %w", err)
	}

	llm, err := llmadapter.NewLangChainAdapter(&llmadapter.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   int32(cfg.LLM.MaxTokens),
	})
	if err != nil {
		return fmt.Errorf("serve: build llm adapter: %w", err)
	}
	defer func() {
		if err := llm.Close(); err != nil {
			log.Warn("failed to close llm adapter", "error", err)
		}
	}()

	chatSvc, err := chat.NewService(retrieverSvc, llm, cfg.LLM.Model)
	if err != nil {
		return fmt.Errorf("serve: build chat service: %w", err)
	}

	srv, err := server.NewServer(cfg, log, server.Dependencies{
		Ingest:  ingestSvc,
		Chat:    chatSvc,
		Counter: store,
		Version: Version,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
