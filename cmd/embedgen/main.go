// embedgen regenerates the embedding artifact from the catalog data files.
// Run it whenever the catalog or the embedding model changes.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/config"
	logpkg "github.com/kotonoha-labs/birthdex/internal/logger"
	catalogrepo "github.com/kotonoha-labs/birthdex/internal/repository/catalog"
	openaiTransport "github.com/kotonoha-labs/birthdex/internal/transport/openai"
	"github.com/kotonoha-labs/birthdex/internal/usecase/embedgen"
)

func main() {
	_ = godotenv.Load()

	out := flag.String("out", "", "output path, defaults to the configured embeddings path")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Provider.APIKey == "" {
		logger.Fatal("Provider API key is required to generate embeddings")
	}

	outPath := *out
	if outPath == "" {
		outPath = cfg.Content.EmbeddingsPath
	}

	loader := catalogrepo.New(catalogrepo.Config{
		CatalogPath: cfg.Content.CatalogPath,
		MetaPath:    cfg.Content.MetaPath,
	}, logger)
	snap, err := loader.Snapshot()
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	embedder := openaiTransport.NewEmbedder(openaiTransport.Config{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		EmbedModel: cfg.Provider.EmbedModel,
		Logger:     logger,
	})

	gen := embedgen.NewGenerator(embedder, embedgen.Options{
		Retryable: openaiTransport.IsRetryable,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Generating embeddings",
		zap.String("model", cfg.Provider.EmbedModel),
		zap.String("out", outPath),
		zap.Int("dates", len(snap.Dates)),
	)

	artifact, err := gen.Generate(ctx, snap)
	if err != nil {
		logger.Fatal("Failed to generate embeddings", zap.Error(err))
	}

	if err := embedgen.WriteArtifact(outPath, artifact); err != nil {
		logger.Fatal("Failed to write artifact", zap.Error(err))
	}

	logger.Info("Embeddings written",
		zap.Int("items", len(artifact.Items)),
		zap.Int("phrases", len(artifact.Phrases)),
	)
}
