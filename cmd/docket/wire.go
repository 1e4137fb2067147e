package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docket/internal/adapters/driven/embedding"
	"github.com/custodia-labs/docket/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/docket/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docket/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/docket/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docket/internal/adapters/driven/extractor"
	"github.com/custodia-labs/docket/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docket/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/docket/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docket/internal/adapters/driving/cli"
	"github.com/custodia-labs/docket/internal/classifier"
	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/core/ports/driving"
	"github.com/custodia-labs/docket/internal/core/services"
	"github.com/custodia-labs/docket/internal/logger"
	"github.com/custodia-labs/docket/internal/metrics"
	"github.com/custodia-labs/docket/internal/postprocessors/chunker"
)

// openSettings opens the config file without validating it.
func openSettings(configPath string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store), nil
}

// buildServices is the composition root: it reads settings and wires
// adapters into the core services.
func buildServices(ctx context.Context, configPath string, verbose bool) (*cli.Services, error) {
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settings, err := store.Settings()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(settings.Log.Env, settings.Log.Level, verbose)
	if err != nil {
		return nil, err
	}
	metrics.Register(prometheus.DefaultRegisterer)

	return wire(ctx, settings, log)
}

// wire builds the services for validated settings.
func wire(ctx context.Context, settings *domain.Settings, log *zap.Logger) (_ *cli.Services, err error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		_ = log.Sync()
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()

	embedder, err := newEmbedder(settings.Embedding, log)
	if err != nil {
		return nil, err
	}
	closers = append(closers, embedder.Close)

	vectors, err := newVectorStore(ctx, settings.Store)
	if err != nil {
		return nil, err
	}
	closers = append(closers, vectors.Close)

	ex, err := extractor.New(settings.OCR, extractor.WithLogger(log.Named("extractor")))
	if err != nil {
		return nil, fmt.Errorf("creating extractor: %w", err)
	}
	if settings.OCR.Enabled {
		if err := extractor.CheckAvailable(); err != nil {
			log.Warn("OCR unavailable; scanned pages will fail extraction",
				zap.Error(err),
				zap.String("install", extractor.InstallInstructions()))
		}
	}

	cls, err := classifier.Load(settings.Ingest.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("loading classification rules: %w", err)
	}

	log.Debug("services wired",
		zap.String("embedding_provider", string(settings.Embedding.Provider)),
		zap.String("embedding_model", embedder.ModelName()),
		zap.String("store", string(settings.Store.Backend)),
		zap.Bool("ocr", settings.OCR.Enabled),
		zap.Bool("embedding_cache", settings.Embedding.CacheAddr != ""))

	return &cli.Services{
		Ingest: services.NewIngestService(ex, chunker.New(), embedder, cls, vectors,
			services.IngestConfigFromSettings(settings), log.Named("ingest")),
		Search:     services.NewSearchService(embedder, vectors, log.Named("search")),
		Document:   services.NewDocumentService(vectors, settings.Document.TextSeparator, log.Named("document")),
		Logger:     log,
		Workers:    settings.Ingest.Workers,
		ServerAddr: settings.Server.Addr,
		Close:      closeAll,
	}, nil
}

// newEmbedder builds the configured provider, wrapped by the Redis cache
// when one is configured.
func newEmbedder(cfg domain.EmbeddingSettings, log *zap.Logger) (driven.EmbeddingService, error) {
	rl := embedding.RateLimitConfig{RequestsPerSecond: cfg.RequestsPerSecond}
	named := log.Named("embedding")

	var svc driven.EmbeddingService
	switch cfg.Provider {
	case domain.EmbeddingProviderLocal:
		svc = local.NewEmbeddingService(local.Config{MaxChars: cfg.MaxChars, Logger: named})
	case domain.EmbeddingProviderOllama:
		svc = ollama.NewEmbeddingService(ollama.Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout(),
			MaxChars:  cfg.MaxChars,
			RateLimit: rl,
			Logger:    named,
		})
	case domain.EmbeddingProviderOpenAI:
		oa, err := openai.NewEmbeddingService(openai.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout(),
			MaxChars:  cfg.MaxChars,
			RateLimit: rl,
			Logger:    named,
		})
		if err != nil {
			return nil, err
		}
		svc = oa
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, cfg.Provider)
	}

	if cfg.CacheAddr == "" {
		return svc, nil
	}
	rs, err := cache.NewRedisStore(cache.RedisConfig{Addr: cfg.CacheAddr, Password: cfg.CachePassword})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return cache.New(svc, rs, named.Named("cache")), nil
}

func newVectorStore(ctx context.Context, cfg domain.StoreSettings) (driven.VectorStore, error) {
	switch cfg.Backend {
	case domain.StoreBackendSQLite:
		return sqlite.NewStore(cfg.Path)
	case domain.StoreBackendPostgres:
		return postgres.NewStore(ctx, cfg.DSN)
	case domain.StoreBackendMemory:
		return memory.NewVectorStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
