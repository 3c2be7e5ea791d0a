package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"newsrag/config"
	"newsrag/internal/adapter/cache"
	"newsrag/internal/adapter/embedding"
	"newsrag/internal/adapter/feed"
	"newsrag/internal/adapter/generator"
	"newsrag/internal/adapter/kv"
	"newsrag/internal/adapter/retriever"
	"newsrag/internal/adapter/store"
	"newsrag/internal/port"
	"newsrag/internal/usecase"
)

// App holds the wired components shared by every command.
type App struct {
	Config   *config.Config
	Store    port.KVStore
	Index    *store.VectorIndex
	Embedder *embedding.Provider
	History  *usecase.HistoryUseCase
	Answer   *usecase.AnswerUseCase
	Chat     *usecase.ChatUseCase
	Ingest   *usecase.IngestUseCase
}

// NewApp opens the store, reconciles the index schema, loads the index and
// wires the use cases. Missing API keys are not fatal: the fallback
// embedding and the templated answer take over.
func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	target := cfg.Store.RedisURL
	if cfg.Store.Backend == kv.BackendBolt {
		if !filepath.IsAbs(cfg.Store.BoltPath) {
			cfg.Store.BoltPath = filepath.Join(GetRootDir(), cfg.Store.BoltPath)
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		target = cfg.Store.BoltPath
	}

	kvs, err := kv.Open(cfg.Store.Backend, target)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := kvs.Ping(ctx); err != nil {
		kvs.Close()
		return nil, fmt.Errorf("store %s unreachable: %w", cfg.Store.Backend, err)
	}
	log.Info("store connected", "backend", cfg.Store.Backend)

	var remote port.Embedder
	if key := cfg.EmbeddingAPIKey(); key != "" {
		remote, err = embedding.NewClient(embedding.Config{
			BaseURL:   cfg.Embedding.BaseURL,
			APIKey:    key,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err != nil {
			kvs.Close()
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
	} else {
		log.Warn("no embedding API key configured, using fallback embeddings", "env", cfg.Embedding.APIKeyEnv)
	}

	provider := embedding.NewProvider(remote, kvs, cfg.Embedding.Dimension, cfg.Embedding.CacheTTL,
		embedding.WithL1(cache.NewVectorCache(cfg.Embedding.L1Size, cfg.Embedding.CacheTTL)),
		embedding.WithLogger(log),
	)

	index := store.NewVectorIndex(kvs, store.Options{
		Dimension:   cfg.Embedding.Dimension,
		Model:       cfg.Embedding.Model,
		ArticleTTL:  cfg.Retrieve.ArticleTTL,
		MetadataTTL: cfg.Retrieve.MetadataTTL,
		Logger:      log,
	})
	if err := index.Open(ctx); err != nil {
		kvs.Close()
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	var gen port.Generator
	if key := cfg.GenerationAPIKey(); key != "" {
		gen, err = generator.NewGemini(generator.Config{
			BaseURL: cfg.Generation.BaseURL,
			APIKey:  key,
			Model:   cfg.Generation.Model,
			Timeout: cfg.Generation.Timeout,
		})
		if err != nil {
			kvs.Close()
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	} else {
		log.Warn("no generation API key configured, answers will be summaries", "env", cfg.Generation.APIKeyEnv)
	}

	answer := usecase.NewAnswerUseCase(gen, port.GenOptions{
		Temperature:     cfg.Generation.Temperature,
		TopK:            cfg.Generation.TopK,
		TopP:            cfg.Generation.TopP,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
	}, log)

	history := usecase.NewHistoryUseCase(kvs, cfg.History.TTL, cfg.History.MaxMessages, log)

	var dedup port.Deduplicator
	if cfg.Retrieve.DedupJaccard > 0 {
		dedup = retriever.NewDeduplicator(cfg.Retrieve.DedupJaccard)
	}

	chat := usecase.NewChatUseCase(history, provider, index, answer, usecase.ChatOptions{
		TopK:      cfg.Retrieve.TopK,
		Threshold: cfg.Retrieve.Threshold,
		Dedup:     dedup,
		Logger:    log,
	})

	excluder, err := feed.NewExcluder(cfg.Ingest.Excludes)
	if err != nil {
		kvs.Close()
		return nil, err
	}
	fetcher := feed.NewFetcher(cfg.Ingest.FetchTimeout,
		feed.WithExcluder(excluder),
		feed.WithMaxContent(cfg.Ingest.MaxContent),
		feed.WithLogger(log),
	)
	ingest := usecase.NewIngestUseCase(cfg.Ingest.Sources, fetcher, provider, index, usecase.IngestOptions{
		BatchSize:  cfg.Ingest.BatchSize,
		BatchDelay: cfg.Ingest.BatchDelay,
		Logger:     log,
	})

	return &App{
		Config:   cfg,
		Store:    kvs,
		Index:    index,
		Embedder: provider,
		History:  history,
		Answer:   answer,
		Chat:     chat,
		Ingest:   ingest,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
