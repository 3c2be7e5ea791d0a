package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = time.Second
)

// IngestUseCase pulls articles from the configured feeds, embeds them and
// stores them in the vector index.
type IngestUseCase struct {
	sources    []domain.FeedSource
	fetcher    port.FeedFetcher
	embedder   port.EmbeddingProvider
	index      port.VectorIndex
	batchSize  int
	batchDelay time.Duration
	log        *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Failed    int       `json:"failed"`
	Fallbacks int       `json:"fallbackEmbeddings"`
	Batches   int       `json:"batches"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestProgress is called after every batch with the number of articles
// handled so far.
type IngestProgress func(done, total int)

// IngestOptions tunes batching for an IngestUseCase.
type IngestOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	Logger     *slog.Logger
}

func NewIngestUseCase(
	sources []domain.FeedSource,
	fetcher port.FeedFetcher,
	embedder port.EmbeddingProvider,
	index port.VectorIndex,
	opts IngestOptions,
) *IngestUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = DefaultBatchDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IngestUseCase{
		sources:    sources,
		fetcher:    fetcher,
		embedder:   embedder,
		index:      index,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		log:        opts.Logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// WithSleep replaces the pause between batches.
func (u *IngestUseCase) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *IngestUseCase {
	u.sleep = sleep
	return u
}

// WithClock replaces the time source used for processedAt stamps.
func (u *IngestUseCase) WithClock(now func() time.Time) *IngestUseCase {
	u.now = now
	return u
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ingest runs one full ingestion pass. A failing feed contributes no
// articles and a failing article is counted, neither stops the run. Only
// cancellation of ctx ends it early.
func (u *IngestUseCase) Ingest(ctx context.Context, progress IngestProgress) (*IngestResult, error) {
	var articles []domain.Article
	for _, src := range u.sources {
		items, err := u.fetcher.Fetch(ctx, src)
		if err != nil {
			u.log.Warn("feed fetch failed", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		u.log.Info("fetched feed", "source", src.Name, "articles", len(items))
		articles = append(articles, items...)
	}

	result := &IngestResult{Total: len(articles)}
	u.log.Info("starting ingestion", "articles", len(articles), "sources", len(u.sources))

	var processed, failed, fallbacks atomic.Int64
	for start := 0; start < len(articles); start += u.batchSize {
		if err := ctx.Err(); err != nil {
			return u.finish(result, &processed, &failed, &fallbacks), err
		}

		end := min(start+u.batchSize, len(articles))
		g, gctx := errgroup.WithContext(ctx)
		for _, a := range articles[start:end] {
			g.Go(func() error {
				fallback, err := u.ingestOne(gctx, a)
				if err != nil {
					failed.Add(1)
					u.log.Warn("failed to ingest article", "title", a.Title, "source", a.Source, "error", err)
					return nil
				}
				processed.Add(1)
				if fallback {
					fallbacks.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
		result.Batches++

		done := int(processed.Load() + failed.Load())
		if progress != nil {
			progress(done, len(articles))
		}
		if done%10 == 0 || end == len(articles) {
			u.log.Info("ingestion progress", "done", done, "total", len(articles))
		}

		if end < len(articles) {
			if err := u.sleep(ctx, u.batchDelay); err != nil {
				return u.finish(result, &processed, &failed, &fallbacks), err
			}
		}
	}

	u.finish(result, &processed, &failed, &fallbacks)
	u.log.Info("news ingestion completed",
		"processed", result.Processed, "total", result.Total,
		"failed", result.Failed, "fallback_embeddings", result.Fallbacks)
	return result, nil
}

func (u *IngestUseCase) finish(result *IngestResult, processed, failed, fallbacks *atomic.Int64) *IngestResult {
	result.Processed = int(processed.Load())
	result.Failed = int(failed.Load())
	result.Fallbacks = int(fallbacks.Load())
	result.Timestamp = u.now().UTC()
	return result
}

// ingestOne embeds title and content together and stores the article. It
// reports whether the embedding came from the fallback.
func (u *IngestUseCase) ingestOne(ctx context.Context, a domain.Article) (bool, error) {
	emb, err := u.embedder.Embed(ctx, a.Title+"\n\n"+a.Content)
	if err != nil {
		return false, fmt.Errorf("embed: %w", err)
	}
	a.Embedding = emb.Vector
	a.ProcessedAt = u.now().UTC()
	if err := u.index.Upsert(ctx, a); err != nil {
		return false, fmt.Errorf("store: %w", err)
	}
	return emb.IsFallback(), nil
}
