package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

var _ port.VectorIndex = (*VectorIndex)(nil)

const (
	articleKeyPrefix = "article:"
	keyMetadata      = "vectorstore:metadata"

	DefaultTopK      = 5
	DefaultThreshold = 0.3
)

// VectorIndex keeps every article in memory for brute-force cosine search
// and mirrors each one to the KV store so the index survives a restart.
type VectorIndex struct {
	kv          port.KVStore
	dimension   int
	model       string
	articleTTL  time.Duration
	metadataTTL time.Duration
	log         *slog.Logger
	now         func() time.Time

	// writes holds off upserts while Reload or Clear replaces the whole
	// set, so an article committed mid-reload is not dropped from memory.
	writes sync.RWMutex
	// metaMu orders metadata snapshots with their writes.
	metaMu sync.Mutex

	mu       sync.RWMutex
	articles []domain.Article
	byID     map[string]int
}

// Options configures a VectorIndex.
type Options struct {
	Dimension   int
	Model       string
	ArticleTTL  time.Duration
	MetadataTTL time.Duration
	Logger      *slog.Logger
}

func NewVectorIndex(kv port.KVStore, opts Options) *VectorIndex {
	if opts.ArticleTTL <= 0 {
		opts.ArticleTTL = 7 * 24 * time.Hour
	}
	if opts.MetadataTTL <= 0 {
		opts.MetadataTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &VectorIndex{
		kv:          kv,
		dimension:   opts.Dimension,
		model:       opts.Model,
		articleTTL:  opts.ArticleTTL,
		metadataTTL: opts.MetadataTTL,
		log:         opts.Logger,
		now:         time.Now,
		byID:        make(map[string]int),
	}
}

// WithClock replaces the time source used for metadata timestamps.
func (ix *VectorIndex) WithClock(now func() time.Time) *VectorIndex {
	ix.now = now
	return ix
}

func articleKey(id string) string {
	return articleKeyPrefix + id
}

// Open reconciles the stored schema with the configured embedding model and
// loads the durable articles into memory.
func (ix *VectorIndex) Open(ctx context.Context) error {
	if err := ix.Migrate(ctx); err != nil {
		return err
	}
	if err := ix.Reload(ctx); err != nil {
		ix.log.Warn("vector index reload failed, starting empty", "error", err)
	}
	return nil
}

// Upsert stores article, replacing any previous version with the same id.
// A replaced article keeps its position in the in-memory order.
func (ix *VectorIndex) Upsert(ctx context.Context, article domain.Article) error {
	if len(article.Embedding) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingEmbedding, article.ID)
	}
	if ix.dimension > 0 && len(article.Embedding) != ix.dimension {
		return fmt.Errorf("%w: article %s has %d, index expects %d",
			domain.ErrDimensionMismatch, article.ID, len(article.Embedding), ix.dimension)
	}

	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("failed to encode article %s: %w", article.ID, err)
	}

	ix.writes.RLock()
	defer ix.writes.RUnlock()

	key := articleKey(article.ID)
	if err := ix.kv.Set(ctx, key, data, ix.articleTTL); err != nil {
		return &domain.StorageError{Op: "set", Key: key, Err: err}
	}

	ix.mu.Lock()
	if i, ok := ix.byID[article.ID]; ok {
		ix.articles[i] = article
	} else {
		ix.byID[article.ID] = len(ix.articles)
		ix.articles = append(ix.articles, article)
	}
	ix.mu.Unlock()

	ix.persistMetadata(ctx)
	return nil
}

// Search returns up to k articles whose cosine similarity to query is
// strictly greater than threshold, best first. Equal scores keep insertion
// order. k <= 0 selects DefaultTopK. An empty index is reloaded from the
// KV store before searching.
func (ix *VectorIndex) Search(ctx context.Context, query []float32, k int, threshold float64) ([]domain.ScoredArticle, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	if ix.Len() == 0 {
		if err := ix.Reload(ctx); err != nil {
			ix.log.Warn("lazy vector index reload failed", "error", err)
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.articles) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredArticle, 0, len(ix.articles))
	for _, a := range ix.articles {
		sim, err := CosineSimilarity(query, a.Embedding)
		if err != nil {
			return nil, err
		}
		if sim > threshold {
			scored = append(scored, domain.ScoredArticle{Article: a, Score: sim})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Reload replaces the in-memory set with the articles found in the KV
// store. Malformed records and records whose embedding does not fit the
// index are skipped.
func (ix *VectorIndex) Reload(ctx context.Context) error {
	ix.writes.Lock()
	defer ix.writes.Unlock()

	keys, err := ix.kv.Keys(ctx, articleKeyPrefix)
	if err != nil {
		return &domain.StorageError{Op: "scan", Key: articleKeyPrefix + "*", Err: err}
	}

	loaded := make([]domain.Article, 0, len(keys))
	skipped := 0
	for _, key := range keys {
		data, err := ix.kv.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				ix.log.Warn("failed to read stored article", "key", key, "error", err)
			}
			skipped++
			continue
		}
		var a domain.Article
		if err := json.Unmarshal(data, &a); err != nil {
			ix.log.Warn("skipping malformed stored article", "key", key, "error", err)
			skipped++
			continue
		}
		if len(a.Embedding) == 0 || (ix.dimension > 0 && len(a.Embedding) != ix.dimension) {
			skipped++
			continue
		}
		if a.ID == "" {
			a.ID = strings.TrimPrefix(key, articleKeyPrefix)
		}
		loaded = append(loaded, a)
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		if !loaded[i].ProcessedAt.Equal(loaded[j].ProcessedAt) {
			return loaded[i].ProcessedAt.Before(loaded[j].ProcessedAt)
		}
		return loaded[i].ID < loaded[j].ID
	})

	ix.mu.Lock()
	ix.articles = loaded
	ix.byID = make(map[string]int, len(loaded))
	for i, a := range loaded {
		ix.byID[a.ID] = i
	}
	ix.mu.Unlock()

	ix.log.Info("vector index loaded", "articles", len(loaded), "skipped", skipped)
	return nil
}

// Stats reports the in-memory and durable article counts together with the
// stored metadata, recomputing the metadata when it has expired.
func (ix *VectorIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	keys, err := ix.kv.Keys(ctx, articleKeyPrefix)
	if err != nil {
		return domain.IndexStats{}, &domain.StorageError{Op: "scan", Key: articleKeyPrefix + "*", Err: err}
	}

	meta, ok := ix.loadMetadata(ctx)
	if !ok {
		ix.mu.RLock()
		meta = ix.metadataLocked()
		ix.mu.RUnlock()
		if meta.TotalDocuments == 0 {
			meta.LastUpdated = time.Time{}
		}
	}

	stats := domain.IndexStats{
		ArticlesInMemory: ix.Len(),
		ArticlesInStore:  len(keys),
		Sources:          meta.Sources,
	}
	if stats.Sources == nil {
		stats.Sources = []string{}
	}
	if !meta.LastUpdated.IsZero() {
		lu := meta.LastUpdated
		stats.LastUpdated = &lu
	}
	return stats, nil
}

// Clear drops every article from memory and from the KV store, along with
// the derived metadata. The schema record is kept.
func (ix *VectorIndex) Clear(ctx context.Context) error {
	ix.writes.Lock()
	defer ix.writes.Unlock()

	ix.mu.Lock()
	ix.articles = nil
	ix.byID = make(map[string]int)
	ix.mu.Unlock()

	return ix.clearDurable(ctx)
}

func (ix *VectorIndex) clearDurable(ctx context.Context) error {
	keys, err := ix.kv.Keys(ctx, articleKeyPrefix)
	if err != nil {
		return &domain.StorageError{Op: "scan", Key: articleKeyPrefix + "*", Err: err}
	}
	keys = append(keys, keyMetadata)
	if err := ix.kv.Delete(ctx, keys...); err != nil {
		return &domain.StorageError{Op: "delete", Key: articleKeyPrefix + "*", Err: err}
	}
	return nil
}

func (ix *VectorIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.articles)
}

// metadataLocked derives the metadata from the in-memory set. Callers hold
// ix.mu.
func (ix *VectorIndex) metadataLocked() domain.StoreMetadata {
	seen := make(map[string]struct{})
	sources := make([]string, 0)
	for _, a := range ix.articles {
		if a.Source == "" {
			continue
		}
		if _, ok := seen[a.Source]; ok {
			continue
		}
		seen[a.Source] = struct{}{}
		sources = append(sources, a.Source)
	}
	sort.Strings(sources)
	return domain.StoreMetadata{
		TotalDocuments: len(ix.articles),
		Sources:        sources,
		LastUpdated:    ix.now(),
	}
}

// persistMetadata snapshots and saves the metadata as one step, so the
// last snapshot written always includes every committed article.
func (ix *VectorIndex) persistMetadata(ctx context.Context) {
	ix.metaMu.Lock()
	defer ix.metaMu.Unlock()

	ix.mu.RLock()
	meta := ix.metadataLocked()
	ix.mu.RUnlock()
	ix.saveMetadata(ctx, meta)
}

func (ix *VectorIndex) saveMetadata(ctx context.Context, meta domain.StoreMetadata) {
	data, err := json.Marshal(meta)
	if err != nil {
		ix.log.Warn("failed to encode index metadata", "error", err)
		return
	}
	if err := ix.kv.Set(ctx, keyMetadata, data, ix.metadataTTL); err != nil {
		ix.log.Warn("failed to persist index metadata", "error", err)
	}
}

func (ix *VectorIndex) loadMetadata(ctx context.Context) (domain.StoreMetadata, bool) {
	var meta domain.StoreMetadata
	data, err := ix.kv.Get(ctx, keyMetadata)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			ix.log.Warn("failed to read index metadata", "error", err)
		}
		return meta, false
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		ix.log.Warn("discarding malformed index metadata", "error", err)
		return meta, false
	}
	return meta, true
}
