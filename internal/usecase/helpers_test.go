package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"newsrag/internal/adapter/embedding"
	"newsrag/internal/adapter/kv"
	"newsrag/internal/adapter/store"
	"newsrag/internal/domain"
	"newsrag/internal/logger"
	"newsrag/internal/port"
)

const testDim = 64

var errStoreDown = errors.New("store down")

// flakyKV wraps a MemoryStore and fails writes while failSet is on.
type flakyKV struct {
	*kv.MemoryStore
	mu      sync.Mutex
	failSet bool
	failGet bool
}

func newFlakyKV() *flakyKV {
	return &flakyKV{MemoryStore: kv.NewMemoryStore()}
}

func (f *flakyKV) setFailures(set, get bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet, f.failGet = set, get
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.MemoryStore.Set(ctx, key, value, ttl)
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return f.MemoryStore.Get(ctx, key)
}

// stubGenerator returns a canned answer or error and remembers the prompt.
type stubGenerator struct {
	answer string
	err    error

	mu      sync.Mutex
	prompts []string
	opts    []port.GenOptions
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, opts port.GenOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	return g.answer, g.err
}

func (g *stubGenerator) ModelName() string { return "stub" }

// brokenIndex fails every search.
type brokenIndex struct {
	port.VectorIndex
}

func (brokenIndex) Search(context.Context, []float32, int, float64) ([]domain.ScoredArticle, error) {
	return nil, domain.ErrDimensionMismatch
}

func (brokenIndex) Len() int { return 0 }

func newTestIndex(kvs port.KVStore) *store.VectorIndex {
	return store.NewVectorIndex(kvs, store.Options{
		Dimension: testDim,
		Model:     "fallback",
		Logger:    logger.Discard(),
	})
}

// newOfflineProvider embeds with the fallback only.
func newOfflineProvider(kvs port.KVStore) *embedding.Provider {
	return embedding.NewProvider(nil, kvs, testDim, time.Hour, embedding.WithLogger(logger.Discard()))
}

func newsArticle(id, source, title, content string) domain.Article {
	return domain.Article{
		ID:      id,
		Title:   title,
		Content: content,
		URL:     "https://example.com/" + id,
		Source:  source,
	}
}
