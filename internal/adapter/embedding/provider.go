package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"newsrag/internal/adapter/cache"
	"newsrag/internal/domain"
	"newsrag/internal/port"
)

var _ port.EmbeddingProvider = (*Provider)(nil)

// CacheKeyPrefix namespaces cached embeddings in the shared store.
const CacheKeyPrefix = "embedding:"

// Provider resolves text to an embedding through, in order: the in-process
// cache, the durable cache, the remote model and finally the local
// fallback. Only remote vectors are ever cached.
type Provider struct {
	remote    port.Embedder
	store     port.KVStore
	l1        *cache.VectorCache
	ttl       time.Duration
	dimension int
	log       *slog.Logger
}

type ProviderOption func(*Provider)

// WithL1 puts an in-process cache in front of the durable one.
func WithL1(c *cache.VectorCache) ProviderOption {
	return func(p *Provider) { p.l1 = c }
}

func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

// NewProvider builds a Provider. remote may be nil, in which case every
// uncached text gets the fallback vector.
func NewProvider(remote port.Embedder, store port.KVStore, dimension int, ttl time.Duration, opts ...ProviderOption) *Provider {
	p := &Provider{
		remote:    remote,
		store:     store,
		ttl:       ttl,
		dimension: dimension,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Dimension() int {
	return p.dimension
}

// CacheKey is the durable cache key for text: a bounded digest so long
// articles do not produce oversized keys.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return CacheKeyPrefix + hex.EncodeToString(sum[:16])
}

func (p *Provider) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Embedding{}, domain.ErrInvalidInput
	}

	key := CacheKey(text)
	if vec, ok := p.lookup(ctx, key); ok {
		return domain.Embedding{Vector: vec, Origin: domain.OriginRemote}, nil
	}

	if p.remote != nil {
		vecs, err := p.remote.Embed(ctx, []string{text})
		if err == nil {
			vec := vecs[0]
			p.remember(ctx, key, vec)
			return domain.Embedding{Vector: vec, Origin: domain.OriginRemote}, nil
		}
		p.log.Warn("embedding provider failed, using fallback vector", "error", err)
	}

	return domain.Embedding{Vector: Fallback(text, p.dimension), Origin: domain.OriginFallback}, nil
}

func (p *Provider) lookup(ctx context.Context, key string) ([]float32, bool) {
	if p.l1 != nil {
		if vec, ok := p.l1.Get(key); ok {
			return vec, true
		}
	}
	if p.store == nil {
		return nil, false
	}

	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Warn("embedding cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) != p.dimension {
		p.log.Warn("discarding unusable cached embedding", "key", key, "len", len(vec), "error", err)
		return nil, false
	}
	if p.l1 != nil {
		p.l1.Put(key, vec)
	}
	return vec, true
}

func (p *Provider) remember(ctx context.Context, key string, vec []float32) {
	if p.l1 != nil {
		p.l1.Put(key, vec)
	}
	if p.store == nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		p.log.Warn("embedding cache encode failed", "key", key, "error", err)
		return
	}
	if err := p.store.Set(ctx, key, data, p.ttl); err != nil {
		p.log.Warn("embedding cache write failed", "key", key, "error", err)
	}
}
