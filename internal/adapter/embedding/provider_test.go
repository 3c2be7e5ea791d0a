package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/adapter/cache"
	"newsrag/internal/adapter/kv"
	"newsrag/internal/domain"
	"newsrag/internal/logger"
)

const testDim = 384

// embeddingServer answers /embeddings with a vector of dim values derived
// from the input length and counts the calls it receives.
func embeddingServer(t *testing.T, dim int, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		for i, in := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(len(in))
			vec[1] = 1
			resp.Data = append(resp.Data, embeddingData{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, APIKey: "test-key", Dimension: testDim, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestProvider_RejectsEmptyText(t *testing.T) {
	p := NewProvider(nil, kv.NewMemoryStore(), testDim, time.Hour, WithLogger(logger.Discard()))

	_, err := p.Embed(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProvider_CacheHitSkipsRemote(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, testDim, &calls)
	store := kv.NewMemoryStore()
	p := NewProvider(newClient(t, srv.URL), store, testDim, time.Hour, WithLogger(logger.Discard()))
	ctx := context.Background()

	first, err := p.Embed(ctx, "breaking news today")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginRemote, first.Origin)

	second, err := p.Embed(ctx, "  breaking news today ")
	require.NoError(t, err)
	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// durable cache is shared across provider instances
	other := NewProvider(newClient(t, srv.URL), store, testDim, time.Hour, WithLogger(logger.Discard()))
	third, err := other.Embed(ctx, "breaking news today")
	require.NoError(t, err)
	assert.Equal(t, first.Vector, third.Vector)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = store.Get(ctx, CacheKey("breaking news today"))
	assert.NoError(t, err)
}

func TestProvider_L1ServesWithoutStore(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, testDim, &calls)
	p := NewProvider(newClient(t, srv.URL), nil, testDim, time.Hour,
		WithL1(cache.NewVectorCache(10, time.Hour)), WithLogger(logger.Discard()))

	_, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestProvider_RemoteErrorFallsBack(t *testing.T) {
	var calls int32
	srv := failingServer(t, http.StatusInternalServerError, `{"error":"boom"}`, &calls)
	store := kv.NewMemoryStore()
	p := NewProvider(newClient(t, srv.URL), store, testDim, time.Hour, WithLogger(logger.Discard()))
	ctx := context.Background()

	emb, err := p.Embed(ctx, "breaking news today")
	require.NoError(t, err)
	assert.True(t, emb.IsFallback())
	assert.Len(t, emb.Vector, testDim)
	assert.InDelta(t, 1.0, norm(emb.Vector), 1e-6)

	// fallback vectors are not cached, so the next call retries the remote
	_, err = store.Get(ctx, CacheKey("breaking news today"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = p.Embed(ctx, "breaking news today")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestProvider_MalformedAndWrongDimensionFallBack(t *testing.T) {
	var calls int32
	malformed := failingServer(t, http.StatusOK, `not json`, &calls)
	p := NewProvider(newClient(t, malformed.URL), nil, testDim, time.Hour, WithLogger(logger.Discard()))
	emb, err := p.Embed(context.Background(), "markets rally")
	require.NoError(t, err)
	assert.True(t, emb.IsFallback())

	wrongDim := embeddingServer(t, 16, &calls)
	p = NewProvider(newClient(t, wrongDim.URL), nil, testDim, time.Hour, WithLogger(logger.Discard()))
	emb, err = p.Embed(context.Background(), "markets rally")
	require.NoError(t, err)
	assert.True(t, emb.IsFallback())
	assert.Len(t, emb.Vector, testDim)
}

func TestProvider_NoRemoteUsesFallback(t *testing.T) {
	p := NewProvider(nil, kv.NewMemoryStore(), testDim, time.Hour, WithLogger(logger.Discard()))
	emb, err := p.Embed(context.Background(), "election results")
	require.NoError(t, err)
	assert.True(t, emb.IsFallback())
	assert.Equal(t, Fallback("election results", testDim), emb.Vector)
}

func TestClient_ReportsRemoteServiceError(t *testing.T) {
	var calls int32
	srv := failingServer(t, http.StatusBadGateway, "upstream down", &calls)
	_, err := newClient(t, srv.URL).Embed(context.Background(), []string{"x"})

	var remote *domain.RemoteServiceError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusBadGateway, remote.StatusCode)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	a := Fallback("Breaking News today", testDim)
	b := Fallback("breaking news TODAY", testDim)
	assert.Equal(t, a, b, "fallback must be deterministic and case-insensitive")
	assert.Len(t, a, testDim)
	assert.InDelta(t, 1.0, norm(a), 1e-6)

	// first word dominates: 'b' at weight 1, 'n' at 1/2, 't' at 1/3
	expected0 := float64('b') + float64('n')/2 + float64('t')/3
	expected1 := float64('r') + float64('e')/2 + float64('o')/3
	assert.InDelta(t, expected0/expected1, float64(a[0])/float64(a[1]), 1e-4)

	assert.Equal(t, make([]float32, 4), Fallback("", 4))
	assert.Nil(t, Fallback("x", 0))
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("some very long article body")
	assert.Len(t, k, len("embedding:")+32)
	assert.Equal(t, k, CacheKey("some very long article body"))
	assert.NotEqual(t, k, CacheKey("some very long article body!"))
}
