package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/adapter/kv"
	"newsrag/internal/adapter/store"
	"newsrag/internal/logger"
	"newsrag/internal/usecase"
)

func startServer(t *testing.T, h *Handler, writeTimeout time.Duration) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(ln.Addr().String(), NewRouter(h, logger.Discard()), time.Second, writeTimeout, logger.Discard())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return "http://" + ln.Addr().String()
}

func TestServer_IngestOutlivesWriteTimeout(t *testing.T) {
	kvs := kv.NewMemoryStore()
	ingester := &stubIngester{
		delay:  500 * time.Millisecond,
		result: &usecase.IngestResult{Processed: 3, Total: 3, Timestamp: time.Now().UTC()},
	}
	h := NewHandler(Deps{
		Ingester:      ingester,
		Index:         store.NewVectorIndex(kvs, store.Options{Dimension: 3, Logger: logger.Discard()}),
		Store:         kvs,
		IngestTimeout: 2 * time.Second,
		Logger:        logger.Discard(),
	})
	base := startServer(t, h, 200*time.Millisecond)

	resp, err := http.Post(base+"/ingest-news", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "News ingestion completed", body["message"])
	assert.Equal(t, float64(3), body["articlesProcessed"])
}

func TestServer_ShortRequestsKeepWriteTimeout(t *testing.T) {
	kvs := kv.NewMemoryStore()
	h := NewHandler(Deps{
		Index:  store.NewVectorIndex(kvs, store.Options{Dimension: 3, Logger: logger.Discard()}),
		Store:  kvs,
		Logger: logger.Discard(),
	})
	base := startServer(t, h, 200*time.Millisecond)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
