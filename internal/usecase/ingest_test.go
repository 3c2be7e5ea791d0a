package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"newsrag/internal/domain"
	"newsrag/internal/logger"
)

// stubFetcher serves canned articles per feed name.
type stubFetcher struct {
	feeds map[string][]domain.Article
	fail  map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, src domain.FeedSource) ([]domain.Article, error) {
	if err := f.fail[src.Name]; err != nil {
		return nil, err
	}
	return f.feeds[src.Name], nil
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func feedArticles(source string, n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", source, i)
		out[i] = newsArticle(id, source, "Story "+id, "Body of story "+id)
	}
	return out
}

func TestIngest_BatchesAndReload(t *testing.T) {
	ctx := context.Background()
	kvs := newFlakyKV()
	index := newTestIndex(kvs)

	broken := newsArticle("empty", "BBC", "", "")
	fetcher := &stubFetcher{
		feeds: map[string][]domain.Article{
			"BBC":        append(feedArticles("BBC", 7), broken),
			"TechCrunch": feedArticles("TechCrunch", 5),
		},
		fail: map[string]error{"Ars": errors.New("timeout")},
	}
	sources := []domain.FeedSource{{Name: "BBC"}, {Name: "Ars"}, {Name: "TechCrunch"}}

	sleeper := &sleepRecorder{}
	var progress [][2]int
	u := NewIngestUseCase(sources, fetcher, newOfflineProvider(kvs), index, IngestOptions{
		BatchSize:  5,
		BatchDelay: time.Second,
		Logger:     logger.Discard(),
	}).WithSleep(sleeper.sleep)

	result, err := u.Ingest(ctx, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Total != 13 || result.Processed != 12 || result.Failed != 1 {
		t.Errorf("expected 13 total, 12 processed, 1 failed, got %+v", result)
	}
	if result.Batches != 3 {
		t.Errorf("expected 3 batches (5+5+3), got %d", result.Batches)
	}
	if result.Fallbacks != 12 {
		t.Errorf("expected every embedding from the fallback, got %d", result.Fallbacks)
	}
	if result.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}

	if len(sleeper.calls) != 2 {
		t.Errorf("expected a pause between batches only, got %d pauses", len(sleeper.calls))
	}
	for _, d := range sleeper.calls {
		if d != time.Second {
			t.Errorf("expected 1s pause, got %s", d)
		}
	}

	if len(progress) != 3 || progress[2] != [2]int{13, 13} {
		t.Errorf("unexpected progress reports %v", progress)
	}

	if index.Len() != 12 {
		t.Errorf("expected 12 articles indexed, got %d", index.Len())
	}

	// a fresh index over the same store recovers every article
	restarted := newTestIndex(kvs)
	if err := restarted.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if restarted.Len() != 12 {
		t.Errorf("expected 12 articles after reload, got %d", restarted.Len())
	}
}

func TestIngest_ReingestReplacesByID(t *testing.T) {
	ctx := context.Background()
	kvs := newFlakyKV()
	index := newTestIndex(kvs)
	fetcher := &stubFetcher{feeds: map[string][]domain.Article{"BBC": feedArticles("BBC", 3)}}

	u := NewIngestUseCase([]domain.FeedSource{{Name: "BBC"}}, fetcher, newOfflineProvider(kvs), index, IngestOptions{
		Logger: logger.Discard(),
	}).WithSleep(func(context.Context, time.Duration) error { return nil })

	for i := 0; i < 2; i++ {
		if _, err := u.Ingest(ctx, nil); err != nil {
			t.Fatal(err)
		}
	}
	if index.Len() != 3 {
		t.Errorf("expected re-ingestion to replace articles, got %d", index.Len())
	}
}

func TestIngest_StorageFailuresAreCounted(t *testing.T) {
	kvs := newFlakyKV()
	index := newTestIndex(kvs)
	fetcher := &stubFetcher{feeds: map[string][]domain.Article{"BBC": feedArticles("BBC", 4)}}
	kvs.setFailures(true, false)

	u := NewIngestUseCase([]domain.FeedSource{{Name: "BBC"}}, fetcher, newOfflineProvider(kvs), index, IngestOptions{
		Logger: logger.Discard(),
	})

	result, err := u.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 0 || result.Failed != 4 || result.Batches != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestIngest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	kvs := newFlakyKV()
	fetcher := &stubFetcher{feeds: map[string][]domain.Article{"BBC": feedArticles("BBC", 10)}}

	u := NewIngestUseCase([]domain.FeedSource{{Name: "BBC"}}, fetcher, newOfflineProvider(kvs), newTestIndex(kvs), IngestOptions{
		BatchSize: 5,
		Logger:    logger.Discard(),
	}).WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	result, err := u.Ingest(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Batches != 1 || result.Processed != 5 {
		t.Errorf("expected one finished batch, got %+v", result)
	}
}

func TestIngest_NoArticles(t *testing.T) {
	kvs := newFlakyKV()
	u := NewIngestUseCase([]domain.FeedSource{{Name: "Empty"}}, &stubFetcher{}, newOfflineProvider(kvs), newTestIndex(kvs), IngestOptions{
		Logger: logger.Discard(),
	})
	result, err := u.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 0 || result.Batches != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestIngest_TwelveArticlesInThreeBatches(t *testing.T) {
	kvs := newFlakyKV()
	index := newTestIndex(kvs)
	fetcher := &stubFetcher{feeds: map[string][]domain.Article{
		"BBC":        feedArticles("BBC", 7),
		"TechCrunch": feedArticles("TechCrunch", 5),
	}}

	sleeper := &sleepRecorder{}
	var progress [][2]int
	u := NewIngestUseCase([]domain.FeedSource{{Name: "BBC"}, {Name: "TechCrunch"}}, fetcher, newOfflineProvider(kvs), index, IngestOptions{
		BatchSize:  5,
		BatchDelay: time.Second,
		Logger:     logger.Discard(),
	}).WithSleep(sleeper.sleep)

	result, err := u.Ingest(context.Background(), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 12 || result.Processed != 12 || result.Failed != 0 || result.Batches != 3 {
		t.Errorf("expected 12 processed in 3 batches, got %+v", result)
	}
	want := [][2]int{{5, 12}, {10, 12}, {12, 12}}
	if len(progress) != len(want) {
		t.Fatalf("expected progress %v, got %v", want, progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("expected progress %v, got %v", want, progress)
			break
		}
	}
	if len(sleeper.calls) != 2 {
		t.Errorf("expected 2 pauses, got %d", len(sleeper.calls))
	}
	if index.Len() != 12 {
		t.Errorf("expected 12 indexed articles, got %d", index.Len())
	}
}

func TestIngest_RealPauseBetweenBatches(t *testing.T) {
	kvs := newFlakyKV()
	fetcher := &stubFetcher{feeds: map[string][]domain.Article{"BBC": feedArticles("BBC", 3)}}
	u := NewIngestUseCase([]domain.FeedSource{{Name: "BBC"}}, fetcher, newOfflineProvider(kvs), newTestIndex(kvs), IngestOptions{
		BatchSize:  1,
		BatchDelay: 30 * time.Millisecond,
		Logger:     logger.Discard(),
	})

	start := time.Now()
	result, err := u.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("expected two 30ms pauses, finished in %s", elapsed)
	}
	if result.Processed != 3 || result.Batches != 3 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestIngest_CancelledDuringRealPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	kvs := newFlakyKV()
	fetcher := &stubFetcher{feeds: map[string][]domain.Article{"BBC": feedArticles("BBC", 10)}}
	u := NewIngestUseCase([]domain.FeedSource{{Name: "BBC"}}, fetcher, newOfflineProvider(kvs), newTestIndex(kvs), IngestOptions{
		BatchSize:  5,
		BatchDelay: time.Hour,
		Logger:     logger.Discard(),
	})

	progress := func(done, total int) {
		if done == 5 {
			cancel()
		}
	}
	start := time.Now()
	result, err := u.Ingest(ctx, progress)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancellation must interrupt the pause")
	}
	if result.Batches != 1 || result.Processed != 5 {
		t.Errorf("expected one finished batch, got %+v", result)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("zero pause must return immediately, got %v", err)
	}

	start := time.Now()
	if err := sleepContext(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("expected the full pause")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
