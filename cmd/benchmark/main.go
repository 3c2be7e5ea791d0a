package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"newsrag/internal/adapter/embedding"
	"newsrag/internal/adapter/kv"
	"newsrag/internal/adapter/store"
	"newsrag/internal/domain"
	"newsrag/internal/logger"
)

var vocabulary = strings.Fields(`markets rates bank inflation election minister storm
flood phone chip startup funding court ruling climate summit energy oil
football league transfer vaccine hospital strike rail airline space rocket
satellite privacy regulation lawsuit merger shares profit layoffs`)

func main() {
	articles := flag.Int("n", 2000, "Number of synthetic articles to index")
	dim := flag.Int("dim", 768, "Embedding dimension")
	queries := flag.Int("queries", 200, "Number of searches to time")
	topK := flag.Int("k", 5, "Results per search")
	threshold := flag.Float64("threshold", store.DefaultThreshold, "Similarity threshold")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	if *articles <= 0 || *queries <= 0 || *dim <= 0 {
		fmt.Println("Usage: go run ./cmd/benchmark -n 2000 -dim 768 -queries 200")
		os.Exit(1)
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))
	index := store.NewVectorIndex(kv.NewMemoryStore(), store.Options{
		Dimension: *dim,
		Model:     "fallback",
		Logger:    logger.Discard(),
	})

	fmt.Println("VECTOR SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Articles: %d  Dimension: %d  Queries: %d  k: %d  threshold: %.2f\n\n",
		*articles, *dim, *queries, *topK, *threshold)

	start := time.Now()
	for i := 0; i < *articles; i++ {
		title := headline(rng, 6)
		a := domain.Article{
			ID:        fmt.Sprintf("bench-%d", i),
			Title:     title,
			Content:   headline(rng, 40),
			Source:    "Benchmark",
			Embedding: embedding.Fallback(title, *dim),
		}
		if err := index.Upsert(ctx, a); err != nil {
			fmt.Fprintf(os.Stderr, "Upsert error: %v\n", err)
			os.Exit(1)
		}
	}
	indexTime := time.Since(start)
	fmt.Printf("Indexing: %s (%.1f µs/article)\n", indexTime, float64(indexTime.Microseconds())/float64(*articles))

	var hits int
	var best float64
	start = time.Now()
	for i := 0; i < *queries; i++ {
		q := embedding.Fallback(headline(rng, 4), *dim)
		results, err := index.Search(ctx, q, *topK, *threshold)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		hits += len(results)
		if len(results) > 0 {
			best += results[0].Score
		}
	}
	searchTime := time.Since(start)

	fmt.Printf("Search:   %s total, %.2f ms/query\n", searchTime, float64(searchTime.Microseconds())/1000/float64(*queries))
	fmt.Printf("Results:  %.1f per query", float64(hits)/float64(*queries))
	if hits > 0 {
		fmt.Printf(", mean top score %.3f", best/float64(*queries))
	}
	fmt.Println()
}

func headline(rng *rand.Rand, words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = vocabulary[rng.Intn(len(vocabulary))]
	}
	return strings.Join(parts, " ")
}
