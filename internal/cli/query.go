package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"newsrag/internal/domain"
)

var (
	queryText      string
	queryTopK      int
	queryThreshold float64
	queryJSON      bool
	queryAnswer    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search indexed articles",
	Long: `Embed a question and list the most similar indexed articles.
With --answer the articles are also turned into an answer, as the chat
endpoint would, without touching any session history.

Examples:
  newsrag query -q "interest rates"
  newsrag query -q "new phones" -k 10 --threshold 0.5 --json
  newsrag query -q "what happened in markets today" --answer`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", -2, "minimum similarity (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryAnswer, "answer", false, "also generate an answer")
	queryCmd.MarkFlagRequired("query")
}

type queryResult struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Source string  `json:"source"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
}

type queryOutput struct {
	Query    string        `json:"query"`
	Fallback bool          `json:"fallbackEmbedding"`
	Results  []queryResult `json:"results"`
	Answer   string        `json:"answer,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}
	threshold := cfg.Retrieve.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = queryThreshold
	}

	emb, err := app.Embedder.Embed(ctx, queryText)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := app.Index.Search(ctx, emb.Vector, topK, threshold)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := queryOutput{Query: queryText, Fallback: emb.IsFallback(), Results: make([]queryResult, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, queryResult{
			ID:     h.Article.ID,
			Title:  h.Article.Title,
			Source: h.Article.Source,
			URL:    h.Article.URL,
			Score:  h.Score,
		})
	}
	if queryAnswer && len(hits) > 0 {
		out.Answer = app.Answer.Answer(ctx, queryText, hits)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printHits(out, hits)
	return nil
}

func printHits(out queryOutput, hits []domain.ScoredArticle) {
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return
	}
	fmt.Printf("Found %d results for: %s\n", len(hits), out.Query)
	if out.Fallback {
		fmt.Println("(query embedded with the fallback model)")
	}
	fmt.Println()
	for i, h := range hits {
		fmt.Printf("--- [%d] %s (%s, score: %.2f) ---\n", i+1, h.Article.Title, h.Article.Source, h.Score)
		if h.Article.URL != "" {
			fmt.Println(h.Article.URL)
		}
		text := []rune(h.Article.Content)
		if len(text) > 300 {
			text = append(text[:300], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	if out.Answer != "" {
		fmt.Println("=== Answer ===")
		fmt.Println(out.Answer)
	}
}
