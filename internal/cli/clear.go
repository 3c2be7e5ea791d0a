package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsrag/internal/adapter/embedding"
)

var clearCache bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every indexed article",
	Long: `Remove every indexed article and the index metadata. With --cache the
cached embeddings are dropped as well.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVar(&clearCache, "cache", false, "also delete cached embeddings")
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx, GetConfig(), log)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Index.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	fmt.Println("Vector index cleared.")

	if clearCache {
		keys, err := app.Store.Keys(ctx, embedding.CacheKeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to list cached embeddings: %w", err)
		}
		if err := app.Store.Delete(ctx, keys...); err != nil {
			return fmt.Errorf("failed to delete cached embeddings: %w", err)
		}
		fmt.Printf("Deleted %d cached embeddings.\n", len(keys))
	}
	return nil
}
