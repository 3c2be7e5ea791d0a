package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx, GetConfig(), log)
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.Index.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if statsJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Articles in memory: %d\n", stats.ArticlesInMemory)
	fmt.Printf("Articles in store:  %d\n", stats.ArticlesInStore)
	fmt.Printf("Sources:            %s\n", strings.Join(stats.Sources, ", "))
	if stats.LastUpdated != nil {
		fmt.Printf("Last updated:       %s\n", stats.LastUpdated.Format(time.RFC3339))
	} else {
		fmt.Println("Last updated:       never")
	}
	return nil
}
