package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"newsrag/internal/usecase"
)

var (
	ingestJSON  bool
	ingestQuiet bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the configured feeds and index their articles",
	Long: `Fetch every configured RSS/Atom feed, embed each article and store it
in the vector index. Articles already indexed are replaced by id.

Examples:
  newsrag ingest
  newsrag ingest --store bolt --json`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the result as JSON")
	ingestCmd.Flags().BoolVar(&ingestQuiet, "quiet", false, "disable the progress bar")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	app, err := NewApp(ctx, GetConfig(), log)
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	progress := ingestProgress(start)
	if ingestQuiet || ingestJSON {
		progress = nil
	}

	result, err := runIngestion(ctx, app, progress)
	if err != nil {
		return err
	}

	if ingestJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested %d of %d articles in %s (%d failed, %d batches)\n",
		result.Processed, result.Total, formatDuration(time.Since(start)), result.Failed, result.Batches)
	if result.Fallbacks > 0 {
		fmt.Printf("%d articles used fallback embeddings\n", result.Fallbacks)
	}
	return nil
}

// runIngestion is shared with "serve --ingest-on-start".
func runIngestion(ctx context.Context, app *App, progress usecase.IngestProgress) (*usecase.IngestResult, error) {
	result, err := app.Ingest.Ingest(ctx, progress)
	if err != nil {
		if result != nil {
			log.Warn("ingestion interrupted", "processed", result.Processed, "total", result.Total)
		}
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}
	return result, nil
}

// ingestProgress renders batch progress with an ETA.
func ingestProgress(start time.Time) usecase.IngestProgress {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
		if done > 0 && done < total {
			elapsed := time.Since(start)
			eta := time.Duration(float64(elapsed) / float64(done) * float64(total-done))
			bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
