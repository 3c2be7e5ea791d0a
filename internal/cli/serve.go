package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newsrag/internal/adapter/httpapi"
)

var (
	serveAddr          string
	serveIngestOnStart bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP API",
	Long: `Start the HTTP API serving /chat, /history/:sessionId, /ingest-news,
/stats and /health (also mounted under /api).

Examples:
  newsrag serve
  newsrag serve --addr :8080 --ingest-on-start`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config or $PORT)")
	serveCmd.Flags().BoolVar(&serveIngestOnStart, "ingest-on-start", false, "ingest the feeds in the background after startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if serveIngestOnStart {
		go func() {
			result, err := runIngestion(ctx, app, nil)
			if err != nil {
				log.Error("startup ingestion failed", "error", err)
				return
			}
			log.Info("startup ingestion finished", "processed", result.Processed, "total", result.Total)
		}()
	}

	handler := httpapi.NewHandler(httpapi.Deps{
		Chat:          app.Chat,
		History:       app.History,
		Ingester:      app.Ingest,
		Index:         app.Index,
		Store:         app.Store,
		IngestTimeout: cfg.Server.IngestTimeout,
		Logger:        log,
	})
	server := httpapi.NewServer(cfg.Server.Addr, httpapi.NewRouter(handler, log),
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, log)

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
