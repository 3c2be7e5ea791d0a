package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"newsrag/config"
	"newsrag/internal/logger"
)

var (
	cfgFile      string
	cfg          *config.Config
	rootDir      string
	logLevel     string
	storeBackend string
	log          *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "newsrag",
	Short: "News chat backend - ingest RSS feeds and answer questions about them",
	Long: `newsrag ingests articles from RSS and Atom feeds, embeds them into a
vector index and answers chat questions grounded in the retrieved articles.

Example usage:
  newsrag serve                          # Start the HTTP API
  newsrag ingest                         # Pull and index the configured feeds
  newsrag query -q "interest rates"      # Show the best matching articles
  newsrag chat -s demo -m "What's new?"  # Run one chat turn`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := config.LoadDotEnv(rootDir); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyEnv()

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if storeBackend != "" {
			cfg.Store.Backend = storeBackend
		}

		log = logger.Configure(cfg.Logging.Level, os.Stderr)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./newsrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory holding newsrag.yaml and .env (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "store backend: redis, bolt, memory")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
