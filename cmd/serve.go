package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contextforge/recall/api"
	"github.com/contextforge/recall/db"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API server exposing document ingestion and
retrieval. Pending database migrations are applied before the server
accepts traffic.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	defaults := api.RetrievalDefaults{
		Limit:     cfg.RetrievalLimit,
		Threshold: cfg.RetrievalThreshold,
	}
	srv := api.NewServer(a.store, a.pipeline, a.retriever, defaults, logger.With("component", "api"))
	return srv.Run(ctx, addr)
}
