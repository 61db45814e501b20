// Package cmd implements the recall command line interface.
//
// Following the pattern used by kubectl, hugo, and other standard Go CLI
// tools, all application logic is contained in the cmd package, leaving
// main.go as a minimal entry point.
package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/contextforge/recall/internal/config"
	"github.com/contextforge/recall/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "recall - document retrieval over pgvector",
	Long: `recall chunks documents, embeds them with an OpenAI-compatible
embeddings API, stores the vectors in PostgreSQL (pgvector), and answers
free-text queries with the most similar passages.

Common workflows:

  recall migrate                 apply database migrations
  recall ingest notes.md         chunk, embed, and store a document
  recall search "error budget"   find the most relevant passages
  recall serve                   expose ingestion and retrieval over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main().
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates configuration for a subcommand.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
}

// parseLevel maps a config level string to a slog level.
// Unknown values fall back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
