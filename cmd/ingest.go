package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Chunk, embed, and store a document",
	Long: `Reads a text file, splits it into overlapping chunks, embeds every
chunk, and stores the result. Ingestion is all or nothing: if any step
fails, no chunks are persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.pipeline.Ingest(ctx, string(data))
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("ingested %s\n", path)
	fmt.Printf("  document id: %s\n", result.DocumentID)
	fmt.Printf("  chunks:      %d\n", result.ChunksCreated)
	return nil
}
