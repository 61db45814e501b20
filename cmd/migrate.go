package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contextforge/recall/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Applies all pending database migrations, including enabling the
pgvector extension and creating the documents table. Safe to run
repeatedly; already-applied migrations are skipped.`,
	RunE: func(*cobra.Command, []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := newLogger(cfg)

		if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
