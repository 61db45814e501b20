package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contextforge/recall/internal/config"
	"github.com/contextforge/recall/internal/retriever"
)

var (
	searchLimit     int
	searchThreshold float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the most relevant stored passages",
	Long: `Embeds the query and prints the stored passages whose cosine
similarity strictly exceeds the threshold, best match first. Omitted
flags fall back to retrieval_limit and retrieval_threshold from the
configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0])
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", retriever.DefaultLimit,
		"maximum number of passages to return")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", retriever.DefaultThreshold,
		"minimum similarity in [-1, 1] a passage must exceed")
	rootCmd.AddCommand(searchCmd)
}

// flagChecker is the subset of pflag.FlagSet the parameter resolution
// needs; narrowed for testability.
type flagChecker interface {
	Changed(name string) bool
}

// searchParams resolves the effective limit and threshold: an explicitly
// set flag wins, otherwise the configured retrieval defaults apply.
func searchParams(cfg *config.Config, flags flagChecker) (int, float64) {
	limit := cfg.RetrievalLimit
	if flags.Changed("limit") {
		limit = searchLimit
	}
	threshold := cfg.RetrievalThreshold
	if flags.Changed("threshold") {
		threshold = searchThreshold
	}
	return limit, threshold
}

func runSearch(cmd *cobra.Command, query string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, threshold := searchParams(cfg, cmd.Flags())
	results, err := a.retriever.Retrieve(ctx, query,
		retriever.WithLimit(limit),
		retriever.WithThreshold(threshold))
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("no passages found")
		return nil
	}

	for i, res := range results {
		fmt.Printf("[%d] similarity=%.4f document=%s chunk=%d\n",
			i+1, res.Similarity, res.DocumentID, res.SequenceIndex)
		fmt.Printf("    %s\n", res.Content)
	}
	return nil
}
