package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph statistics",
	Long: `Display node and relationship counts for the configured graph store.

Example:
  chronicle stats
  chronicle stats --store memory`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	fmt.Printf("Graph statistics (%s)\n", cfg.Graph.Backend)
	fmt.Printf("  Entities:       %d\n", stats.Entities)
	fmt.Printf("  Claims:         %d\n", stats.Claims)
	fmt.Printf("  Sources:        %d\n", stats.Sources)
	fmt.Printf("  Contradictions: %d\n", stats.Contradictions)
	return nil
}
