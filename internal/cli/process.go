package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronicle-kg/chronicle/internal/pipeline"
)

var processTimeout time.Duration

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <articles.json>",
	Short: "Process articles through the pipeline sequentially",
	Long: `Process reads articles from a JSON file (a single object or an array)
and runs each one through the full pipeline:
- Extract candidate entities and claims
- Cross-reference new claims against the existing graph
- Check for bias markers when contradictions are found
- Build the graph and update source credibility

Example:
  chronicle process articles.json
  chronicle process article.json --store memory
  chronicle process articles.json --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().DurationVar(&processTimeout, "timeout", 15*time.Minute, "total timeout for processing")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	articles, err := ReadArticlesFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, store, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	done := 0
	failed := 0
	for _, article := range articles {
		out, err := orch.Process(ctx, article)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", article.ID, err)
			continue
		}
		done++
		printOutcome(out)
	}

	fmt.Fprintf(os.Stderr, "\nProcessed %d articles: %d done, %d failed\n", len(articles), done, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d articles failed", failed, len(articles))
	}
	return nil
}

func printOutcome(out *pipeline.Outcome) {
	fmt.Fprintf(os.Stderr, "✓ %s: %d entities (%d new), %d claims, %d contradictions, credibility %.2f\n",
		out.ArticleID, out.EntitiesResolved, out.EntitiesCreated, out.ClaimsCreated,
		out.ContradictionsFound, out.CredibilityScore)
	if out.BiasChecked {
		fmt.Fprintf(os.Stderr, "  bias: %.2f (%s)\n", out.BiasScore, out.BiasRecommendation)
	}
}
