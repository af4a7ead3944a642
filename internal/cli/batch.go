package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/pipeline"
	"github.com/chronicle-kg/chronicle/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <path>",
	Short: "Process articles from a file or directory in parallel",
	Long: `Batch processes articles concurrently:
- Read articles from a JSON file (a single object or an array) or from
  every .json file in a directory
- Run articles in parallel with a configurable worker count
- Each article still runs its pipeline stages in order

Articles in one batch may reference the same entities; the graph store
serializes conflicting writes, so parallel processing stays safe.

Example:
  chronicle batch articles.json
  chronicle batch ./feed-dump --concurrency 8
  chronicle batch articles.json --concurrency 2 --timeout 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: workers.concurrency from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

// articleJob runs one article through the pipeline on a pool worker
type articleJob struct {
	article *model.Article
	orch    *pipeline.Orchestrator
}

// articleResult carries the outcome back from the pool
type articleResult struct {
	articleID string
	outcome   *pipeline.Outcome
	err       error
}

func (r *articleResult) GetError() error {
	return r.err
}

func (j *articleJob) Execute(ctx context.Context) worker.Result {
	out, err := j.orch.Process(ctx, j.article)
	return &articleResult{articleID: j.article.ID, outcome: out, err: err}
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	articles, err := ReadArticles(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Workers.Concurrency = concurrency
	}

	orch, store, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(os.Stderr, "Processing %d articles with %d workers\n\n", len(articles), cfg.Workers.Concurrency)

	pool := worker.NewPool(cfg.Workers.Concurrency)
	pool.Start()
	for _, article := range articles {
		pool.Submit(&articleJob{article: article, orch: orch})
	}
	results := pool.Wait()

	done := 0
	failed := 0
	for _, result := range results {
		r := result.(*articleResult)
		if r.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.articleID, r.err)
			continue
		}
		done++
		printOutcome(r.outcome)
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d done, %d failed\n", done, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d articles failed", failed, len(articles))
	}
	return nil
}
