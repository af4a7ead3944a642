package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chronicle-kg/chronicle/internal/consolidate"
	"github.com/chronicle-kg/chronicle/internal/credibility"
	"github.com/chronicle-kg/chronicle/internal/extract"
	"github.com/chronicle-kg/chronicle/internal/graph"
	"github.com/chronicle-kg/chronicle/internal/model"
)

// Outcome is the final record for one processed article.
type Outcome struct {
	ArticleID    string
	Status       Stage // DONE or FAILED
	StageReached Stage // last stage that completed

	EntitiesResolved     int
	EntitiesCreated      int
	ClaimsCreated        int
	RelationshipsCreated int
	ContradictionsFound  int

	BiasScore          float64
	BiasRecommendation string
	BiasChecked        bool

	CredibilityScore float64

	Err error
}

// Orchestrator drives one article through the pipeline stages. Stages that
// touch the graph run last, so a failure in collection, analysis,
// cross-reference or the bias check leaves the graph untouched and the
// article can be resubmitted.
type Orchestrator struct {
	extractor    extract.Extractor
	engine       *consolidate.Engine
	scorer       *credibility.Scorer
	store        graph.Store
	bias         *BiasDetector
	reporter     Reporter
	stageTimeout time.Duration
	log          *logrus.Entry
}

// NewOrchestrator wires the pipeline together. A nil reporter disables
// stage reporting.
func NewOrchestrator(extractor extract.Extractor, engine *consolidate.Engine, scorer *credibility.Scorer, store graph.Store, reporter Reporter, cfg model.WorkerConfig) *Orchestrator {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Orchestrator{
		extractor:    extractor,
		engine:       engine,
		scorer:       scorer,
		store:        store,
		bias:         NewBiasDetector(),
		reporter:     reporter,
		stageTimeout: cfg.StageTimeout,
		log:          logrus.WithField("component", "orchestrator"),
	}
}

// Process runs one article to completion. The returned outcome is always
// non-nil; on failure its Status is FAILED, Err is set and the same error
// is returned.
func (o *Orchestrator) Process(ctx context.Context, article *model.Article) (*Outcome, error) {
	out := &Outcome{ArticleID: article.ID, Status: StageFailed}

	fail := func(err error) (*Outcome, error) {
		out.Err = err
		articlesProcessed.WithLabelValues("failed").Inc()
		o.log.WithField("article_id", article.ID).WithError(err).Error("article failed")
		return out, err
	}

	// Collection: validate the inbound article before any work is spent
	// on it.
	err := o.runStage(ctx, article, StageCollected, func(ctx context.Context) error {
		return article.Validate()
	})
	if err != nil {
		return fail(fmt.Errorf("collect %s: %w", article.ID, err))
	}
	out.StageReached = StageCollected
	articleTime := article.PublishedAt
	if articleTime.IsZero() {
		articleTime = article.CollectedAt
	}

	// Analysis: extract candidate entities and claims from the text.
	var extraction *extract.Extraction
	err = o.runStage(ctx, article, StageAnalyzed, func(ctx context.Context) error {
		var serr error
		extraction, serr = o.extractor.Extract(ctx, article.FullText())
		return serr
	})
	if err != nil {
		return fail(fmt.Errorf("analyze %s: %w", article.ID, err))
	}
	out.StageReached = StageAnalyzed

	// Cross-reference: read-only contradiction detection against the
	// existing graph. Skipped when the article produced no claims.
	var candidates []consolidate.ContradictionCandidate
	if routeAfterAnalyze(len(extraction.Claims)) == StageCrossReferenced {
		err = o.runStage(ctx, article, StageCrossReferenced, func(ctx context.Context) error {
			var serr error
			candidates, serr = o.engine.FindContradictions(ctx, extraction.Entities, extraction.Claims, articleTime)
			return serr
		})
		if err != nil {
			return fail(fmt.Errorf("cross-reference %s: %w", article.ID, err))
		}
		out.StageReached = StageCrossReferenced
	}

	// Bias check: runs only when contradictions were found, to explain
	// why this source conflicts with the record.
	var report BiasReport
	if routeAfterCrossReference(len(candidates)) == StageBiasChecked {
		err = o.runStage(ctx, article, StageBiasChecked, func(ctx context.Context) error {
			report = o.bias.Detect(article.FullText())
			return nil
		})
		if err != nil {
			return fail(fmt.Errorf("bias-check %s: %w", article.ID, err))
		}
		out.StageReached = StageBiasChecked
		out.BiasScore = report.Score
		out.BiasRecommendation = report.Recommendation
		out.BiasChecked = true
	}

	// Graph build: the only writing stage. Entities are resolved or
	// created, claims and relationships written, contradiction edges
	// linked, and the source's credibility updated.
	var result *consolidate.Result
	err = o.runStage(ctx, article, StageGraphBuilt, func(ctx context.Context) error {
		var serr error
		result, serr = o.engine.Consolidate(ctx, article, extraction.Entities, extraction.Claims, candidates)
		if serr != nil {
			return serr
		}
		return o.updateCredibility(ctx, article, result, report, out)
	})
	if err != nil {
		return fail(fmt.Errorf("graph-build %s: %w", article.ID, err))
	}
	out.StageReached = StageGraphBuilt

	out.EntitiesResolved = result.EntitiesResolved
	out.EntitiesCreated = result.EntitiesCreated
	out.ClaimsCreated = result.ClaimsCreated
	out.RelationshipsCreated = result.RelationshipsCreated
	out.ContradictionsFound = result.ContradictionsFound
	contradictionsDetected.Add(float64(result.ContradictionsFound))

	out.Status = StageDone
	out.StageReached = StageDone
	articlesProcessed.WithLabelValues("done").Inc()
	return out, nil
}

func (o *Orchestrator) runStage(ctx context.Context, article *model.Article, stage Stage, fn func(ctx context.Context) error) error {
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	stageDuration.WithLabelValues(string(stage), outcome).Observe(elapsed.Seconds())
	o.reporter.StageCompleted(StageRecord{
		ArticleID: article.ID,
		Stage:     stage,
		Duration:  elapsed,
		Err:       err,
	})
	return err
}

// updateCredibility folds the article's outcome into its source record
// and charges the sources of contradicted prior claims. The prior-source
// penalty uses only the edges this article actually created, so
// reprocessing an article never double-counts a conflict.
func (o *Orchestrator) updateCredibility(ctx context.Context, article *model.Article, result *consolidate.Result, report BiasReport, out *Outcome) error {
	now := article.CollectedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	contradictedNew := make(map[int]struct{})
	priorPenalties := make(map[string]int)
	for _, w := range result.Written {
		contradictedNew[w.ClaimIndex] = struct{}{}
		domain := w.PriorClaim.SourceDomain
		if domain == "" || domain == article.SourceDomain {
			continue
		}
		priorPenalties[domain]++
	}

	source, err := o.store.SourceByDomain(ctx, article.SourceDomain)
	if errors.Is(err, graph.ErrNotFound) {
		source = model.NewSource(article.SourceDomain, now)
	} else if err != nil {
		return fmt.Errorf("load source %s: %w", article.SourceDomain, err)
	}

	outcome := credibility.Outcome{
		ClaimsCreated:      result.ClaimsCreated,
		ContradictedClaims: len(contradictedNew),
		Confidences:        result.ClaimConfidences,
		BiasScore:          report.Score,
		BiasScored:         out.BiasChecked,
	}
	out.CredibilityScore = o.scorer.Update(source, outcome, now)
	if err := o.store.UpsertSource(ctx, source); err != nil {
		return fmt.Errorf("store source %s: %w", article.SourceDomain, err)
	}

	o.penalizePriorSources(ctx, priorPenalties, now)
	return nil
}

// penalizePriorSources lowers the credibility of sources whose existing
// claims this article contradicted. Failures here are logged and skipped:
// the graph write already succeeded and a stale score self-corrects on
// that source's next article.
func (o *Orchestrator) penalizePriorSources(ctx context.Context, penalties map[string]int, now time.Time) {
	for domain, n := range penalties {
		source, err := o.store.SourceByDomain(ctx, domain)
		if err != nil {
			o.log.WithField("domain", domain).WithError(err).Warn("skipping prior-source penalty")
			continue
		}
		source.ContradictedClaims += n
		source.CredibilityScore = o.scorer.Score(source)
		source.LastUpdated = now
		if err := o.store.UpsertSource(ctx, source); err != nil {
			o.log.WithField("domain", domain).WithError(err).Warn("failed to store prior-source penalty")
		}
	}
}
