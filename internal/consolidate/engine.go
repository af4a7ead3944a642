package consolidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chronicle-kg/chronicle/internal/graph"
	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/similarity"
)

// InvariantViolation signals that the graph is in a state the merge rules
// say cannot happen, such as two equally-best merge candidates for one
// mention. It is a bug signal, surfaced loudly rather than silently
// merged, and fails the article.
type InvariantViolation struct {
	Key    model.IdentityKey
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on entity %q (%s): %s", e.Key.Name, e.Key.Type, e.Detail)
}

// ContradictionCandidate is a detected conflict between one of the
// article's new claims and an existing claim in the graph. Detection is
// read-only; the CONTRADICTS edge is written later with the claims.
type ContradictionCandidate struct {
	ClaimIndex int // index into the article's candidate claims
	PriorClaim *model.Claim
	Confidence float64
}

// Result summarizes what one article's consolidation wrote. Written holds
// the contradiction candidates whose edge this article created (first
// writer wins), so credibility updates charge each conflict exactly once.
// ClaimConfidences carries the confidences of the claims that were
// actually created, keeping credibility's running sums aligned with
// ClaimsCreated when a claim-local write fails.
type Result struct {
	EntitiesResolved     int
	EntitiesCreated      int
	ClaimsCreated        int
	RelationshipsCreated int
	ContradictionsFound  int
	Written              []ContradictionCandidate
	ClaimConfidences     []float64
}

// Engine resolves candidate entities against the graph, creates claims and
// their relationships, and links contradictions. Detection and writing are
// split so a pipeline failure before the write phase leaves the graph
// untouched.
type Engine struct {
	store graph.Store
	nli   similarity.Service
	cfg   model.ConsolidationConfig
	log   *logrus.Entry
}

// NewEngine creates a consolidation engine
func NewEngine(store graph.Store, nli similarity.Service, cfg model.ConsolidationConfig) *Engine {
	return &Engine{
		store: store,
		nli:   nli,
		cfg:   cfg,
		log:   logrus.WithField("component", "consolidate"),
	}
}

// FindContradictions scans the graph for existing claims that conflict
// with the article's candidate claims. It performs no writes: entity
// resolution here is lookup-only and unresolvable references are skipped.
// A similarity service failure on one pair skips that pair and continues;
// a missed contradiction is recoverable, a corrupted graph is not.
func (e *Engine) FindContradictions(ctx context.Context, entities []model.CandidateEntity, claims []model.CandidateClaim, articleTime time.Time) ([]ContradictionCandidate, error) {
	refIDs := e.resolveExistingRefs(ctx, entities, claims)
	if len(refIDs) == 0 {
		return nil, nil
	}

	since := articleTime.Add(-e.cfg.ClaimWindow())
	var candidates []ContradictionCandidate

	for i, claim := range claims {
		var ids []string
		for _, ref := range claim.EntityRefs {
			if id, ok := refIDs[model.NormalizeName(ref)]; ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}

		prior, err := e.store.FindRelatedClaims(ctx, ids, since)
		if err != nil {
			return nil, fmt.Errorf("related claim lookup: %w", err)
		}
		if e.cfg.MaxComparisons > 0 && len(prior) > e.cfg.MaxComparisons {
			// Newest claims are the likeliest conflicts
			prior = prior[len(prior)-e.cfg.MaxComparisons:]
		}

		for _, existing := range prior {
			verdict, err := e.nli.ClassifyEntailment(ctx, claim.Text, existing.Text)
			if err != nil {
				e.log.WithError(err).WithField("prior_claim", existing.ID).Warn("entailment check failed, skipping pair")
				continue
			}
			if verdict.Label == similarity.LabelContradiction && verdict.Confidence >= e.cfg.ContradictionThreshold {
				candidates = append(candidates, ContradictionCandidate{
					ClaimIndex: i,
					PriorClaim: existing,
					Confidence: verdict.Confidence,
				})
			}
		}
	}

	return candidates, nil
}

// resolveExistingRefs maps normalized reference names to entity IDs that
// already exist in the graph, via the candidate entities' types where
// known. Lookup-only.
func (e *Engine) resolveExistingRefs(ctx context.Context, entities []model.CandidateEntity, claims []model.CandidateClaim) map[string]string {
	types := make(map[string]model.EntityType)
	for _, cand := range entities {
		types[model.NormalizeName(cand.Name)] = cand.Type
	}

	refIDs := make(map[string]string)
	for _, claim := range claims {
		for _, ref := range claim.EntityRefs {
			norm := model.NormalizeName(ref)
			if _, done := refIDs[norm]; done {
				continue
			}
			typ, ok := types[norm]
			if !ok {
				typ = model.EntityConcept
			}
			entity, err := e.lookupExisting(ctx, ref, typ)
			if err != nil || entity == nil {
				continue
			}
			refIDs[norm] = entity.ID
		}
	}
	return refIDs
}

func (e *Engine) lookupExisting(ctx context.Context, name string, typ model.EntityType) (*model.Entity, error) {
	entity, err := e.store.EntityByKey(ctx, model.KeyFor(name, typ))
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, graph.ErrNotFound) {
		return nil, err
	}

	matches, err := e.store.FindSimilarEntities(ctx, typ, name, e.cfg.MergeThreshold)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0].Entity, nil
}

// Consolidate writes one article's consolidation set: entities are merged
// or created, claims are always created, ABOUT links attach claims to
// their entities, and previously detected contradictions become
// CONTRADICTS edges. Failures local to one entity or claim are logged and
// skipped; identity-key races and invariant violations fail the article.
func (e *Engine) Consolidate(ctx context.Context, article *model.Article, entities []model.CandidateEntity, claims []model.CandidateClaim, contradictions []ContradictionCandidate) (*Result, error) {
	now := article.PublishedAt
	if now.IsZero() {
		now = article.CollectedAt
	}

	result := &Result{}
	resolved := make(map[string]*model.Entity) // per-article resolution cache, by normalized name

	for _, cand := range entities {
		entity, created, err := e.resolveEntity(ctx, cand, now)
		if err != nil {
			var iv *InvariantViolation
			if errors.As(err, &iv) || graph.IsConflict(err) {
				return result, err
			}
			e.log.WithError(err).WithField("entity", cand.Name).Warn("entity resolution failed, skipping")
			continue
		}
		resolved[model.NormalizeName(cand.Name)] = entity
		result.EntitiesResolved++
		if created {
			result.EntitiesCreated++
		}
	}

	// Resolve every claim's entity references before the first claim is
	// written. Ties and identity-key races must surface while the claim
	// set is still uncommitted, so a failed article leaves no claim or
	// relationship behind and can be resubmitted without duplicates.
	claimEntities := make([][]*model.Entity, len(claims))
	for i, cand := range claims {
		for _, ref := range cand.EntityRefs {
			entity, err := e.resolveRef(ctx, ref, resolved, now)
			if err != nil {
				var iv *InvariantViolation
				if errors.As(err, &iv) || graph.IsConflict(err) {
					return result, err
				}
				e.log.WithError(err).WithField("ref", ref).Warn("reference resolution failed, skipping")
				continue
			}
			claimEntities[i] = append(claimEntities[i], entity)
		}
	}

	claimIDs := make([]string, len(claims))
	for i, cand := range claims {
		claim := &model.Claim{
			ID:           uuid.New().String(),
			Text:         cand.Text,
			Confidence:   cand.Confidence,
			Status:       model.StatusUnverified,
			Timestamp:    now,
			ValidFrom:    now,
			ArticleID:    article.ID,
			SourceDomain: article.SourceDomain,
		}
		if err := e.store.CreateClaim(ctx, claim); err != nil {
			e.log.WithError(err).Warn("claim creation failed, skipping")
			continue
		}
		claimIDs[i] = claim.ID
		result.ClaimsCreated++
		result.ClaimConfidences = append(result.ClaimConfidences, cand.Confidence)

		for _, entity := range claimEntities[i] {
			created, err := e.store.Link(ctx, claim.ID, entity.ID, graph.RelAbout, nil)
			if err != nil {
				e.log.WithError(err).Warn("about link failed, skipping")
				continue
			}
			if created {
				result.RelationshipsCreated++
			}
		}
	}

	for _, c := range contradictions {
		if c.ClaimIndex < 0 || c.ClaimIndex >= len(claimIDs) || claimIDs[c.ClaimIndex] == "" {
			continue
		}
		newID := claimIDs[c.ClaimIndex]

		created, err := e.store.Link(ctx, newID, c.PriorClaim.ID, graph.RelContradicts, map[string]interface{}{
			"confidence":  c.Confidence,
			"detected_at": now,
		})
		if err != nil {
			e.log.WithError(err).Warn("contradiction link failed, skipping")
			continue
		}
		if !created {
			// Another article already linked this pair; first writer wins
			continue
		}
		result.RelationshipsCreated++
		result.ContradictionsFound++
		result.Written = append(result.Written, c)

		// A contradiction reopens verification on both sides
		if c.PriorClaim.Status == model.StatusVerified {
			if err := e.store.SetClaimStatus(ctx, c.PriorClaim.ID, model.StatusUnverified); err != nil {
				e.log.WithError(err).WithField("claim", c.PriorClaim.ID).Warn("status demotion failed")
			}
		}
	}

	return result, nil
}

// resolveRef resolves a claim's entity reference, reusing the article's
// already-resolved entities. Unknown references default to CONCEPT.
func (e *Engine) resolveRef(ctx context.Context, ref string, resolved map[string]*model.Entity, now time.Time) (*model.Entity, error) {
	norm := model.NormalizeName(ref)
	if entity, ok := resolved[norm]; ok {
		return entity, nil
	}

	entity, _, err := e.resolveEntity(ctx, model.CandidateEntity{Name: ref, Type: model.EntityConcept}, now)
	if err != nil {
		return nil, err
	}
	resolved[norm] = entity
	return entity, nil
}

// resolveEntity merges the candidate into an existing node or creates a
// new one, returning the canonical entity and whether it was created
func (e *Engine) resolveEntity(ctx context.Context, cand model.CandidateEntity, now time.Time) (*model.Entity, bool, error) {
	key := model.KeyFor(cand.Name, cand.Type)

	// Exact identity match
	existing, err := e.store.EntityByKey(ctx, key)
	if err == nil {
		return e.merge(ctx, existing, cand.Name, now)
	}
	if !errors.Is(err, graph.ErrNotFound) {
		return nil, false, err
	}

	// Similar-name match at or above the merge threshold
	matches, err := e.store.FindSimilarEntities(ctx, cand.Type, cand.Name, e.cfg.MergeThreshold)
	if err != nil {
		return nil, false, err
	}
	if len(matches) > 0 {
		if len(matches) > 1 && matches[0].Score == matches[1].Score {
			return nil, false, &InvariantViolation{
				Key: key,
				Detail: fmt.Sprintf("two equally similar merge candidates %q and %q at score %.3f",
					matches[0].Entity.Name, matches[1].Entity.Name, matches[0].Score),
			}
		}
		return e.merge(ctx, matches[0].Entity, cand.Name, now)
	}

	// No match: create, tolerating one lost race
	entity := &model.Entity{
		ID:           uuid.New().String(),
		Name:         cand.Name,
		Type:         cand.Type,
		FirstSeen:    now,
		LastUpdated:  now,
		MentionCount: 1,
	}
	stored, created, err := e.store.UpsertEntity(ctx, entity)
	if err != nil {
		if !graph.IsConflict(err) {
			return nil, false, err
		}
		fresh, readErr := e.store.EntityByKey(ctx, key)
		if readErr != nil {
			return nil, false, err // surface the original conflict
		}
		return e.merge(ctx, fresh, cand.Name, now)
	}
	if !created {
		// Concurrent upsert won; fold this mention into the winner
		return e.merge(ctx, stored, cand.Name, now)
	}
	return stored, true, nil
}

func (e *Engine) merge(ctx context.Context, entity *model.Entity, mention string, now time.Time) (*model.Entity, bool, error) {
	if err := e.store.MergeEntity(ctx, entity.ID, mention, now); err != nil {
		return nil, false, err
	}
	return entity, false, nil
}
