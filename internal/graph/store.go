package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chronicle-kg/chronicle/internal/model"
)

// RelType is a relationship label in the knowledge graph
type RelType string

const (
	// RelAbout links a claim to an entity it mentions. Directed,
	// at most one edge per (claim, entity) pair.
	RelAbout RelType = "ABOUT"

	// RelContradicts links two mutually contradictory claims. Symmetric,
	// at most one edge per unordered claim pair.
	RelContradicts RelType = "CONTRADICTS"
)

// ErrNotFound is returned when a node lookup misses
var ErrNotFound = errors.New("graph: not found")

// ConflictError reports a lost identity-key race during an entity upsert.
// Callers retry once with a fresh read before surfacing it.
type ConflictError struct {
	Key model.IdentityKey
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("graph: concurrent upsert conflict on entity %q (%s)", e.Key.Name, e.Key.Type)
}

// IsConflict reports whether err is (or wraps) a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ScoredEntity pairs a stored entity with its matcher score against a query
type ScoredEntity struct {
	Entity *model.Entity
	Score  float64
}

// ContradictionLink is one CONTRADICTS edge seen from one of its claims
type ContradictionLink struct {
	Other      *model.Claim
	Confidence float64
	DetectedAt time.Time
}

// Stats summarizes graph contents
type Stats struct {
	Entities       int64 `json:"entities"`
	Claims         int64 `json:"claims"`
	Sources        int64 `json:"sources"`
	Contradictions int64 `json:"contradictions"`
}

// Store is the knowledge-graph persistence contract. Implementations must
// make UpsertEntity atomic per identity key (two concurrent upserts of the
// same key yield one node) and Link idempotent on its uniqueness key
// (directed pair for ABOUT, unordered pair for CONTRADICTS).
type Store interface {
	// UpsertEntity inserts the entity if no node with its identity key
	// exists, and returns the stored node plus whether it was created.
	UpsertEntity(ctx context.Context, entity *model.Entity) (*model.Entity, bool, error)

	// EntityByKey looks up the node with the exact identity key.
	// Returns ErrNotFound on a miss.
	EntityByKey(ctx context.Context, key model.IdentityKey) (*model.Entity, error)

	// MergeEntity absorbs a mention into an existing entity: records the
	// alias if new, bumps the mention count, and advances last-updated.
	MergeEntity(ctx context.Context, entityID, alias string, seen time.Time) error

	// FindSimilarEntities scores all stored entities of the given type
	// against name and returns those at or above threshold, best first.
	FindSimilarEntities(ctx context.Context, typ model.EntityType, name string, threshold float64) ([]ScoredEntity, error)

	// CreateClaim stores a new claim node. Claims are never merged.
	CreateClaim(ctx context.Context, claim *model.Claim) error

	// Link creates the relationship if absent and reports whether it was
	// created. An existing edge is left untouched (first writer wins).
	Link(ctx context.Context, from, to string, rel RelType, props map[string]interface{}) (bool, error)

	// FindRelatedClaims returns claims linked by ABOUT to any of the given
	// entities with a timestamp at or after since.
	FindRelatedClaims(ctx context.Context, entityIDs []string, since time.Time) ([]*model.Claim, error)

	// EntityTimeline returns all claims about the entity ordered by
	// timestamp ascending.
	EntityTimeline(ctx context.Context, entityID string) ([]*model.Claim, error)

	// ContradictionsFor returns the CONTRADICTS edges incident to the claim
	ContradictionsFor(ctx context.Context, claimID string) ([]ContradictionLink, error)

	// SetClaimStatus updates a claim's verification status
	SetClaimStatus(ctx context.Context, claimID string, status model.VerificationStatus) error

	// SetClaimValidUntil closes a claim's validity interval
	SetClaimValidUntil(ctx context.Context, claimID string, until time.Time) error

	// UpsertSource stores or replaces the source record keyed by domain
	UpsertSource(ctx context.Context, source *model.Source) error

	// SourceByDomain looks up a source record. Returns ErrNotFound on a miss.
	SourceByDomain(ctx context.Context, domain string) (*model.Source, error)

	// Stats reports node and contradiction counts
	Stats(ctx context.Context) (Stats, error)

	// Close releases any underlying connections
	Close() error
}

// pairKey canonicalizes a relationship uniqueness key. CONTRADICTS edges
// are unordered, so both orientations map to the same key.
func pairKey(from, to string, rel RelType) string {
	if rel == RelContradicts && to < from {
		from, to = to, from
	}
	return from + "\x1f" + to + "\x1f" + string(rel)
}
