package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/similarity"
)

type memoryEdge struct {
	from       string
	to         string
	rel        RelType
	confidence float64
	detectedAt time.Time
}

// MemoryStore is an in-process Store used by tests and `--store memory`
// runs. A single RWMutex guards all maps, which also serializes upserts
// per identity key.
type MemoryStore struct {
	mu            sync.RWMutex
	entities      map[string]*model.Entity
	byKey         map[model.IdentityKey]string
	claims        map[string]*model.Claim
	aboutByEntity map[string][]string
	edges         map[string]memoryEdge
	sources       map[string]*model.Source
	matcher       similarity.Matcher
}

// NewMemoryStore creates an empty in-memory graph scored by matcher
func NewMemoryStore(matcher similarity.Matcher) *MemoryStore {
	return &MemoryStore{
		entities:      make(map[string]*model.Entity),
		byKey:         make(map[model.IdentityKey]string),
		claims:        make(map[string]*model.Claim),
		aboutByEntity: make(map[string][]string),
		edges:         make(map[string]memoryEdge),
		sources:       make(map[string]*model.Source),
		matcher:       matcher,
	}
}

// UpsertEntity implements Store
func (s *MemoryStore) UpsertEntity(ctx context.Context, entity *model.Entity) (*model.Entity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entity.Key()
	if id, exists := s.byKey[key]; exists {
		return copyEntity(s.entities[id]), false, nil
	}

	stored := copyEntity(entity)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	s.entities[stored.ID] = stored
	s.byKey[key] = stored.ID

	return copyEntity(stored), true, nil
}

// EntityByKey implements Store
func (s *MemoryStore) EntityByKey(ctx context.Context, key model.IdentityKey) (*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byKey[key]
	if !exists {
		return nil, ErrNotFound
	}
	return copyEntity(s.entities[id]), nil
}

// MergeEntity implements Store
func (s *MemoryStore) MergeEntity(ctx context.Context, entityID, alias string, seen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, exists := s.entities[entityID]
	if !exists {
		return ErrNotFound
	}

	if alias != "" && model.NormalizeName(alias) != model.NormalizeName(entity.Name) && !entity.HasAlias(alias) {
		entity.Aliases = append(entity.Aliases, alias)
	}
	entity.MentionCount++
	if seen.After(entity.LastUpdated) {
		entity.LastUpdated = seen
	}
	return nil
}

// FindSimilarEntities implements Store
func (s *MemoryStore) FindSimilarEntities(ctx context.Context, typ model.EntityType, name string, threshold float64) ([]ScoredEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredEntity
	for _, entity := range s.entities {
		if entity.Type != typ {
			continue
		}
		names := append([]string{entity.Name}, entity.Aliases...)
		score := similarity.BestScore(s.matcher, name, names...)
		if score >= threshold {
			scored = append(scored, ScoredEntity{Entity: copyEntity(entity), Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entity.Name < scored[j].Entity.Name
	})
	return scored, nil
}

// CreateClaim implements Store
func (s *MemoryStore) CreateClaim(ctx context.Context, claim *model.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyClaim(claim)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
		claim.ID = stored.ID
	}
	s.claims[stored.ID] = stored
	return nil
}

// Link implements Store
func (s *MemoryStore) Link(ctx context.Context, from, to string, rel RelType, props map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(from, to, rel)
	if _, exists := s.edges[key]; exists {
		return false, nil
	}

	e := memoryEdge{from: from, to: to, rel: rel}
	if v, ok := props["confidence"].(float64); ok {
		e.confidence = v
	}
	if v, ok := props["detected_at"].(time.Time); ok {
		e.detectedAt = v
	}
	s.edges[key] = e

	if rel == RelAbout {
		s.aboutByEntity[to] = append(s.aboutByEntity[to], from)
	}
	return true, nil
}

// FindRelatedClaims implements Store
func (s *MemoryStore) FindRelatedClaims(ctx context.Context, entityIDs []string, since time.Time) ([]*model.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var claims []*model.Claim
	for _, entityID := range entityIDs {
		for _, claimID := range s.aboutByEntity[entityID] {
			if seen[claimID] {
				continue
			}
			seen[claimID] = true
			claim, exists := s.claims[claimID]
			if !exists || claim.Timestamp.Before(since) {
				continue
			}
			claims = append(claims, copyClaim(claim))
		}
	}

	sort.Slice(claims, func(i, j int) bool {
		return claims[i].Timestamp.Before(claims[j].Timestamp)
	})
	return claims, nil
}

// EntityTimeline implements Store
func (s *MemoryStore) EntityTimeline(ctx context.Context, entityID string) ([]*model.Claim, error) {
	return s.FindRelatedClaims(ctx, []string{entityID}, time.Time{})
}

// ContradictionsFor implements Store
func (s *MemoryStore) ContradictionsFor(ctx context.Context, claimID string) ([]ContradictionLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []ContradictionLink
	for _, e := range s.edges {
		if e.rel != RelContradicts {
			continue
		}
		var otherID string
		switch claimID {
		case e.from:
			otherID = e.to
		case e.to:
			otherID = e.from
		default:
			continue
		}
		other, exists := s.claims[otherID]
		if !exists {
			continue
		}
		links = append(links, ContradictionLink{
			Other:      copyClaim(other),
			Confidence: e.confidence,
			DetectedAt: e.detectedAt,
		})
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].Other.ID < links[j].Other.ID
	})
	return links, nil
}

// SetClaimStatus implements Store
func (s *MemoryStore) SetClaimStatus(ctx context.Context, claimID string, status model.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, exists := s.claims[claimID]
	if !exists {
		return ErrNotFound
	}
	claim.Status = status
	return nil
}

// SetClaimValidUntil implements Store
func (s *MemoryStore) SetClaimValidUntil(ctx context.Context, claimID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, exists := s.claims[claimID]
	if !exists {
		return ErrNotFound
	}
	t := until
	claim.ValidUntil = &t
	return nil
}

// UpsertSource implements Store
func (s *MemoryStore) UpsertSource(ctx context.Context, source *model.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *source
	s.sources[source.Domain] = &stored
	return nil
}

// SourceByDomain implements Store
func (s *MemoryStore) SourceByDomain(ctx context.Context, domain string) (*model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source, exists := s.sources[domain]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *source
	return &copied, nil
}

// Stats implements Store
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var contradictions int64
	for _, e := range s.edges {
		if e.rel == RelContradicts {
			contradictions++
		}
	}
	return Stats{
		Entities:       int64(len(s.entities)),
		Claims:         int64(len(s.claims)),
		Sources:        int64(len(s.sources)),
		Contradictions: contradictions,
	}, nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}

func copyEntity(e *model.Entity) *model.Entity {
	copied := *e
	copied.Aliases = append([]string(nil), e.Aliases...)
	copied.Embedding = append([]float32(nil), e.Embedding...)
	return &copied
}

func copyClaim(c *model.Claim) *model.Claim {
	copied := *c
	if c.ValidUntil != nil {
		t := *c.ValidUntil
		copied.ValidUntil = &t
	}
	return &copied
}
