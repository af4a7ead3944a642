package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/similarity"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(similarity.NewNormalizedMatcher())
}

func testEntity(name string, typ model.EntityType) *model.Entity {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Entity{
		Name:         name,
		Type:         typ,
		FirstSeen:    now,
		LastUpdated:  now,
		MentionCount: 1,
	}
}

func testClaim(id, text string, ts time.Time) *model.Claim {
	return &model.Claim{
		ID:           id,
		Text:         text,
		Confidence:   0.8,
		Status:       model.StatusUnverified,
		Timestamp:    ts,
		ValidFrom:    ts,
		ArticleID:    "article-1",
		SourceDomain: "example.com",
	}
}

func TestMemoryStore_UpsertEntity(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, created, err := store.UpsertEntity(ctx, testEntity("United Nations", model.EntityOrganization))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if !created {
		t.Error("expected first upsert to create")
	}
	if first.ID == "" {
		t.Error("expected an assigned id")
	}

	// Same identity key, different surface form
	second, created, err := store.UpsertEntity(ctx, testEntity("  united   nations ", model.EntityOrganization))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if created {
		t.Error("expected second upsert to return the existing node")
	}
	if second.ID != first.ID {
		t.Errorf("expected same node, got %s and %s", first.ID, second.ID)
	}

	// Same name, different type is a distinct entity
	_, created, err = store.UpsertEntity(ctx, testEntity("United Nations", model.EntityConcept))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if !created {
		t.Error("expected a distinct node for a different type")
	}
}

func TestMemoryStore_UpsertEntity_Concurrent(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, _, err := store.UpsertEntity(ctx, testEntity("Exxon Mobil", model.EntityOrganization))
			if err != nil {
				t.Errorf("upsert failed: %v", err)
				return
			}
			ids <- stored.ID
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[string]bool)
	for id := range ids {
		unique[id] = true
	}
	if len(unique) != 1 {
		t.Errorf("expected exactly one node for concurrent upserts, got %d", len(unique))
	}
}

func TestMemoryStore_EntityByKey(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	stored, _, _ := store.UpsertEntity(ctx, testEntity("Paris", model.EntityLocation))

	found, err := store.EntityByKey(ctx, model.KeyFor("PARIS", model.EntityLocation))
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.ID != stored.ID {
		t.Errorf("expected id %s, got %s", stored.ID, found.ID)
	}

	_, err = store.EntityByKey(ctx, model.KeyFor("London", model.EntityLocation))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_MergeEntity(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	stored, _, _ := store.UpsertEntity(ctx, testEntity("United Nations", model.EntityOrganization))
	later := stored.LastUpdated.Add(time.Hour)

	if err := store.MergeEntity(ctx, stored.ID, "UN", later); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	merged, _ := store.EntityByKey(ctx, stored.Key())
	if merged.MentionCount != 2 {
		t.Errorf("expected mention count 2, got %d", merged.MentionCount)
	}
	if !merged.HasAlias("UN") {
		t.Errorf("expected alias UN, got %v", merged.Aliases)
	}
	if !merged.LastUpdated.Equal(later) {
		t.Errorf("expected last updated %v, got %v", later, merged.LastUpdated)
	}

	// Merging the same alias again must not duplicate it
	if err := store.MergeEntity(ctx, stored.ID, "un", later.Add(time.Hour)); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	merged, _ = store.EntityByKey(ctx, stored.Key())
	if len(merged.Aliases) != 1 {
		t.Errorf("expected one alias, got %v", merged.Aliases)
	}

	if err := store.MergeEntity(ctx, "missing", "x", later); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_FindSimilarEntities(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.UpsertEntity(ctx, testEntity("United Nations", model.EntityOrganization))
	store.UpsertEntity(ctx, testEntity("Greenpeace", model.EntityOrganization))
	store.UpsertEntity(ctx, testEntity("United Nations", model.EntityConcept))

	matches, err := store.FindSimilarEntities(ctx, model.EntityOrganization, "UN", 0.85)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Entity.Name != "United Nations" {
		t.Errorf("unexpected match %q", matches[0].Entity.Name)
	}
	if matches[0].Score < 0.85 {
		t.Errorf("score %v below threshold", matches[0].Score)
	}
}

func TestMemoryStore_LinkIdempotent(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	store.CreateClaim(ctx, testClaim("c1", "emissions fell 10%", ts))
	store.CreateClaim(ctx, testClaim("c2", "emissions rose 5%", ts))

	props := map[string]interface{}{"confidence": 0.92, "detected_at": ts}

	created, err := store.Link(ctx, "c1", "c2", RelContradicts, props)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if !created {
		t.Error("expected first link to create")
	}

	// Reverse orientation maps to the same unordered pair
	created, err = store.Link(ctx, "c2", "c1", RelContradicts, props)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if created {
		t.Error("expected reverse link to no-op")
	}

	links, err := store.ContradictionsFor(ctx, "c1")
	if err != nil {
		t.Fatalf("contradictions lookup failed: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 contradiction, got %d", len(links))
	}
	if links[0].Other.ID != "c2" {
		t.Errorf("expected other claim c2, got %s", links[0].Other.ID)
	}
	if links[0].Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", links[0].Confidence)
	}

	// Seen from the other side too
	links, _ = store.ContradictionsFor(ctx, "c2")
	if len(links) != 1 || links[0].Other.ID != "c1" {
		t.Errorf("expected symmetric view from c2, got %+v", links)
	}
}

func TestMemoryStore_FindRelatedClaims(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	entity, _, _ := store.UpsertEntity(ctx, testEntity("Acme Corp", model.EntityOrganization))

	old := testClaim("old", "old claim", base.AddDate(0, -2, 0))
	recent := testClaim("recent", "recent claim", base.AddDate(0, 0, -10))
	newest := testClaim("newest", "newest claim", base.AddDate(0, 0, -1))
	for _, c := range []*model.Claim{newest, old, recent} {
		store.CreateClaim(ctx, c)
		store.Link(ctx, c.ID, entity.ID, RelAbout, nil)
	}

	since := base.AddDate(0, 0, -30)
	claims, err := store.FindRelatedClaims(ctx, []string{entity.ID}, since)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("expected 2 claims inside the window, got %d", len(claims))
	}
	if claims[0].ID != "recent" || claims[1].ID != "newest" {
		t.Errorf("expected ascending timestamp order, got %s then %s", claims[0].ID, claims[1].ID)
	}

	timeline, err := store.EntityTimeline(ctx, entity.ID)
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("expected full timeline of 3, got %d", len(timeline))
	}
	if timeline[0].ID != "old" {
		t.Errorf("expected oldest claim first, got %s", timeline[0].ID)
	}
}

func TestMemoryStore_ClaimStatus(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ts := time.Now().UTC()

	claim := testClaim("c1", "text", ts)
	claim.Status = model.StatusVerified
	store.CreateClaim(ctx, claim)

	if err := store.SetClaimStatus(ctx, "c1", model.StatusUnverified); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if err := store.SetClaimValidUntil(ctx, "c1", ts.Add(time.Hour)); err != nil {
		t.Fatalf("set valid-until failed: %v", err)
	}

	claims, _ := store.FindRelatedClaims(ctx, nil, time.Time{})
	_ = claims

	if err := store.SetClaimStatus(ctx, "missing", model.StatusRefuted); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Sources(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.SourceByDomain(ctx, "example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	source := model.NewSource("example.com", now)
	source.ClaimCount = 3
	if err := store.UpsertSource(ctx, source); err != nil {
		t.Fatalf("upsert source failed: %v", err)
	}

	found, err := store.SourceByDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.CredibilityScore != model.NeutralCredibility {
		t.Errorf("expected neutral prior, got %v", found.CredibilityScore)
	}
	if found.ClaimCount != 3 {
		t.Errorf("expected claim count 3, got %d", found.ClaimCount)
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ts := time.Now().UTC()

	store.UpsertEntity(ctx, testEntity("Acme", model.EntityOrganization))
	store.CreateClaim(ctx, testClaim("c1", "a", ts))
	store.CreateClaim(ctx, testClaim("c2", "b", ts))
	store.Link(ctx, "c1", "c2", RelContradicts, nil)
	store.UpsertSource(ctx, model.NewSource("example.com", ts))

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	want := Stats{Entities: 1, Claims: 2, Sources: 1, Contradictions: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}
