package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("nli", "claim one", "claim two")
	b := Key("nli", "claim one", "claim two")
	if a != b {
		t.Errorf("same parts produced different keys: %s vs %s", a, b)
	}
	if Key("nli", "claim one") == Key("nli", "claim two") {
		t.Error("different parts produced the same key")
	}
}

func TestKeySeparatorAmbiguity(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("part boundaries are ambiguous")
	}
}

func TestPairKeyOrderIndependent(t *testing.T) {
	if PairKey("sim", "alpha", "beta") != PairKey("sim", "beta", "alpha") {
		t.Error("pair key depends on argument order")
	}
	if PairKey("sim", "alpha", "beta") == PairKey("nli", "alpha", "beta") {
		t.Error("pair key ignores kind")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("hit on a missing key")
	}

	if err := c.Set("k", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found := c.Get("k")
	if !found || !bytes.Equal(got, []byte("value")) {
		t.Errorf("Get = %q, %v; want value, true", got, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("hit after delete")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	if err := c.Set("k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("hit after TTL expired")
	}
}

func TestDiskCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := NewDiskCache(dir, time.Hour)
	if err := first.Set(Key("nli", "a", "b"), []byte("verdict"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second := NewDiskCache(dir, time.Hour)
	got, found := second.Get(Key("nli", "a", "b"))
	if !found || !bytes.Equal(got, []byte("verdict")) {
		t.Errorf("Get = %q, %v; want verdict, true", got, found)
	}
}

func TestDiskCacheExpiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("hit on an expired entry")
	}
}

func TestDiskCacheClear(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("hit after clear")
	}
}

func TestLayeredCachePromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	// Seed disk only, simulating a fresh process with a warm disk cache
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	got, found := layered.Get("k")
	if !found || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get = %q, %v; want v, true", got, found)
	}

	// A second read must hit the memory layer even if the disk entry goes
	if err := disk.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := layered.Get("k"); !found {
		t.Error("disk hit was not promoted to memory")
	}
}

func TestLayeredCacheWritesBothLayers(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	if err := layered.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	disk := NewDiskCache(dir, time.Hour)
	if _, found := disk.Get("k"); !found {
		t.Error("entry missing from the disk layer")
	}
}
