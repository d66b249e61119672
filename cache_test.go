package mediapick

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testScored(source string, confidence int) *ScoredCandidate {
	return &ScoredCandidate{
		Candidate:    Candidate{SourceName: source},
		Verification: VerificationResult{Verdict: VerdictApproved, Confidence: confidence},
		Style:        StyleProfile{Type: "photograph", PreferenceScore: 50},
	}
}

func TestResultCache_StoreAndLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewResultCache(NewMemoryStorage())
	event := Event{Year: 1969, Description: "Apollo 11 moon landing astronauts"}

	if _, ok := cache.Lookup(ctx, event); ok {
		t.Fatal("lookup on empty cache should miss")
	}

	cache.Store(ctx, event, testScored("wikipedia", 88))

	entry, ok := cache.Lookup(ctx, event)
	if !ok {
		t.Fatal("expected hit after store")
	}
	if entry.Key != "1969_apollo_moon_landing_astronauts" {
		t.Errorf("Key = %q", entry.Key)
	}
	if entry.Source != "wikipedia" || entry.Confidence != 88 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.UseCount != 2 {
		t.Errorf("UseCount = %d, want 2 (1 from store, +1 from touching lookup)", entry.UseCount)
	}
}

func TestResultCache_LookupTouchPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := NewMemoryStorage()
	cache := NewResultCache(storage)
	event := Event{Year: 1969, Description: "Apollo 11 moon landing astronauts"}
	cache.Store(ctx, event, testScored("wikipedia", 88))

	// The hit side effect must be visible through a fresh cache over the
	// same storage.
	cache.Lookup(ctx, event)
	fresh := NewResultCache(storage)
	entry, ok := fresh.Peek(ctx, event)
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.UseCount != 2 {
		t.Errorf("UseCount = %d, want 2", entry.UseCount)
	}
}

func TestResultCache_PeekIsPure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewResultCache(NewMemoryStorage())
	event := Event{Year: 1969, Description: "Apollo 11 moon landing astronauts"}
	cache.Store(ctx, event, testScored("wikipedia", 88))

	cache.Peek(ctx, event)
	cache.Peek(ctx, event)
	entry, _ := cache.Peek(ctx, event)
	if entry.UseCount != 1 {
		t.Errorf("UseCount = %d, want 1 (peek must not touch)", entry.UseCount)
	}
}

func TestResultCache_OverwriteResetsUseCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewResultCache(NewMemoryStorage())
	event := Event{Year: 1969, Description: "Apollo 11 moon landing astronauts"}
	cache.Store(ctx, event, testScored("wikipedia", 88))
	cache.Lookup(ctx, event)
	cache.Lookup(ctx, event)

	cache.Store(ctx, event, testScored("loc", 91))
	entry, _ := cache.Peek(ctx, event)
	if entry.UseCount != 1 {
		t.Errorf("UseCount = %d, want 1 after overwrite", entry.UseCount)
	}
	if entry.Source != "loc" {
		t.Errorf("Source = %q, want loc", entry.Source)
	}
}

func TestResultCache_DescriptionTruncated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewResultCache(NewMemoryStorage())
	event := Event{Year: 1900, Description: strings.Repeat("expo ", 100)}
	cache.Store(ctx, event, testScored("wikipedia", 75))

	entry, _ := cache.Peek(ctx, event)
	if len(entry.EventDescription) > descriptionPrefixLen {
		t.Errorf("stored description length %d exceeds cap %d", len(entry.EventDescription), descriptionPrefixLen)
	}
}

func TestResultCache_EvictLRU(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := NewMemoryStorage()
	cache := NewResultCache(storage)

	// Seed past the 110% slack so eviction has work to do.
	const seeded = MaxCacheEntries + 60
	now := time.Now()
	doc := make(map[string]*CacheEntry, seeded)
	for i := 0; i < seeded; i++ {
		key := fmt.Sprintf("1900_entry_%04d", i)
		doc[key] = &CacheEntry{
			Key:      key,
			CachedAt: now,
			LastUsed: now.Add(time.Duration(i) * time.Second),
			UseCount: 1,
		}
	}
	if err := storage.Set(ctx, cacheDocument, doc); err != nil {
		t.Fatal(err)
	}

	cache.Evict(ctx)

	var after map[string]*CacheEntry
	if !storage.Get(ctx, cacheDocument, &after) {
		t.Fatal("cache document missing after evict")
	}
	if len(after) != MaxCacheEntries {
		t.Fatalf("entries after evict = %d, want %d", len(after), MaxCacheEntries)
	}
	// Exactly the most recently used survive: indexes [60, seeded).
	for i := 0; i < 60; i++ {
		if _, ok := after[fmt.Sprintf("1900_entry_%04d", i)]; ok {
			t.Errorf("entry %d should have been evicted", i)
		}
	}
	for i := 60; i < seeded; i++ {
		if _, ok := after[fmt.Sprintf("1900_entry_%04d", i)]; !ok {
			t.Errorf("entry %d should have survived", i)
		}
	}
}

func TestResultCache_EvictStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := NewMemoryStorage()
	cache := NewResultCache(storage)

	now := time.Now()
	doc := map[string]*CacheEntry{
		"old": {Key: "old", CachedAt: now.AddDate(0, 0, -(MaxCacheAgeDays + 1)), LastUsed: now},
		"new": {Key: "new", CachedAt: now, LastUsed: now},
	}
	if err := storage.Set(ctx, cacheDocument, doc); err != nil {
		t.Fatal(err)
	}

	cache.Evict(ctx)

	var after map[string]*CacheEntry
	storage.Get(ctx, cacheDocument, &after)
	if _, ok := after["old"]; ok {
		t.Error("stale entry survived age eviction")
	}
	if _, ok := after["new"]; !ok {
		t.Error("fresh entry was evicted")
	}
}

func TestResultCache_CorruptStoreReadsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cacheDocument+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewResultCache(&FileStorage{Dir: dir})
	event := Event{Year: 1969, Description: "Apollo 11 moon landing astronauts"}

	if _, ok := cache.Lookup(ctx, event); ok {
		t.Fatal("corrupt store must read as empty, not hit")
	}

	// And the cache remains usable: a store then hit works.
	cache.Store(ctx, event, testScored("wikipedia", 88))
	if _, ok := cache.Lookup(ctx, event); !ok {
		t.Fatal("expected hit after store over corrupt file")
	}
}
