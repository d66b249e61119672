package mediapick

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	// MaxCacheEntries bounds the result cache size.
	MaxCacheEntries = 500
	// MaxCacheAgeDays is the TTL for cache entries.
	MaxCacheAgeDays = 90

	// evictSlack delays eviction until the store is 10% over capacity, so
	// the full age+LRU sweep does not run on every write.
	evictSlack = 1.1

	// descriptionPrefixLen caps the stored event description to bound
	// per-entry storage growth.
	descriptionPrefixLen = 100
)

// CacheEntry records the metadata of a past winning image for one event
// fingerprint. Bytes are not cached; a hit still requires a fresh fetch
// from the recorded source.
type CacheEntry struct {
	Key              string       `json:"key"`
	Source           string       `json:"source"`
	Confidence       int          `json:"confidence"`
	Verdict          Verdict      `json:"verdict"`
	Style            StyleProfile `json:"style_info"`
	CachedAt         time.Time    `json:"cached_at"`
	LastUsed         time.Time    `json:"last_used"`
	UseCount         int          `json:"use_count"`
	EventYear        int          `json:"event_year"`
	EventDescription string       `json:"event_description"` // truncated prefix
}

// ResultCache is the content-addressed store of accepted selections, keyed
// by event fingerprint. It is a performance optimization, not a correctness
// dependency: every persistence failure degrades to an empty or unmodified
// view and the pipeline proceeds.
type ResultCache struct {
	storage Storage
	now     func() time.Time

	mu sync.Mutex
}

// NewResultCache wraps a Storage in the cache contract.
func NewResultCache(storage Storage) *ResultCache {
	return &ResultCache{storage: storage, now: time.Now}
}

// Lookup returns the entry for event, if any. A hit has a write side effect:
// LastUsed and UseCount are updated and persisted before returning. Callers
// needing a pure read should use Peek.
func (c *ResultCache) Lookup(ctx context.Context, event Event) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := c.load(ctx)
	key := DeriveKey(event)
	entry, ok := doc[key]
	if !ok {
		return nil, false
	}

	entry.LastUsed = c.now()
	entry.UseCount++
	c.persist(ctx, doc)

	cp := *entry
	return &cp, true
}

// Peek is the side-effect-free variant of Lookup.
func (c *ResultCache) Peek(ctx context.Context, event Event) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := c.load(ctx)
	entry, ok := doc[DeriveKey(event)]
	if !ok {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

// Touch applies the hit side effect (LastUsed, UseCount) explicitly.
func (c *ResultCache) Touch(ctx context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := c.load(ctx)
	entry, ok := doc[DeriveKey(event)]
	if !ok {
		return
	}
	entry.LastUsed = c.now()
	entry.UseCount++
	c.persist(ctx, doc)
}

// Store upserts the entry for event after an accepted selection. Overwriting
// an existing key resets UseCount to 1. Eviction runs opportunistically when
// the store exceeds capacity with slack.
func (c *ResultCache) Store(ctx context.Context, event Event, sel *ScoredCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := c.load(ctx)
	key := DeriveKey(event)
	now := c.now()

	desc := event.Description
	if len(desc) > descriptionPrefixLen {
		desc = desc[:descriptionPrefixLen]
	}

	doc[key] = &CacheEntry{
		Key:              key,
		Source:           sel.Candidate.SourceName,
		Confidence:       sel.Verification.Confidence,
		Verdict:          sel.Verification.Verdict,
		Style:            sel.Style,
		CachedAt:         now,
		LastUsed:         now,
		UseCount:         1,
		EventYear:        event.Year,
		EventDescription: desc,
	}

	if len(doc) > int(float64(MaxCacheEntries)*evictSlack) {
		c.evictLocked(doc)
	}
	c.persist(ctx, doc)
}

// Evict applies the retention policy immediately: drop entries older than
// MaxCacheAgeDays, then trim to the MaxCacheEntries most recently used.
func (c *ResultCache) Evict(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := c.load(ctx)
	c.evictLocked(doc)
	c.persist(ctx, doc)
}

func (c *ResultCache) evictLocked(doc map[string]*CacheEntry) {
	// Phase 1: age.
	cutoff := c.now().AddDate(0, 0, -MaxCacheAgeDays)
	for key, entry := range doc {
		if entry.CachedAt.Before(cutoff) {
			delete(doc, key)
		}
	}

	// Phase 2: LRU trim to capacity.
	if len(doc) <= MaxCacheEntries {
		return
	}
	entries := make([]*CacheEntry, 0, len(doc))
	for _, e := range doc {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastUsed.After(entries[j].LastUsed)
	})
	for _, e := range entries[MaxCacheEntries:] {
		delete(doc, e.Key)
	}
}

// load reads the cache document; any failure yields an empty cache.
func (c *ResultCache) load(ctx context.Context) map[string]*CacheEntry {
	doc := make(map[string]*CacheEntry)
	c.storage.Get(ctx, cacheDocument, &doc)
	return doc
}

// persist writes the cache document; failures are logged and swallowed.
func (c *ResultCache) persist(ctx context.Context, doc map[string]*CacheEntry) {
	if err := c.storage.Set(ctx, cacheDocument, doc); err != nil {
		slog.Warn("mediapick: cache write failed", "error", err.Error())
	}
}
