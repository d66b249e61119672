// Package mediapick selects, verifies, and caches the best illustrative
// image for generated content about a historical event. One selection fans
// out concurrent fetches across ranked external sources, filters the raw
// results for technical quality, scores the survivors with an AI oracle,
// and returns either an accepted image with its scoring metadata or a
// "no image" outcome. Accepted selections are cached by event fingerprint;
// downstream engagement metrics feed back into source ranking.
package mediapick

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultMinImageWidth is the minimum pixel width for accepted images.
	DefaultMinImageWidth = 600
	// DefaultMinImageHeight is the minimum pixel height for accepted images.
	DefaultMinImageHeight = 600

	// DefaultMaxSources is how many top-ranked sources are fetched per selection.
	DefaultMaxSources = 3

	// DefaultAcceptConfidence is the minimum verification confidence for
	// an APPROVED candidate to be accepted.
	DefaultAcceptConfidence = 70

	// DefaultSourceTimeout bounds a single source fetch when the registry
	// entry does not set its own timeout.
	DefaultSourceTimeout = 10 * time.Second
)

// ImageInput represents an image for a multimodal oracle call.
type ImageInput struct {
	URL      string // data: URI or HTTP URL
	MIMEType string // e.g. "image/jpeg"
}

// Storage abstracts the persisted key-value documents (cache, engagement log).
// Implementations must treat a missing or unreadable key as absent, never as
// an error condition visible to callers of Get.
type Storage interface {
	// Get decodes the document stored under key into dest.
	// Returns false if the key is absent or the document cannot be decoded.
	Get(ctx context.Context, key string, dest any) bool
	// Set stores value under key, replacing any previous document.
	Set(ctx context.Context, key string, value any) error
}

// Oracle abstracts the multimodal AI service used for match verification and
// style classification. The response is free-form text; the adapter in this
// package extracts a structured result with defensive defaults.
type Oracle interface {
	Analyze(ctx context.Context, prompt string, images []ImageInput) (string, error)
}

// Fetcher abstracts a per-source image fetch. A nil result with nil error
// means the source had nothing usable; errors and timeouts are treated the
// same way by the engine (that source contributes no candidate).
type Fetcher interface {
	Fetch(ctx context.Context, source Source, searchTerm string, year int) (*FetchResult, error)
}

// FetchResult holds one raw image payload plus source-supplied metadata.
type FetchResult struct {
	Data  []byte
	Title string
	URL   string
	Date  string
}

// SelectionEvent is emitted via Config.OnSelection after every completed
// selection, accepted or not.
type SelectionEvent struct {
	EventYear  int
	Accepted   bool
	FromCache  bool
	Source     string
	Confidence int
	Verdict    Verdict
	Candidates int // candidates that survived quality filtering
}

// Config holds all dependencies injected by the consumer.
type Config struct {
	Storage Storage  // required: backs the result cache and engagement log
	Oracle  Oracle   // required for scoring (nil = every candidate scores ERROR)
	Fetcher Fetcher  // optional: defaults to an HTTPFetcher over HTTPClient
	Sources []Source // required: source registry in declaration (priority) order

	HTTPClient *http.Client // optional: client for the default HTTPFetcher (nil = http.DefaultClient)
	UserAgent  string       // default: "Mozilla/5.0 (compatible; go-mediapick/1.0)"

	MinImageWidth  int // default: DefaultMinImageWidth
	MinImageHeight int // default: DefaultMinImageHeight
	MaxSources     int // default: DefaultMaxSources

	// AcceptConfidence overrides the acceptance threshold (default 70).
	AcceptConfidence int

	// Optional callbacks for metrics/logging.
	OnPanic     func(tag string, r any)
	OnSelection func(SelectionEvent)
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.MinImageWidth <= 0 {
		c.MinImageWidth = DefaultMinImageWidth
	}
	if c.MinImageHeight <= 0 {
		c.MinImageHeight = DefaultMinImageHeight
	}
	if c.MaxSources <= 0 {
		c.MaxSources = DefaultMaxSources
	}
	if c.AcceptConfidence <= 0 {
		c.AcceptConfidence = DefaultAcceptConfidence
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; go-mediapick/1.0)"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Fetcher == nil {
		c.Fetcher = &HTTPFetcher{Client: c.HTTPClient, UserAgent: c.UserAgent}
	}
}
