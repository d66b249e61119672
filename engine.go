package mediapick

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

const (
	// recentWindow is how many trailing selections feed the exploration
	// penalty.
	recentWindow = 5

	// scoringConcurrency bounds concurrent candidate scoring.
	scoringConcurrency = 3
)

// SelectionOutcome is the result of one selection. A rejected outcome is a
// normal terminal state ("no image"), not an error; BestAttempt carries the
// top-ranked candidate that still failed the acceptance gate, when one
// exists.
type SelectionOutcome struct {
	Accepted    bool
	Data        []byte
	Source      string
	Confidence  int
	Verdict     Verdict
	Style       StyleProfile
	SelectionID string
	FromCache   bool
	BestAttempt *ScoredCandidate
}

// Engine drives the end-to-end selection flow: cache check, source ranking,
// concurrent fetch, quality filtering, oracle scoring, and the final
// accept/reject decision.
type Engine struct {
	cfg    Config
	cache  *ResultCache
	log    *EngagementLog
	opt    *Optimizer
	scorer *Scorer
	prio   map[string]int
}

// New validates the configuration and builds an engine. Configuration
// problems are the only errors this package surfaces; everything at
// selection time degrades to a rejected outcome instead.
func New(cfg Config) (*Engine, error) {
	cfg.defaults()
	if cfg.Storage == nil {
		return nil, errors.New("mediapick: Storage is required")
	}
	if err := validateSources(cfg.Sources); err != nil {
		return nil, err
	}

	log := NewEngagementLog(cfg.Storage)
	scorer := NewScorer(cfg.Oracle, log)
	scorer.onPanic = cfg.OnPanic

	return &Engine{
		cfg:    cfg,
		cache:  NewResultCache(cfg.Storage),
		log:    log,
		opt:    NewOptimizer(cfg.Sources, log),
		scorer: scorer,
		prio:   priorityIndex(cfg.Sources),
	}, nil
}

// Cache exposes the result cache for maintenance (explicit eviction).
func (e *Engine) Cache() *ResultCache { return e.cache }

// RecordEngagement feeds posted-selection metrics back into the engagement
// log. It affects future source ranking only; completed selections are
// untouched. Returns false for unknown or already-recorded selections.
func (e *Engine) RecordEngagement(ctx context.Context, selectionID string, m EngagementMetrics) bool {
	return e.log.RecordEngagement(ctx, selectionID, m)
}

// SelectImage picks the best verified image for the event, or reports that
// none qualifies. Never returns an error: any failure anywhere in the
// pipeline, including panics, degrades to a rejected outcome with a logged
// cause.
func (e *Engine) SelectImage(ctx context.Context, event Event, generatedText string) (out SelectionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			if e.cfg.OnPanic != nil {
				e.cfg.OnPanic("selectImage", r)
			}
			slog.Error("mediapick: selection panicked, returning no image", "year", event.Year, "panic", r)
			out = SelectionOutcome{}
		}
	}()

	// Fast path: a past winner for the same event fingerprint. Only the
	// metadata is cached, so the bytes are re-fetched from the recorded
	// source; if that fails, fall through to the full pipeline.
	if entry, ok := e.cache.Lookup(ctx, event); ok {
		if data := e.refetchCached(ctx, event, entry); data != nil {
			out = SelectionOutcome{
				Accepted:   true,
				Data:       data,
				Source:     entry.Source,
				Confidence: entry.Confidence,
				Verdict:    entry.Verdict,
				Style:      entry.Style,
				FromCache:  true,
			}
			e.emit(event, out, 0)
			return out
		}
		slog.Warn("mediapick: cached source re-fetch failed, running full pipeline",
			"key", entry.Key, "source", entry.Source)
	}

	return e.runPipeline(ctx, event, generatedText)
}

// refetchCached re-downloads the bytes of a cached winner from its source.
func (e *Engine) refetchCached(ctx context.Context, event Event, entry *CacheEntry) []byte {
	src, ok := sourceByName(e.cfg.Sources, entry.Source)
	if !ok || !src.Enabled {
		return nil
	}
	fctx, cancel := context.WithTimeout(ctx, src.Timeout())
	defer cancel()

	res, err := e.cfg.Fetcher.Fetch(fctx, src, BuildSearchTerm(event), event.Year)
	if err != nil || res == nil || len(res.Data) == 0 {
		return nil
	}
	return res.Data
}

// runPipeline is the full selection flow past the cache.
func (e *Engine) runPipeline(ctx context.Context, event Event, generatedText string) SelectionOutcome {
	// FETCHING: fan out over the top-ranked sources.
	recent := e.log.RecentSources(ctx, recentWindow)
	order := e.opt.Order(ctx, recent)
	if len(order) > e.cfg.MaxSources {
		order = order[:e.cfg.MaxSources]
	}
	candidates := e.fetchAll(ctx, order, BuildSearchTerm(event), event.Year)

	// FILTERING: cheap deterministic rejection before any oracle call.
	passed := e.filterCandidates(candidates)
	if len(passed) == 0 {
		slog.Info("mediapick: no candidates survived filtering", "year", event.Year, "fetched", len(candidates))
		out := SelectionOutcome{}
		e.emit(event, out, 0)
		return out
	}

	// SCORING: verification and style per candidate.
	scored := e.scoreAll(ctx, passed, event, generatedText)

	// DECIDING: rank by combined score, then gate on the verdict. Style
	// never overrides a failing verification.
	rankCandidates(scored, e.prio)
	best := scored[0]

	if best.Verification.Verdict != VerdictApproved || best.Verification.Confidence < e.cfg.AcceptConfidence {
		slog.Info("mediapick: best candidate rejected",
			"year", event.Year,
			"source", best.Candidate.SourceName,
			"verdict", string(best.Verification.Verdict),
			"confidence", best.Verification.Confidence)
		out := SelectionOutcome{BestAttempt: &best}
		e.emit(event, out, len(passed))
		return out
	}

	// ACCEPTED: persist and return.
	e.cache.Store(ctx, event, &best)
	selectionID := e.log.Append(ctx, best.Candidate.SourceName, best.Verification.Confidence,
		best.Verification.Verdict, best.Style.Type)

	out := SelectionOutcome{
		Accepted:    true,
		Data:        best.Candidate.Data,
		Source:      best.Candidate.SourceName,
		Confidence:  best.Verification.Confidence,
		Verdict:     best.Verification.Verdict,
		Style:       best.Style,
		SelectionID: selectionID,
	}
	e.emit(event, out, len(passed))
	return out
}

// fetchAll issues one fetch per source concurrently, each bounded by its
// configured timeout. Settle-all: a failing or timed-out source contributes
// nothing and never aborts its siblings. The returned slice is in registry
// priority order so arrival order cannot leak into the decision.
func (e *Engine) fetchAll(ctx context.Context, names []string, searchTerm string, year int) []Candidate {
	var (
		mu  sync.Mutex
		out []Candidate
		wg  sync.WaitGroup
	)
	for _, name := range names {
		src, ok := sourceByName(e.cfg.Sources, name)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					if e.cfg.OnPanic != nil {
						e.cfg.OnPanic("fetch", r)
					}
				}
			}()

			fctx, cancel := context.WithTimeout(ctx, src.Timeout())
			defer cancel()

			res, err := e.cfg.Fetcher.Fetch(fctx, src, searchTerm, year)
			if err != nil {
				slog.Warn("mediapick: source fetch failed", "source", src.Name, "error", err.Error())
				return
			}
			if res == nil || len(res.Data) == 0 {
				slog.Debug("mediapick: source returned nothing", "source", src.Name)
				return
			}

			mu.Lock()
			out = append(out, Candidate{
				SourceName: src.Name,
				Data:       res.Data,
				Title:      res.Title,
				URL:        res.URL,
				Date:       res.Date,
				SearchTerm: searchTerm,
			})
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool {
		return sourceRank(e.prio, out[i].SourceName) < sourceRank(e.prio, out[j].SourceName)
	})
	return out
}

// filterCandidates applies the quality filter and perceptual dedup.
func (e *Engine) filterCandidates(candidates []Candidate) []Candidate {
	dedup := &dedupFilter{}
	passed := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" && IsLogoOrBanner(strings.ToLower(c.URL)) {
			slog.Debug("mediapick: logo/banner URL rejected", "source", c.SourceName, "url", c.URL)
			continue
		}
		q := CheckQuality(c.Data, e.cfg.MinImageWidth, e.cfg.MinImageHeight)
		if !q.Passed {
			slog.Debug("mediapick: quality rejected", "source", c.SourceName, "reason", q.Reason)
			continue
		}
		if dedup.isDuplicate(c.Data) {
			slog.Debug("mediapick: duplicate image rejected", "source", c.SourceName)
			continue
		}
		c.Width, c.Height, c.ByteSize = q.Width, q.Height, q.ByteSize
		passed = append(passed, c)
	}
	return passed
}

// scoreAll runs the oracle over each surviving candidate, a few at a time.
// Results are collected by index so the output order matches the input.
func (e *Engine) scoreAll(ctx context.Context, candidates []Candidate, event Event, generatedText string) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	sem := make(chan struct{}, scoringConcurrency)
	var wg sync.WaitGroup

	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			verif, style := e.scorer.Score(ctx, &candidates[i], event, generatedText)
			scored[i] = ScoredCandidate{
				Candidate:    candidates[i],
				Verification: verif,
				Style:        style,
			}
		}(i)
	}
	wg.Wait()
	return scored
}

func (e *Engine) emit(event Event, out SelectionOutcome, surviving int) {
	if e.cfg.OnSelection == nil {
		return
	}
	e.cfg.OnSelection(SelectionEvent{
		EventYear:  event.Year,
		Accepted:   out.Accepted,
		FromCache:  out.FromCache,
		Source:     out.Source,
		Confidence: out.Confidence,
		Verdict:    out.Verdict,
		Candidates: surviving,
	})
}
