package mediapick

import (
	"context"
	"sort"
)

// Source ranking tunables. Engagement averages are expected in a roughly
// 0-10 range, so the scale constant maps them onto the 0-100 score space.
const (
	basePriority          = 50.0
	engagementScale       = 10.0
	mediumSampleDiscount  = 0.7
	recencyPenaltyFactor  = 0.8
	highConfidenceSamples = 5
	minLearningSamples    = 2
	maxPriority           = 100.0
)

// Optimizer ranks sources by historical engagement, trading exploitation of
// proven performers against forced variety for recently used ones. Scoring
// is a pure function of the engagement log contents and the recent-source
// window, so orderings are reproducible from fixture data.
type Optimizer struct {
	sources []Source
	log     *EngagementLog
}

// NewOptimizer builds an optimizer over the registry and engagement history.
func NewOptimizer(sources []Source, log *EngagementLog) *Optimizer {
	return &Optimizer{sources: sources, log: log}
}

// Priority scores one source in [0,100]. Sources with enough engagement
// history score by their average; thin history is discounted; no history
// falls back to a uniform base so cold start explores evenly. Every
// appearance in recentSources compounds a multiplicative penalty.
func (o *Optimizer) Priority(ctx context.Context, sourceName string, recentSources []string) float64 {
	return o.priorityFrom(o.log.SourceStats(ctx), sourceName, recentSources)
}

func (o *Optimizer) priorityFrom(stats map[string]SourceStats, sourceName string, recentSources []string) float64 {
	score := basePriority
	if s, ok := stats[sourceName]; ok {
		switch {
		case s.Samples >= highConfidenceSamples:
			score = s.AvgEngagement * engagementScale
		case s.Samples >= minLearningSamples:
			score = s.AvgEngagement * engagementScale * mediumSampleDiscount
		}
	}

	for _, recent := range recentSources {
		if recent == sourceName {
			score *= recencyPenaltyFactor
		}
	}

	if score < 0 {
		score = 0
	}
	if score > maxPriority {
		score = maxPriority
	}
	return score
}

// Order returns all enabled source names, best first. Ties break by
// declaration order in the registry.
func (o *Optimizer) Order(ctx context.Context, recentSources []string) []string {
	stats := o.log.SourceStats(ctx)

	type ranked struct {
		name  string
		score float64
		index int
	}
	enabled := enabledSources(o.sources)
	rankings := make([]ranked, 0, len(enabled))
	for i, s := range enabled {
		rankings = append(rankings, ranked{
			name:  s.Name,
			score: o.priorityFrom(stats, s.Name, recentSources),
			index: i,
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].score != rankings[j].score {
			return rankings[i].score > rankings[j].score
		}
		return rankings[i].index < rankings[j].index
	})

	names := make([]string, len(rankings))
	for i, r := range rankings {
		names[i] = r.name
	}
	return names
}
