package mediapick

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEngagementRecords bounds the engagement log. Oldest records drop first
// (FIFO by insertion, not recency of use).
const MaxEngagementRecords = 100

// Engagement weights for the performance aggregate.
const (
	retweetWeight = 2.0
	replyWeight   = 1.5
)

// EngagementRecord ties one accepted selection to its downstream engagement.
// Metric fields are nil until RecordEngagement fills them, exactly once.
type EngagementRecord struct {
	SelectionID string    `json:"selection_id"`
	Timestamp   time.Time `json:"timestamp"`
	SourceName  string    `json:"source_name"`
	Confidence  int       `json:"confidence"`
	Verdict     Verdict   `json:"verdict"`
	StyleType   string    `json:"style_type,omitempty"`

	Likes       *int `json:"likes,omitempty"`
	Retweets    *int `json:"retweets,omitempty"`
	Replies     *int `json:"replies,omitempty"`
	Impressions *int `json:"impressions,omitempty"`
}

// EngagementMetrics is the asynchronous feedback payload delivered after a
// selection has been posted.
type EngagementMetrics struct {
	Likes       int
	Retweets    int
	Replies     int
	Impressions int
}

// SourceStats is the derived performance aggregate for one source, computed
// on demand from records with metrics present.
type SourceStats struct {
	Samples       int
	AvgEngagement float64
}

// EngagementLog is the append-only selection history backing source and
// style learning. Like the cache, it degrades to empty on any persistence
// failure and never fails a selection.
type EngagementLog struct {
	storage Storage
	now     func() time.Time

	mu sync.Mutex
}

// NewEngagementLog wraps a Storage in the engagement log contract.
func NewEngagementLog(storage Storage) *EngagementLog {
	return &EngagementLog{storage: storage, now: time.Now}
}

// Append records a new selection with null metrics and returns its ID.
// The log is trimmed to the newest MaxEngagementRecords entries.
func (l *EngagementLog) Append(ctx context.Context, sourceName string, confidence int, verdict Verdict, styleType string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load(ctx)
	rec := EngagementRecord{
		SelectionID: uuid.NewString(),
		Timestamp:   l.now(),
		SourceName:  sourceName,
		Confidence:  confidence,
		Verdict:     verdict,
		StyleType:   styleType,
	}
	records = append(records, rec)
	if len(records) > MaxEngagementRecords {
		records = records[len(records)-MaxEngagementRecords:]
	}
	l.persist(ctx, records)
	return rec.SelectionID
}

// RecordEngagement fills the metrics of one selection. Returns false if the
// selection is unknown or its metrics were already recorded; records are
// mutated at most once.
func (l *EngagementLog) RecordEngagement(ctx context.Context, selectionID string, m EngagementMetrics) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load(ctx)
	for i := range records {
		if records[i].SelectionID != selectionID {
			continue
		}
		if records[i].Likes != nil {
			return false
		}
		records[i].Likes = &m.Likes
		records[i].Retweets = &m.Retweets
		records[i].Replies = &m.Replies
		records[i].Impressions = &m.Impressions
		l.persist(ctx, records)
		return true
	}
	return false
}

// SourceStats groups records with metrics by source and averages the
// weighted engagement value likes + 2*retweets + 1.5*replies.
func (l *EngagementLog) SourceStats(ctx context.Context) map[string]SourceStats {
	l.mu.Lock()
	records := l.load(ctx)
	l.mu.Unlock()

	stats := make(map[string]SourceStats)
	for i := range records {
		v, ok := engagementValue(&records[i])
		if !ok {
			continue
		}
		s := stats[records[i].SourceName]
		s.AvgEngagement = (s.AvgEngagement*float64(s.Samples) + v) / float64(s.Samples+1)
		s.Samples++
		stats[records[i].SourceName] = s
	}
	return stats
}

// StyleAverage returns the average engagement for records tagged with the
// given style type. ok is false when no such record has metrics yet.
func (l *EngagementLog) StyleAverage(ctx context.Context, styleType string) (float64, bool) {
	l.mu.Lock()
	records := l.load(ctx)
	l.mu.Unlock()

	var sum float64
	var n int
	for i := range records {
		if records[i].StyleType != styleType {
			continue
		}
		v, ok := engagementValue(&records[i])
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// RecentSources returns the source names of the newest n selections,
// newest last.
func (l *EngagementLog) RecentSources(ctx context.Context, n int) []string {
	l.mu.Lock()
	records := l.load(ctx)
	l.mu.Unlock()

	if len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]string, 0, len(records))
	for i := range records {
		out = append(out, records[i].SourceName)
	}
	return out
}

// engagementValue computes the weighted engagement for one record; ok is
// false while metrics are still null.
func engagementValue(r *EngagementRecord) (float64, bool) {
	if r.Likes == nil {
		return 0, false
	}
	v := float64(*r.Likes)
	if r.Retweets != nil {
		v += retweetWeight * float64(*r.Retweets)
	}
	if r.Replies != nil {
		v += replyWeight * float64(*r.Replies)
	}
	return v, true
}

func (l *EngagementLog) load(ctx context.Context) []EngagementRecord {
	var records []EngagementRecord
	l.storage.Get(ctx, engagementDocument, &records)
	return records
}

func (l *EngagementLog) persist(ctx context.Context, records []EngagementRecord) {
	if err := l.storage.Set(ctx, engagementDocument, records); err != nil {
		slog.Warn("mediapick: engagement log write failed", "error", err.Error())
	}
}
