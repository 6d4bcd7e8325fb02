package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/irsescapeplan/platform/pkg/kafka"
)

const topQueryLimit = 10

// Aggregator consumes the engagement stream and maintains running statistics.
// It is the MessageHandler side of the analytics pipeline; Stats reads are
// lock-protected snapshots.
type Aggregator struct {
	mu sync.RWMutex

	totalSearches   int64
	zeroResults     int64
	cacheHits       int64
	cacheMisses     int64
	latencySum      float64
	latencyCount    int64
	queryCounts     map[string]int64
	zeroResultCount map[string]int64
	awardsByKind    map[string]int64
	pointsByKind    map[string]int64
	duplicateViews  int64
	activeUsers     map[string]struct{}

	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{
		queryCounts:     make(map[string]int64),
		zeroResultCount: make(map[string]int64),
		awardsByKind:    make(map[string]int64),
		pointsByKind:    make(map[string]int64),
		activeUsers:     make(map[string]struct{}),
		logger:          logger.With("component", "analytics_aggregator"),
	}
}

// Handle decodes and folds one Kafka message into the running aggregates.
// It is the MessageHandler passed to the engagement-topic consumer.
func (a *Aggregator) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[Event](value)
	if err != nil {
		// Malformed events are logged and skipped so one bad message
		// cannot wedge the consumer on redelivery.
		a.logger.Warn("skipping undecodable event", "key", string(key), "error", err)
		return nil
	}
	a.Record(event)
	return nil
}

// Record folds a single event into the aggregates.
func (a *Aggregator) Record(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch event.Type {
	case EventSearch:
		a.totalSearches++
		q := strings.ToLower(strings.TrimSpace(event.Query))
		if q != "" {
			a.queryCounts[q]++
		}
		if event.ResultCount == 0 {
			a.zeroResults++
			if q != "" {
				a.zeroResultCount[q]++
			}
		}
		if event.CacheHit {
			a.cacheHits++
		} else {
			a.cacheMisses++
		}
		a.latencySum += event.LatencyMs
		a.latencyCount++
	case EventGlossaryView, EventQuizAward:
		a.awardsByKind[event.Type]++
		a.pointsByKind[event.Type] += event.Points
		if event.Type == EventGlossaryView && event.Status == "already_viewed" {
			a.duplicateViews++
		}
		if event.UserID != "" {
			a.activeUsers[event.UserID] = struct{}{}
		}
	default:
		a.logger.Debug("ignoring unknown event type", "type", event.Type)
	}
}

// Stats returns a snapshot of the aggregates.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var avgLatency float64
	if a.latencyCount > 0 {
		avgLatency = a.latencySum / float64(a.latencyCount)
	}
	stats := Stats{
		TotalSearches:     a.totalSearches,
		ZeroResultCount:   a.zeroResults,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		AvgLatencyMs:      avgLatency,
		TopQueries:        topN(a.queryCounts, topQueryLimit),
		ZeroResultQueries: topN(a.zeroResultCount, topQueryLimit),
		AwardsByKind:      copyCounts(a.awardsByKind),
		PointsByKind:      copyCounts(a.pointsByKind),
		DuplicateViews:    a.duplicateViews,
		ActiveUsers:       len(a.activeUsers),
		GeneratedAt:       time.Now().UTC(),
	}
	return stats
}

func topN(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
