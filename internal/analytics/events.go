// Package analytics collects engagement events (glossary searches and XP
// awards), publishes them to Kafka, and aggregates the consumed stream into
// the statistics served by the analytics endpoint.
package analytics

import "time"

// Event types carried on the engagement topic.
const (
	EventSearch       = "search"
	EventGlossaryView = "glossary_view"
	EventQuizAward    = "quiz_completion"
)

// Event is a single engagement event. Fields beyond Type are populated
// according to the event type: searches carry Query/ResultCount/CacheHit,
// awards carry UserID/Kind/Status/Points and, for glossary views, TermID.
type Event struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	Query       string    `json:"query,omitempty"`
	ResultCount int       `json:"result_count,omitempty"`
	CacheHit    bool      `json:"cache_hit,omitempty"`
	LatencyMs   float64   `json:"latency_ms,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	TermID      string    `json:"term_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Points      int64     `json:"points,omitempty"`
}

// Stats is the aggregate view of the engagement stream served by the
// analytics endpoint.
type Stats struct {
	TotalSearches     int64            `json:"total_searches"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	AwardsByKind      map[string]int64 `json:"awards_by_kind"`
	PointsByKind      map[string]int64 `json:"points_by_kind"`
	DuplicateViews    int64            `json:"duplicate_views"`
	ActiveUsers       int              `json:"active_users"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// QueryCount pairs a search query with how many times it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
