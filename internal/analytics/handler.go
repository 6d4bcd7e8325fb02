package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the engagement statistics endpoint. Live aggregates are
// preferred; if the consumer has not processed anything yet, the latest
// persisted snapshot is served instead.
type Handler struct {
	agg    *Aggregator
	store  *Store
	logger *slog.Logger
}

func NewHandler(agg *Aggregator, store *Store, logger *slog.Logger) *Handler {
	return &Handler{agg: agg, store: store, logger: logger.With("component", "analytics_handler")}
}

// Stats handles GET /api/analytics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.agg.Stats()
	if stats.TotalSearches == 0 && len(stats.AwardsByKind) == 0 && h.store != nil {
		if persisted, ok, err := h.store.LatestSnapshot(r.Context()); err != nil {
			h.logger.Warn("failed to load persisted snapshot", "error", err)
		} else if ok {
			stats = persisted
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode analytics response", "error", err)
	}
}
