package glossary

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/irsescapeplan/platform/internal/analytics"
	apperrors "github.com/irsescapeplan/platform/pkg/errors"
	"github.com/irsescapeplan/platform/pkg/metrics"
	"github.com/irsescapeplan/platform/pkg/middleware"
	"github.com/irsescapeplan/platform/pkg/tracing"
)

// Handler serves the glossary endpoints. The cache and collector are
// optional: a nil cache searches the index directly, a nil collector skips
// engagement tracking.
type Handler struct {
	index     *SearchIndex
	cache     *SearchCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewHandler(index *SearchIndex, cache *SearchCache, collector *analytics.Collector, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		index:     index,
		cache:     cache,
		collector: collector,
		metrics:   m,
		logger:    logger.With("component", "glossary_handler"),
	}
}

// List handles GET /api/glossary. The body is a bare JSON array of terms.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.index.ListAll())
}

// Search handles GET /api/glossary/search?q=<query>. The q parameter must be
// present; a blank value returns the full glossary.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "glossary.search", middleware.GetRequestID(r.Context()))
	defer span.End()

	if !r.URL.Query().Has("q") {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "missing required query parameter q"))
		return
	}
	query := r.URL.Query().Get("q")
	span.SetAttr("query", query)

	start := time.Now()
	var (
		results  []Term
		cacheHit bool
	)
	if h.cache != nil {
		var err error
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, func() ([]Term, error) {
			return h.index.Search(query), nil
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	} else {
		results = h.index.Search(query)
	}
	elapsed := time.Since(start)

	if h.metrics != nil {
		resultType := "hit"
		if len(results) == 0 {
			resultType = "zero_result"
		}
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.metrics.SearchesTotal.WithLabelValues(resultType).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(results)))
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	if h.collector != nil {
		h.collector.Track(analytics.Event{
			Type:        analytics.EventSearch,
			RequestID:   middleware.GetRequestID(ctx),
			Query:       query,
			ResultCount: len(results),
			CacheHit:    cacheHit,
			LatencyMs:   float64(elapsed.Microseconds()) / 1000,
		})
	}

	if results == nil {
		results = []Term{}
	}
	h.logger.Debug("search served",
		"query", query,
		"result_count", len(results),
		"cache_hit", cacheHit,
		"took_ms", elapsed.Milliseconds(),
	)
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
