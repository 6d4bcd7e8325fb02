package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/irsescapeplan/platform/internal/seeder"
)

// AdminHandler serves the operator endpoints behind API-key auth.
type AdminHandler struct {
	seeder   *seeder.Seeder
	seedFile string
	cache    seeder.CacheInvalidator
	logger   *slog.Logger
}

func NewAdminHandler(s *seeder.Seeder, seedFile string, cache seeder.CacheInvalidator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		seeder:   s,
		seedFile: seedFile,
		cache:    cache,
		logger:   logger.With("component", "admin_handler"),
	}
}

// Reseed handles POST /api/admin/reseed: replaces the glossary from the
// configured fixture and returns the seed report.
func (h *AdminHandler) Reseed(w http.ResponseWriter, r *http.Request) {
	report, err := h.seeder.SeedFromFile(r.Context(), h.seedFile)
	if err != nil {
		h.logger.Error("reseed failed", "error", err)
		writeAdminJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeAdminJSON(w, http.StatusOK, report)
}

// CacheInvalidate handles POST /api/admin/cache/invalidate.
func (h *AdminHandler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeAdminJSON(w, http.StatusOK, map[string]any{"flushed": 0, "cache": "disabled"})
		return
	}
	flushed, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		writeAdminJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeAdminJSON(w, http.StatusOK, map[string]any{"flushed": flushed})
}

func writeAdminJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
