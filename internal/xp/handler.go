package xp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/irsescapeplan/platform/internal/auth/ratelimit"
	apperrors "github.com/irsescapeplan/platform/pkg/errors"
	"github.com/irsescapeplan/platform/pkg/middleware"
)

const maxBodyBytes = 4 << 10

// Handler serves the XP endpoints. Award submissions are throttled per user
// through the limiter; a nil limiter disables throttling.
type Handler struct {
	ledger  *Ledger
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewHandler(ledger *Ledger, limiter *ratelimit.Limiter, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, limiter: limiter, logger: logger.With("component", "xp_handler")}
}

type glossaryViewRequest struct {
	UserID string `json:"user_id"`
	TermID string `json:"term_id"`
}

type quizRequest struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// UserXP handles GET /api/users/xp/{userId}.
func (h *Handler) UserXP(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.UserXP(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AwardGlossaryView handles POST /api/users/xp/glossary.
func (h *Handler) AwardGlossaryView(w http.ResponseWriter, r *http.Request) {
	var req glossaryViewRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.allow(req.UserID) {
		h.writeError(w, r, apperrors.New(apperrors.ErrRateLimited, http.StatusTooManyRequests, "award rate exceeded"))
		return
	}
	result, err := h.ledger.AwardGlossaryView(r.Context(), req.UserID, req.TermID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AwardQuiz handles POST /api/users/xp/quiz.
func (h *Handler) AwardQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.allow(req.UserID) {
		h.writeError(w, r, apperrors.New(apperrors.ErrRateLimited, http.StatusTooManyRequests, "award rate exceeded"))
		return
	}
	result, err := h.ledger.AwardQuizCompletion(r.Context(), req.UserID, req.Points)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) allow(userID string) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(userID)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
	}
	// Trailing garbage after the JSON document is rejected.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: unexpected trailing data")
	}
	return nil
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
