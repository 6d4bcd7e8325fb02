package xp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/irsescapeplan/platform/internal/analytics"
	"github.com/irsescapeplan/platform/pkg/config"
	apperrors "github.com/irsescapeplan/platform/pkg/errors"
	"github.com/irsescapeplan/platform/pkg/metrics"
	"github.com/irsescapeplan/platform/pkg/middleware"
)

// Store is the persistence contract for the ledger. RecordGlossaryView must
// be atomic: either the view row, the total increment, and the award log
// entry all commit, or none do. It reports created=false when the
// (user, term) pair was already recorded, without changing any totals.
type Store interface {
	TotalXP(ctx context.Context, userID string) (int64, error)
	RecordGlossaryView(ctx context.Context, userID, termID string, points int64) (created bool, err error)
	AddQuizPoints(ctx context.Context, userID string, points int64) error
}

// TermSet answers whether a term identifier refers to a live glossary term.
type TermSet interface {
	HasTerm(id string) bool
}

// Ledger applies the award rules on top of a Store: glossary views are
// worth a fixed amount exactly once per (user, term); quiz completions are
// additive with no deduplication.
type Ledger struct {
	store      Store
	terms      TermSet
	viewPoints int64
	maxQuiz    int64
	collector  *analytics.Collector
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewLedger(store Store, terms TermSet, cfg config.XPConfig, collector *analytics.Collector, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:      store,
		terms:      terms,
		viewPoints: cfg.GlossaryViewPoints,
		maxQuiz:    cfg.MaxQuizPoints,
		collector:  collector,
		metrics:    m,
		logger:     logger.With("component", "xp_ledger"),
	}
}

// UserXP returns the running total for a user. Users with no recorded awards
// have a total of zero; an unknown user is not an error.
func (l *Ledger) UserXP(ctx context.Context, userID string) (UserXP, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserXP{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "user_id is required")
	}
	total, err := l.store.TotalXP(ctx, userID)
	if err != nil {
		return UserXP{}, l.storeFailure("reading xp total", err)
	}
	return UserXP{UserID: userID, TotalXP: total}, nil
}

// AwardGlossaryView grants the fixed glossary-view amount the first time a
// user views a term, and reports already_viewed with zero points on every
// repeat. The term must exist in the active glossary.
func (l *Ledger) AwardGlossaryView(ctx context.Context, userID, termID string) (GlossaryViewResult, error) {
	userID = strings.TrimSpace(userID)
	termID = strings.TrimSpace(termID)
	if userID == "" {
		return GlossaryViewResult{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "user_id is required")
	}
	if termID == "" {
		return GlossaryViewResult{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "term_id is required")
	}
	if l.terms != nil && !l.terms.HasTerm(termID) {
		return GlossaryViewResult{}, apperrors.Newf(apperrors.ErrTermNotFound, http.StatusNotFound, "term %s not found", termID)
	}

	created, err := l.store.RecordGlossaryView(ctx, userID, termID, l.viewPoints)
	if err != nil {
		return GlossaryViewResult{}, l.storeFailure("recording glossary view", err)
	}

	result := GlossaryViewResult{Status: StatusAlreadyViewed}
	if created {
		result = GlossaryViewResult{Status: StatusSuccess, XPEarned: l.viewPoints, FirstView: true}
	}

	l.observeAward(ctx, KindGlossaryView, result.Status, userID, termID, result.XPEarned)
	l.logger.Debug("glossary view processed",
		"user_id", userID,
		"term_id", termID,
		"status", result.Status,
	)
	return result, nil
}

// AwardQuizCompletion adds the given points to the user's total. Repeat
// completions stack: two identical submissions earn twice the points.
func (l *Ledger) AwardQuizCompletion(ctx context.Context, userID string, points int64) (QuizResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return QuizResult{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "user_id is required")
	}
	if points < 0 {
		return QuizResult{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "points must not be negative")
	}
	if l.maxQuiz > 0 && points > l.maxQuiz {
		return QuizResult{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "points must not exceed %d", l.maxQuiz)
	}

	if err := l.store.AddQuizPoints(ctx, userID, points); err != nil {
		return QuizResult{}, l.storeFailure("adding quiz points", err)
	}

	l.observeAward(ctx, KindQuizCompletion, StatusSuccess, userID, "", points)
	l.logger.Debug("quiz completion processed", "user_id", userID, "points", points)
	return QuizResult{Status: StatusSuccess, XPEarned: points}, nil
}

func (l *Ledger) observeAward(ctx context.Context, kind AwardKind, status, userID, termID string, points int64) {
	if l.metrics != nil {
		l.metrics.XPAwardsTotal.WithLabelValues(string(kind), status).Inc()
		if points > 0 {
			l.metrics.XPPointsTotal.WithLabelValues(string(kind)).Add(float64(points))
		}
	}
	if l.collector != nil {
		eventType := analytics.EventGlossaryView
		if kind == KindQuizCompletion {
			eventType = analytics.EventQuizAward
		}
		l.collector.Track(analytics.Event{
			Type:      eventType,
			RequestID: middleware.GetRequestID(ctx),
			UserID:    userID,
			TermID:    termID,
			Status:    status,
			Points:    points,
		})
	}
}

func (l *Ledger) storeFailure(op string, err error) error {
	l.logger.Error("xp store operation failed", "op", op, "error", err)
	return apperrors.New(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, fmt.Sprintf("%s: storage unavailable", op))
}
