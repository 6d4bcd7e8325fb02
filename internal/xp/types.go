// Package xp implements the experience-point ledger: exactly-once glossary
// view awards, additive quiz completion awards, and per-user running totals.
package xp

// AwardKind identifies the activity that earned the points.
type AwardKind string

const (
	KindGlossaryView   AwardKind = "glossary_view"
	KindQuizCompletion AwardKind = "quiz_completion"
)

// Award statuses returned to clients.
const (
	StatusSuccess       = "success"
	StatusAlreadyViewed = "already_viewed"
)

// UserXP is a user's running point total.
type UserXP struct {
	UserID  string `json:"user_id"`
	TotalXP int64  `json:"total_xp"`
}

// GlossaryViewResult reports the outcome of a glossary view award. FirstView
// is true only on the award that actually granted points; repeats return
// StatusAlreadyViewed with zero XPEarned.
type GlossaryViewResult struct {
	Status    string `json:"status"`
	XPEarned  int64  `json:"xp_earned"`
	FirstView bool   `json:"first_view"`
}

// QuizResult reports the outcome of a quiz completion award.
type QuizResult struct {
	Status   string `json:"status"`
	XPEarned int64  `json:"xp_earned"`
}
