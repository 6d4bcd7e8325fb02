package server

import (
	"net/http"
	"time"

	"github.com/irsescapeplan/platform/internal/analytics"
	"github.com/irsescapeplan/platform/internal/auth/apikey"
	"github.com/irsescapeplan/platform/internal/chat"
	"github.com/irsescapeplan/platform/internal/glossary"
	"github.com/irsescapeplan/platform/internal/xp"
	"github.com/irsescapeplan/platform/pkg/health"
	"github.com/irsescapeplan/platform/pkg/metrics"
	"github.com/irsescapeplan/platform/pkg/middleware"
)

// Deps carries the wired handlers the router mounts. Analytics, Chat, Admin,
// and Keys may be nil; their routes are simply not registered.
type Deps struct {
	Glossary  *glossary.Handler
	XP        *xp.Handler
	Analytics *analytics.Handler
	Chat      *chat.Handler
	Admin     *AdminHandler
	Keys      *apikey.Validator
	Checker   *health.Checker
	Metrics   *metrics.Metrics
	Timeout   time.Duration
}

// New builds the full HTTP handler: route table plus the
// RequestID -> Metrics -> Timeout middleware chain.
func New(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/glossary", deps.Glossary.List)
	mux.HandleFunc("GET /api/glossary/search", deps.Glossary.Search)
	mux.HandleFunc("GET /api/users/xp/{userId}", deps.XP.UserXP)
	mux.HandleFunc("POST /api/users/xp/glossary", deps.XP.AwardGlossaryView)
	mux.HandleFunc("POST /api/users/xp/quiz", deps.XP.AwardQuiz)

	if deps.Analytics != nil {
		mux.HandleFunc("GET /api/analytics", deps.Analytics.Stats)
	}
	if deps.Chat != nil {
		mux.HandleFunc("POST /api/chat", deps.Chat.Chat)
	}
	if deps.Admin != nil {
		guard := RequireAPIKey(deps.Keys)
		mux.Handle("POST /api/admin/reseed", guard(http.HandlerFunc(deps.Admin.Reseed)))
		mux.Handle("POST /api/admin/cache/invalidate", guard(http.HandlerFunc(deps.Admin.CacheInvalidate)))
	}

	mux.HandleFunc("GET /health/live", deps.Checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", deps.Checker.ReadyHandler())

	var chain http.Handler = mux
	if deps.Timeout > 0 {
		chain = middleware.Timeout(deps.Timeout)(chain)
	}
	if deps.Metrics != nil {
		chain = middleware.Metrics(deps.Metrics)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
