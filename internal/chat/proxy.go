// Package chat forwards assistant conversations to the upstream AI service.
// The platform holds no conversation state; it adds a circuit breaker in
// front of the upstream so a dead assistant degrades to fast 503s instead of
// piling up hung requests.
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/irsescapeplan/platform/pkg/config"
	"github.com/irsescapeplan/platform/pkg/metrics"
	"github.com/irsescapeplan/platform/pkg/middleware"
	"github.com/irsescapeplan/platform/pkg/resilience"
)

const maxChatBodyBytes = 64 << 10

// Handler proxies chat requests to the upstream assistant.
type Handler struct {
	upstreamURL string
	client      *http.Client
	breaker     *resilience.CircuitBreaker
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewHandler(cfg config.ChatConfig, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		upstreamURL: cfg.UpstreamURL,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		breaker: resilience.NewCircuitBreaker("chat_upstream", resilience.CircuitBreakerConfig{
			FailureThreshold:    cfg.FailureThreshold,
			ResetTimeout:        cfg.ResetTimeout,
			HalfOpenMaxRequests: 1,
		}),
		metrics: m,
		logger:  logger.With("component", "chat_proxy"),
	}
}

// Chat handles POST /api/chat by forwarding the body to the upstream
// assistant and relaying its response verbatim.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBodyBytes))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "reading request body failed")
		return
	}

	var (
		upstreamStatus int
		upstreamBody   []byte
		contentType    string
	)
	err = h.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstreamURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", middleware.GetRequestID(r.Context()))

		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		upstreamBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		upstreamStatus = resp.StatusCode
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	h.observeBreakerState()

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			h.writeError(w, r, http.StatusServiceUnavailable, "assistant temporarily unavailable")
			return
		}
		h.logger.Error("chat upstream request failed", "error", err)
		h.writeError(w, r, http.StatusBadGateway, "assistant request failed")
		return
	}

	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(upstreamStatus)
	_, _ = w.Write(upstreamBody)
}

func (h *Handler) observeBreakerState() {
	if h.metrics == nil {
		return
	}
	h.metrics.CircuitBreakerState.WithLabelValues("chat_upstream").Set(float64(h.breaker.GetState()))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":      msg,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}
