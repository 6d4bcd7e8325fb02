package xp

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/irsescapeplan/platform/internal/auth/ratelimit"
)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(newTestLedger(newMemoryStore()), limiter, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/xp/{userId}", h.UserXP)
	mux.HandleFunc("POST /api/users/xp/glossary", h.AwardGlossaryView)
	mux.HandleFunc("POST /api/users/xp/quiz", h.AwardQuiz)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("posting to %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, decoded
}

func TestGlossaryViewEndpointIdempotency(t *testing.T) {
	srv := newTestServer(t, nil)
	url := srv.URL + "/api/users/xp/glossary"
	body := `{"user_id":"user-1","term_id":"term-reps"}`

	resp, first := postJSON(t, url, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if first["status"] != "success" || first["xp_earned"].(float64) != 10 || first["first_view"] != true {
		t.Fatalf("first view response: %v", first)
	}

	resp, repeat := postJSON(t, url, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat must stay 200, got %d", resp.StatusCode)
	}
	if repeat["status"] != "already_viewed" || repeat["xp_earned"].(float64) != 0 {
		t.Fatalf("repeat view response: %v", repeat)
	}

	xpResp, err := http.Get(srv.URL + "/api/users/xp/user-1")
	if err != nil {
		t.Fatal(err)
	}
	defer xpResp.Body.Close()
	var total UserXP
	if err := json.NewDecoder(xpResp.Body).Decode(&total); err != nil {
		t.Fatal(err)
	}
	if total.TotalXP != 10 {
		t.Fatalf("expected total 10, got %d", total.TotalXP)
	}
}

func TestQuizEndpointStacks(t *testing.T) {
	srv := newTestServer(t, nil)
	url := srv.URL + "/api/users/xp/quiz"

	for i := 0; i < 2; i++ {
		resp, body := postJSON(t, url, `{"user_id":"user-1","points":50}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if body["xp_earned"].(float64) != 50 {
			t.Fatalf("quiz response: %v", body)
		}
	}

	xpResp, err := http.Get(srv.URL + "/api/users/xp/user-1")
	if err != nil {
		t.Fatal(err)
	}
	defer xpResp.Body.Close()
	var total UserXP
	if err := json.NewDecoder(xpResp.Body).Decode(&total); err != nil {
		t.Fatal(err)
	}
	if total.TotalXP != 100 {
		t.Fatalf("expected stacked total 100, got %d", total.TotalXP)
	}
}

func TestAwardEndpointErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown term", "/api/users/xp/glossary", `{"user_id":"u","term_id":"nope"}`, http.StatusNotFound},
		{"missing user", "/api/users/xp/glossary", `{"term_id":"term-reps"}`, http.StatusBadRequest},
		{"malformed json", "/api/users/xp/glossary", `{"user_id":`, http.StatusBadRequest},
		{"unknown field", "/api/users/xp/quiz", `{"user_id":"u","points":5,"bonus":1}`, http.StatusBadRequest},
		{"negative points", "/api/users/xp/quiz", `{"user_id":"u","points":-1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %v", tt.wantStatus, resp.StatusCode, body)
			}
			if _, ok := body["error"]; !ok {
				t.Error("error responses must carry an error message")
			}
		})
	}
}

func TestAwardRateLimit(t *testing.T) {
	srv := newTestServer(t, ratelimit.NewLimiter(3))
	url := srv.URL + "/api/users/xp/quiz"

	for i := 0; i < 3; i++ {
		resp, _ := postJSON(t, url, `{"user_id":"user-1","points":5}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i, resp.StatusCode)
		}
	}
	resp, _ := postJSON(t, url, `{"user_id":"user-1","points":5}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}

	// Other users are unaffected.
	resp, _ = postJSON(t, url, `{"user_id":"user-2","points":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a different user, got %d", resp.StatusCode)
	}
}
