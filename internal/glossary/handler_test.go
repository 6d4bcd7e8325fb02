package glossary

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	idx := NewSearchIndex()
	idx.Reload(fixtureTerms())
	return NewHandler(idx, nil, nil, nil, testLogger())
}

func TestListHandler(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/glossary", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var terms []Term
	if err := json.NewDecoder(rec.Body).Decode(&terms); err != nil {
		t.Fatalf("body must be a bare array of terms: %v", err)
	}
	if len(terms) != 5 {
		t.Fatalf("expected 5 terms, got %d", len(terms))
	}
}

func TestListHandlerEncodesEmptySlices(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/glossary", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, `"related_terms":null`) || strings.Contains(body, `"tags":null`) {
		t.Fatalf("unset list fields must encode as [], got: %s", body)
	}
}

func TestSearchHandler(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{"match", "/api/glossary/search?q=rental", http.StatusOK, 2},
		{"case insensitive", "/api/glossary/search?q=REPS", http.StatusOK, 1},
		{"zero results is not an error", "/api/glossary/search?q=zzz", http.StatusOK, 0},
		{"blank query returns all", "/api/glossary/search?q=", http.StatusOK, 5},
		{"missing parameter", "/api/glossary/search", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.Search(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := rec.Body.String()
			var results []Term
			if err := json.Unmarshal([]byte(body), &results); err != nil {
				t.Fatalf("body must be a bare array of terms: %v", err)
			}
			if len(results) != tt.wantCount {
				t.Errorf("expected %d results, got %d", tt.wantCount, len(results))
			}
			if strings.HasPrefix(strings.TrimSpace(body), "null") {
				t.Error("results must serialize as an array, not null")
			}
		})
	}
}

func TestSearchHandlerResponseShape(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/glossary/search?q=opportunity", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	var results []Term
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("body must be a bare array of terms: %v", err)
	}
	if len(results) != 1 || results[0].ID != "t2" {
		t.Fatalf("expected QOF term, got %+v", results)
	}
}
