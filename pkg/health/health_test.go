package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func upCheck(ctx context.Context) ComponentHealth {
	return ComponentHealth{Status: StatusUp}
}

func downCheck(msg string) Check {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDown, Message: msg}
	}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{
			name:   "all up",
			checks: map[string]Check{"postgres": upCheck, "redis": upCheck},
			want:   StatusUp,
		},
		{
			name: "one degraded",
			checks: map[string]Check{
				"postgres": upCheck,
				"redis": func(ctx context.Context) ComponentHealth {
					return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
				},
			},
			want: StatusDegraded,
		},
		{
			name:   "one down",
			checks: map[string]Check{"postgres": downCheck("connection refused"), "redis": upCheck},
			want:   StatusDown,
		},
		{
			name:   "no checks",
			checks: map[string]Check{},
			want:   StatusUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("Run() overall status = %q, want %q", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("expected %d components, got %d", len(tt.checks), len(report.Components))
			}
		})
	}
}

func TestReadyHandlerStatusCodes(t *testing.T) {
	c := NewChecker()
	c.Register("store", upCheck)

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest("GET", "/health/ready", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200 when up, got %d", rec.Code)
	}

	c.Register("store", downCheck("unavailable"))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest("GET", "/health/ready", nil))
	if rec.Code != 503 {
		t.Fatalf("expected 503 when down, got %d", rec.Code)
	}

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Components["store"].Message != "unavailable" {
		t.Errorf("expected component message to survive serialization, got %+v", report.Components["store"])
	}
}
