package ratelimit

import "testing"

func TestAllowWithinRate(t *testing.T) {
	l := NewLimiter(10)
	for i := 0; i < 10; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow("user-1") {
		t.Error("request past the rate should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLimiter(2)
	l.Allow("user-1")
	l.Allow("user-1")
	if l.Allow("user-1") {
		t.Error("user-1 should be exhausted")
	}
	if !l.Allow("user-2") {
		t.Error("user-2 should have a fresh bucket")
	}
}

func TestZeroRateDisablesLimiting(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 1000; i++ {
		if !l.Allow("anyone") {
			t.Fatal("disabled limiter should always allow")
		}
	}
}
