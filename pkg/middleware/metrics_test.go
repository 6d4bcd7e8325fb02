package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"user lookup collapses", "/api/users/xp/user-123", "/api/users/xp/{userId}"},
		{"nested user path collapses", "/api/users/xp/user-123/extra", "/api/users/xp/{userId}"},
		{"glossary award stays literal", "/api/users/xp/glossary", "/api/users/xp/glossary"},
		{"quiz award stays literal", "/api/users/xp/quiz", "/api/users/xp/quiz"},
		{"bare prefix untouched", "/api/users/xp/", "/api/users/xp/"},
		{"unrelated path untouched", "/api/glossary/search", "/api/glossary/search"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
