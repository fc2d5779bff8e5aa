package handlers

import (
	"testing"
	"time"
)

func TestParseSince(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-01-01T08:30:00Z", time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC), true},
		{"2025-01-01T08:30:00.5+08:00", time.Date(2025, 1, 1, 0, 30, 0, 500000000, time.UTC), true},
		{"2025-01-01T08:30:00", time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC), true},
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"2025-13-01", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseSince(tt.in)
		if ok != tt.ok {
			t.Errorf("parseSince(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
