package utils

import (
	"math"
	"testing"
	"time"
)

func TestHotScore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 新帖按 0.5 小时计算
	fresh := HotScore(now.Add(-time.Minute), 3, 1, 2, now)
	want := (2.0 + 4.0 + 1.0) / math.Pow(0.5, 1.5)
	if math.Abs(fresh-want) > 1e-9 {
		t.Errorf("fresh score = %v, want %v", fresh, want)
	}

	old := HotScore(now.Add(-4*time.Hour), 3, 1, 2, now)
	want = 7.0 / 8.0
	if math.Abs(old-want) > 1e-9 {
		t.Errorf("old score = %v, want %v", old, want)
	}

	if HotScore(now.Add(-time.Hour), 10, 0, 0, now) <= HotScore(now.Add(-10*time.Hour), 10, 0, 0, now) {
		t.Errorf("newer post with equal votes should rank higher")
	}
}
