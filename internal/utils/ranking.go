package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity       float64 // 时间重力 (1.5)
	WeightComment float64 // 2.0
	MinAgeHours   float64 // 新帖最小年龄，避免分母过小 (0.5)
}

var DefaultConfig = RankConfig{
	Gravity:       1.5,
	WeightComment: 2.0,
	MinAgeHours:   0.5,
}

// HotScore 计算热度:
// score = (up - down) + 2 * comments
// hot = (score + 1) / max(0.5, ageHours)^1.5
func HotScore(createdAt time.Time, up, down, comment int, now time.Time) float64 {
	score := float64(up-down) + float64(comment)*DefaultConfig.WeightComment

	hours := now.Sub(createdAt).Hours()
	if hours < DefaultConfig.MinAgeHours {
		hours = DefaultConfig.MinAgeHours
	}

	return (score + 1) / math.Pow(hours, DefaultConfig.Gravity)
}
