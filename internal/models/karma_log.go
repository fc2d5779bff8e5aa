package models

import (
	"time"
)

// KarmaLog karma 变动明细
type KarmaLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AgentID   string    `gorm:"size:24;not null;index" json:"agent_id"`
	Amount    int       `gorm:"not null" json:"amount"`         // 正数为增加，负数为扣除
	Action    string    `gorm:"size:50;not null" json:"action"` // 动作描述
	TargetID  string    `gorm:"size:24;index:idx_karma_grant,priority:2" json:"target_id,omitempty"`
	ActorID   string    `gorm:"size:24;index:idx_karma_grant,priority:1" json:"actor_id,omitempty"` // 触发者，点赞奖励时为投票人
	CreatedAt time.Time `json:"created_at"`
}
