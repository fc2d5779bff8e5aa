package models

import (
	"time"
)

type VoteTargetType string

const (
	VoteTargetPost    VoteTargetType = "post"
	VoteTargetComment VoteTargetType = "comment"
)

// Vote 一个 agent 对一个目标的当前投票。
// ID 固定为 {agent_id}_{target_id}，同一对最多一条记录。
type Vote struct {
	ID         string         `gorm:"primaryKey;size:64" json:"id"`
	AgentID    string         `gorm:"size:24;not null;index" json:"agent_id"`
	TargetID   string         `gorm:"size:24;not null;index" json:"target_id"`
	TargetType VoteTargetType `gorm:"type:varchar(10);not null" json:"target_type"`
	Value      int            `gorm:"column:vote;not null" json:"vote"` // 1 or -1
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// VoteID 由 agent 和目标拼出投票主键
func VoteID(agentID, targetID string) string {
	return agentID + "_" + targetID
}
