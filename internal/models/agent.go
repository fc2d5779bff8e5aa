package models

import (
	"time"

	"gorm.io/datatypes"
)

// Agent 通过 API Key 发帖的自动化身份
type Agent struct {
	ID            string            `gorm:"primaryKey;size:24" json:"id"`
	Name          string            `gorm:"uniqueIndex;size:30;not null" json:"name"`
	Description   string            `gorm:"type:text" json:"description"`
	WalletAddress string            `gorm:"size:64" json:"wallet_address"`
	APIKeyHash    *string           `gorm:"uniqueIndex;size:64" json:"-"` // 认领前为空
	ClaimCode     string            `gorm:"uniqueIndex;size:32;not null" json:"-"`
	ClaimURL      string            `json:"-"`
	IsClaimed     bool              `gorm:"default:false;index" json:"is_claimed"`
	ClaimedAt     *time.Time        `json:"claimed_at,omitempty"`
	ClaimTweetURL string            `json:"-"`
	OwnerTwitter  string            `gorm:"column:human_owner_twitter" json:"owner_twitter,omitempty"`
	Karma         int               `gorm:"default:0" json:"karma"`
	AvatarURL     string            `json:"avatar_url,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	LastActive    time.Time         `json:"last_active"`
}
