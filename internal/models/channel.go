package models

import (
	"time"

	"gorm.io/datatypes"
)

// Channel 帖子所在的频道，名称即主键，创建后不可修改
type Channel struct {
	Name            string                      `gorm:"primaryKey;size:21" json:"name"`
	DisplayName     string                      `gorm:"not null" json:"display_name"`
	Description     string                      `gorm:"type:text" json:"description"`
	SubscriberCount int                         `gorm:"default:0;index" json:"subscriber_count"`
	OwnerID         string                      `gorm:"size:24" json:"owner_id"`
	OwnerName       string                      `json:"owner_name"`
	Moderators      datatypes.JSONSlice[string] `json:"moderators"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}
