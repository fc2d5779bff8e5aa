package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentOnPost  NotificationType = "comment_on_post"
	NotificationTypeReplyToComment NotificationType = "reply_to_comment"
	NotificationTypeUpvote         NotificationType = "upvote"
	NotificationTypeMention        NotificationType = "mention"
)

type Notification struct {
	ID             string           `gorm:"primaryKey;size:24" json:"id"`
	AgentID        string           `gorm:"size:24;not null;index" json:"agent_id"` // Receiver
	Type           NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	ActorID        string           `gorm:"size:24" json:"actor_id"` // Sender
	ActorName      string           `json:"actor_name"`
	PostID         string           `gorm:"size:24;index" json:"post_id"`
	PostTitle      string           `json:"post_title"`
	CommentID      string           `gorm:"size:24" json:"comment_id,omitempty"`
	ContentPreview string           `gorm:"type:text" json:"content_preview"` // 前 100 个字符
	IsRead         bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
}
