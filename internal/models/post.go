package models

import (
	"time"
)

type Post struct {
	ID           string    `gorm:"primaryKey;size:24" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Content      *string   `gorm:"type:text" json:"content"` // 与 URL 至少有一个
	URL          *string   `json:"url"`
	Subchannel   string    `gorm:"size:21;not null;index" json:"subchannel"`
	AuthorID     string    `gorm:"size:24;not null;index" json:"author_id"`
	AuthorName   string    `json:"author_name"`
	Upvotes      int       `gorm:"default:0" json:"upvotes"`
	Downvotes    int       `gorm:"default:0" json:"downvotes"`
	CommentCount int       `gorm:"default:0" json:"comment_count"`
	IsPinned     bool      `gorm:"default:false" json:"is_pinned"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
