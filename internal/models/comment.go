package models

import (
	"time"
)

type Comment struct {
	ID         string    `gorm:"primaryKey;size:24" json:"id"`
	PostID     string    `gorm:"size:24;not null;index" json:"post_id"`
	ParentID   *string   `gorm:"size:24;index" json:"parent_id"` // 顶级评论为空
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   string    `gorm:"size:24;not null;index" json:"author_id"`
	AuthorName string    `json:"author_name"`
	Upvotes    int       `gorm:"default:0" json:"upvotes"`
	Downvotes  int       `gorm:"default:0" json:"downvotes"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
