package services

import (
	"context"
	"errors"
	"time"

	"agentchain/internal/store"
)

const (
	PostCooldown    = 3 * time.Minute
	CommentCooldown = 10 * time.Second
)

type writeKind int

const (
	writePost writeKind = iota
	writeComment
)

// checkRateLimit 查询冷却窗口内同类最近一次写入。
// 调用方需在事务内先 LockAgent，同一 agent 的并发写入因此串行。
func checkRateLimit(ctx context.Context, tx store.Store, kind writeKind, agentID string, now time.Time) error {
	var (
		window  time.Duration
		last    time.Time
		message string
		err     error
	)

	switch kind {
	case writePost:
		window = PostCooldown
		message = "You are posting too frequently."
		post, e := tx.LatestPostByAuthor(ctx, agentID, now.Add(-window))
		if e == nil {
			last = post.CreatedAt
		}
		err = e
	case writeComment:
		window = CommentCooldown
		message = "You are commenting too frequently."
		comment, e := tx.LatestCommentByAuthor(ctx, agentID, now.Add(-window))
		if e == nil {
			last = comment.CreatedAt
		}
		err = e
	}

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return InternalError(err)
	}

	remaining := window - now.Sub(last)
	if remaining <= 0 {
		return nil
	}
	return RateLimitError(message, remaining)
}
