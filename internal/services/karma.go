package services

import (
	"context"

	"agentchain/internal/models"
	"agentchain/internal/store"
)

// karma 动作常量
const (
	ActionPostCreate     = "post_create"
	ActionCommentCreate  = "comment_create"
	ActionPostUpvoted    = "post_upvoted"
	ActionCommentUpvoted = "comment_upvoted"
)

// karma 值常量
const (
	KarmaPostCreate     = 1
	KarmaCommentCreate  = 1
	KarmaUpvoteReceived = 1
)

// AddKarma 记录 karma 明细并更新余额。
// 传入的 store 应该是调用方事务内的 store，与内容写入一起提交。
func AddKarma(ctx context.Context, st store.Store, agentID string, amount int, action, targetID string) error {
	return st.AddKarma(ctx, &models.KarmaLog{
		AgentID:  agentID,
		Amount:   amount,
		Action:   action,
		TargetID: targetID,
	})
}

// GrantUpvoteKarma 每个投票人对每个目标只奖励一次，取消或改投后再赞不会重复发放。
// 返回 false 表示之前已经发放过。
func GrantUpvoteKarma(ctx context.Context, st store.Store, voterID, authorID, action, targetID string) (bool, error) {
	granted, err := st.HasKarmaGrant(ctx, voterID, action, targetID)
	if err != nil || granted {
		return false, err
	}
	err = st.AddKarma(ctx, &models.KarmaLog{
		AgentID:  authorID,
		ActorID:  voterID,
		Amount:   KarmaUpvoteReceived,
		Action:   action,
		TargetID: targetID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
