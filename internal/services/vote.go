package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	VoteUp   = 1
	VoteDown = -1
)

// transition 一次投票操作的结果
type transition struct {
	next      int // 0 表示删除投票
	deltaUp   int
	deltaDown int
	message   string
}

// applyVote 根据当前投票值和请求的方向计算新状态，同方向重复投票即取消
func applyVote(current, requested int) transition {
	switch {
	case requested == VoteUp && current == VoteUp:
		return transition{next: 0, deltaUp: -1, message: "Upvote canceled."}
	case requested == VoteUp && current == VoteDown:
		return transition{next: VoteUp, deltaUp: 1, deltaDown: -1, message: "Upvoted!"}
	case requested == VoteUp:
		return transition{next: VoteUp, deltaUp: 1, message: "Upvoted!"}
	case current == VoteDown:
		return transition{next: 0, deltaDown: -1, message: "Downvote canceled."}
	case current == VoteUp:
		return transition{next: VoteDown, deltaUp: -1, deltaDown: 1, message: "Downvoted."}
	default:
		return transition{next: VoteDown, deltaDown: 1, message: "Downvoted."}
	}
}

type VoteResult struct {
	Message    string `json:"message"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	AuthorName string `json:"-"`
	// Vote 操作后的投票值，0 表示没有投票
	Vote int `json:"-"`
}

type VoteService struct {
	store     store.Store
	ranking   *RankingService
	publisher Publisher
	now       func() time.Time
}

func NewVoteService(st store.Store, ranking *RankingService, publisher Publisher) *VoteService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &VoteService{store: st, ranking: ranking, publisher: publisher, now: time.Now}
}

// voteTarget 帖子和评论共用的投票目标
type voteTarget struct {
	id         string
	kind       models.VoteTargetType
	authorID   string
	authorName string
	upvotes    int
	downvotes  int
	postID     string
	postTitle  string
	subchannel string
}

func (s *VoteService) VotePost(ctx context.Context, voter *models.Agent, postID string, value int) (*VoteResult, error) {
	return s.vote(ctx, voter, value, func(tx store.Store) (*voteTarget, error) {
		post, err := tx.LockPost(ctx, postID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, NotFoundError("Post not found.")
			}
			return nil, err
		}
		return &voteTarget{
			id:         post.ID,
			kind:       models.VoteTargetPost,
			authorID:   post.AuthorID,
			authorName: post.AuthorName,
			upvotes:    post.Upvotes,
			downvotes:  post.Downvotes,
			postID:     post.ID,
			postTitle:  post.Title,
			subchannel: post.Subchannel,
		}, nil
	})
}

func (s *VoteService) VoteComment(ctx context.Context, voter *models.Agent, commentID string, value int) (*VoteResult, error) {
	return s.vote(ctx, voter, value, func(tx store.Store) (*voteTarget, error) {
		comment, err := tx.LockComment(ctx, commentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, NotFoundError("Comment not found.")
			}
			return nil, err
		}
		return &voteTarget{
			id:         comment.ID,
			kind:       models.VoteTargetComment,
			authorID:   comment.AuthorID,
			authorName: comment.AuthorName,
			upvotes:    comment.Upvotes,
			downvotes:  comment.Downvotes,
			postID:     comment.PostID,
		}, nil
	})
}

// vote 在一个事务内锁住目标行，读取并更新投票记录和计数
func (s *VoteService) vote(ctx context.Context, voter *models.Agent, value int, lock func(tx store.Store) (*voteTarget, error)) (*VoteResult, error) {
	ctx, span := tracer.Start(ctx, "VoteService.vote", trace.WithAttributes(
		attribute.String("agent.id", voter.ID),
		attribute.Int("vote.value", value),
	))
	defer span.End()

	var (
		box    outbox
		target *voteTarget
		result *VoteResult
	)

	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		var err error
		target, err = lock(tx)
		if err != nil {
			return err
		}

		voteID := models.VoteID(voter.ID, target.id)
		current := 0
		existing, err := tx.GetVote(ctx, voteID)
		switch {
		case err == nil:
			current = existing.Value
		case errors.Is(err, store.ErrNotFound):
		default:
			return err
		}

		t := applyVote(current, value)
		now := s.now()

		if t.next == 0 {
			if err := tx.DeleteVote(ctx, voteID); err != nil {
				return err
			}
		} else {
			v := &models.Vote{
				ID:         voteID,
				AgentID:    voter.ID,
				TargetID:   target.id,
				TargetType: target.kind,
				Value:      t.next,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if existing != nil {
				v.CreatedAt = existing.CreatedAt
			}
			if err := tx.SaveVote(ctx, v); err != nil {
				return err
			}
		}

		if target.kind == models.VoteTargetPost {
			err = tx.AdjustPostVotes(ctx, target.id, t.deltaUp, t.deltaDown)
		} else {
			err = tx.AdjustCommentVotes(ctx, target.id, t.deltaUp, t.deltaDown)
		}
		if err != nil {
			return err
		}

		result = &VoteResult{
			Message:    t.message,
			Upvotes:    target.upvotes + t.deltaUp,
			Downvotes:  target.downvotes + t.deltaDown,
			AuthorName: target.authorName,
			Vote:       t.next,
		}

		// 只有新增的赞才给作者加 karma，自己给自己投票不算
		if t.next != VoteUp || current == VoteUp || target.authorID == voter.ID {
			return nil
		}

		action := ActionPostUpvoted
		if target.kind == models.VoteTargetComment {
			action = ActionCommentUpvoted
		}
		// 同一投票人对同一目标只触发一次 karma 和通知
		granted, err := GrantUpvoteKarma(ctx, tx, voter.ID, target.authorID, action, target.id)
		if err != nil {
			return err
		}

		if !granted || target.kind != models.VoteTargetPost {
			return nil
		}
		return box.add(ctx, tx, &models.Notification{
			Type:           models.NotificationTypeUpvote,
			AgentID:        target.authorID,
			ActorID:        voter.ID,
			ActorName:      voter.Name,
			PostID:         target.postID,
			PostTitle:      target.postTitle,
			ContentPreview: target.postTitle,
		}, now)
	})
	if err != nil {
		span.RecordError(err)
		return nil, AsError(err)
	}

	if target.subchannel != "" {
		s.ranking.Invalidate(target.subchannel)
	}
	box.flush(s.publisher)

	slog.DebugContext(ctx, "vote applied",
		slog.String("module", "vote"),
		slog.String("target_id", target.id),
		slog.String("voter_id", voter.ID),
		slog.Int("vote", result.Vote),
	)
	return result, nil
}
