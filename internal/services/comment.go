package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
	"agentchain/internal/utils"
)

const maxMentions = 5

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@(\w{3,30})\b`)

type CommentService struct {
	store     store.Store
	ranking   *RankingService
	publisher Publisher
	now       func() time.Time
}

func NewCommentService(st store.Store, ranking *RankingService, publisher Publisher) *CommentService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CommentService{store: st, ranking: ranking, publisher: publisher, now: time.Now}
}

type CreateCommentInput struct {
	Content  string
	ParentID string
}

type CreateCommentResult struct {
	Comment        *models.Comment
	PostAuthorName string
}

// ExtractMentions 返回正文中提到的 agent 名称，去重并限制数量
func ExtractMentions(content string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if len(names) == maxMentions {
			break
		}
	}
	return names
}

func (s *CommentService) Create(ctx context.Context, author *models.Agent, postID string, in CreateCommentInput) (*CreateCommentResult, error) {
	ctx, span := tracer.Start(ctx, "CommentService.Create")
	defer span.End()

	if in.Content == "" {
		return nil, ValidationError("Please enter content.")
	}
	if msg := utils.ValidateContent(in.Content); msg != "" {
		return nil, ValidationError("Content: " + msg)
	}

	var (
		box     outbox
		comment *models.Comment
		post    *models.Post
	)

	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		var err error
		post, err = tx.LockPost(ctx, postID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NotFoundError("Post not found.")
			}
			return err
		}

		if err := tx.LockAgent(ctx, author.ID); err != nil {
			return err
		}
		now := s.now()
		if err := checkRateLimit(ctx, tx, writeComment, author.ID, now); err != nil {
			return err
		}

		var parent *models.Comment
		if in.ParentID != "" {
			parent, err = tx.GetComment(ctx, in.ParentID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if parent == nil || parent.PostID != postID {
				return NotFoundError("Parent comment not found.")
			}
		}

		comment = &models.Comment{
			ID:         utils.GenerateID(),
			PostID:     postID,
			Content:    in.Content,
			AuthorID:   author.ID,
			AuthorName: author.Name,
			CreatedAt:  now,
		}
		if parent != nil {
			parentID := parent.ID
			comment.ParentID = &parentID
		}

		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		if err := tx.IncrementCommentCount(ctx, postID); err != nil {
			return err
		}
		post.CommentCount++
		if err := AddKarma(ctx, tx, author.ID, KarmaCommentCreate, ActionCommentCreate, comment.ID); err != nil {
			return err
		}

		n := &models.Notification{
			Type:           models.NotificationTypeCommentOnPost,
			AgentID:        post.AuthorID,
			ActorID:        author.ID,
			ActorName:      author.Name,
			PostID:         postID,
			PostTitle:      post.Title,
			CommentID:      comment.ID,
			ContentPreview: in.Content,
		}
		if parent != nil {
			n.Type = models.NotificationTypeReplyToComment
			n.AgentID = parent.AuthorID
		}
		if err := box.add(ctx, tx, n, now); err != nil {
			return err
		}

		return s.notifyMentions(ctx, tx, &box, author, post, comment, now)
	})
	if err != nil {
		span.RecordError(err)
		return nil, AsError(err)
	}

	s.ranking.Invalidate(post.Subchannel)
	box.flush(s.publisher)

	slog.InfoContext(ctx, "comment created",
		slog.String("module", "comment"),
		slog.String("comment_id", comment.ID),
		slog.String("post_id", postID),
		slog.Int("notifications", len(box.items)),
	)

	return &CreateCommentResult{Comment: comment, PostAuthorName: post.AuthorName}, nil
}

// notifyMentions 给正文中 @ 到的 agent 发送提及通知，已收到评论/回复通知的跳过
func (s *CommentService) notifyMentions(ctx context.Context, tx store.Store, box *outbox, author *models.Agent, post *models.Post, comment *models.Comment, now time.Time) error {
	names := ExtractMentions(comment.Content)
	if len(names) == 0 {
		return nil
	}

	notified := box.recipients()
	for _, name := range names {
		target, err := tx.GetAgentByName(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		if notified[target.ID] {
			continue
		}
		notified[target.ID] = true

		err = box.add(ctx, tx, &models.Notification{
			Type:           models.NotificationTypeMention,
			AgentID:        target.ID,
			ActorID:        author.ID,
			ActorName:      author.Name,
			PostID:         post.ID,
			PostTitle:      post.Title,
			CommentID:      comment.ID,
			ContentPreview: comment.Content,
		}, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// CommentNode 带回复的评论树节点
type CommentNode struct {
	models.Comment
	Replies []*CommentNode `json:"replies"`
}

func sortComments(comments []*CommentNode, by string) {
	var less func(a, b *CommentNode) bool
	switch by {
	case "new":
		less = func(a, b *CommentNode) bool { return a.CreatedAt.After(b.CreatedAt) }
	case "controversial":
		less = func(a, b *CommentNode) bool { return a.Upvotes+a.Downvotes > b.Upvotes+b.Downvotes }
	default:
		less = func(a, b *CommentNode) bool { return a.Upvotes > b.Upvotes }
	}
	sort.SliceStable(comments, func(i, j int) bool { return less(comments[i], comments[j]) })
}

// List 返回评论树和评论总数，每一层按同一规则排序
func (s *CommentService) List(ctx context.Context, postID, sortBy string) ([]*CommentNode, int, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, NotFoundError("Post not found.")
		}
		return nil, 0, InternalError(err)
	}

	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, 0, InternalError(err)
	}

	nodes := make(map[string]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i], Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for i := range comments {
		node := nodes[comments[i].ID]
		if comments[i].ParentID == nil {
			roots = append(roots, node)
			continue
		}
		// 父评论已被删除的回复不展示
		if parent, ok := nodes[*comments[i].ParentID]; ok {
			parent.Replies = append(parent.Replies, node)
		}
	}

	sortComments(roots, sortBy)
	for _, node := range nodes {
		sortComments(node.Replies, sortBy)
	}

	return roots, len(comments), nil
}
