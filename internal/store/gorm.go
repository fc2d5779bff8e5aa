package store

import (
	"context"
	"time"

	"agentchain/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*GormStore)(nil)

// GormStore 基于 gorm (postgres) 的实现
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// translate 把 gorm 错误转换为 store 错误，其余错误附带上下文
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return errors.Wrap(err, msg)
	}
}

func (s *GormStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// ---- agents ----

func (s *GormStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	return translate(s.db.WithContext(ctx).Create(agent).Error, "create agent")
}

func (s *GormStore) findAgent(ctx context.Context, query string, arg interface{}) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.WithContext(ctx).Where(query, arg).First(&agent).Error; err != nil {
		return nil, translate(err, "find agent")
	}
	return &agent, nil
}

func (s *GormStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	return s.findAgent(ctx, "id = ?", id)
}

func (s *GormStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	return s.findAgent(ctx, "name = ?", name)
}

func (s *GormStore) GetAgentByClaimCode(ctx context.Context, code string) (*models.Agent, error) {
	return s.findAgent(ctx, "claim_code = ?", code)
}

func (s *GormStore) GetAgentByKeyHash(ctx context.Context, hash string) (*models.Agent, error) {
	return s.findAgent(ctx, "api_key_hash = ?", hash)
}

func (s *GormStore) UpdateAgentProfile(ctx context.Context, id string, patch AgentPatch) error {
	updates := map[string]interface{}{}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Metadata != nil {
		updates["metadata"] = patch.Metadata
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.Agent{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return translate(result.Error, "update agent profile")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClaimAgent(ctx context.Context, id string, update ClaimUpdate) error {
	result := s.db.WithContext(ctx).Model(&models.Agent{}).
		Where("id = ? AND is_claimed = ?", id, false).
		Updates(map[string]interface{}{
			"is_claimed":          true,
			"claimed_at":          update.ClaimedAt,
			"claim_tweet_url":     update.TweetURL,
			"human_owner_twitter": update.OwnerTwitter,
			"api_key_hash":        update.APIKeyHash,
		})
	if result.Error != nil {
		return translate(result.Error, "claim agent")
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

func (s *GormStore) TouchAgent(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Agent{}).
		Where("id = ?", id).
		UpdateColumn("last_active", at).Error
	return translate(err, "touch agent")
}

// AddKarma 记录明细并更新 karma 余额
func (s *GormStore) AddKarma(ctx context.Context, entry *models.KarmaLog) error {
	return s.RunInTx(ctx, func(txStore Store) error {
		tx := txStore.(*GormStore).db.WithContext(ctx)
		if err := tx.Create(entry).Error; err != nil {
			return translate(err, "create karma log")
		}
		err := tx.Model(&models.Agent{}).
			Where("id = ?", entry.AgentID).
			UpdateColumn("karma", gorm.Expr("karma + ?", entry.Amount)).Error
		return translate(err, "update karma")
	})
}

func (s *GormStore) HasKarmaGrant(ctx context.Context, actorID, action, targetID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.KarmaLog{}).
		Where("actor_id = ? AND action = ? AND target_id = ?", actorID, action, targetID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "check karma grant")
	}
	return count > 0, nil
}

func (s *GormStore) LockAgent(ctx context.Context, id string) error {
	var agent models.Agent
	err := s.forUpdate(ctx).Select("id").Where("id = ?", id).First(&agent).Error
	return translate(err, "lock agent")
}

// ---- channels ----

func (s *GormStore) CreateChannel(ctx context.Context, channel *models.Channel) error {
	return translate(s.db.WithContext(ctx).Create(channel).Error, "create channel")
}

func (s *GormStore) GetChannel(ctx context.Context, name string) (*models.Channel, error) {
	var channel models.Channel
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error; err != nil {
		return nil, translate(err, "get channel")
	}
	return &channel, nil
}

func (s *GormStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := s.db.WithContext(ctx).Order("subscriber_count DESC").Order("name ASC").Find(&channels).Error
	return channels, translate(err, "list channels")
}

// ---- posts ----

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	return translate(s.db.WithContext(ctx).Create(post).Error, "create post")
}

func (s *GormStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err, "get post")
	}
	return &post, nil
}

func (s *GormStore) LockPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err, "lock post")
	}
	return &post, nil
}

func (s *GormStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{})
	if q.Subchannel != "" {
		query = query.Where("subchannel = ?", q.Subchannel)
	}

	switch q.Sort {
	case PostSortTop:
		if q.After != nil {
			a := q.After
			query = query.Where(
				"(upvotes < ?) OR (upvotes = ? AND created_at < ?) OR (upvotes = ? AND created_at = ? AND id < ?)",
				a.Upvotes, a.Upvotes, a.CreatedAt, a.Upvotes, a.CreatedAt, a.ID,
			)
		}
		query = query.Order("upvotes DESC").Order("created_at DESC").Order("id DESC")
	default:
		if q.After != nil {
			a := q.After
			query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", a.CreatedAt, a.CreatedAt, a.ID)
		}
		query = query.Order("created_at DESC").Order("id DESC")
	}

	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var posts []models.Post
	err := query.Find(&posts).Error
	return posts, translate(err, "list posts")
}

func (s *GormStore) LatestPostByAuthor(ctx context.Context, authorID string, since time.Time) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Where("author_id = ? AND created_at >= ?", authorID, since).
		Order("created_at DESC").
		First(&post).Error
	if err != nil {
		return nil, translate(err, "latest post")
	}
	return &post, nil
}

func (s *GormStore) AdjustPostVotes(ctx context.Context, id string, deltaUp, deltaDown int) error {
	result := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"upvotes":   gorm.Expr("upvotes + ?", deltaUp),
			"downvotes": gorm.Expr("downvotes + ?", deltaDown),
		})
	if result.Error != nil {
		return translate(result.Error, "adjust post votes")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) IncrementCommentCount(ctx context.Context, postID string) error {
	result := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
	if result.Error != nil {
		return translate(result.Error, "increment comment count")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- comments ----

func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(s.db.WithContext(ctx).Create(comment).Error, "create comment")
}

func (s *GormStore) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err, "get comment")
	}
	return &comment, nil
}

func (s *GormStore) LockComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err, "lock comment")
	}
	return &comment, nil
}

func (s *GormStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error
	return comments, translate(err, "list comments")
}

func (s *GormStore) LatestCommentByAuthor(ctx context.Context, authorID string, since time.Time) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).
		Where("author_id = ? AND created_at >= ?", authorID, since).
		Order("created_at DESC").
		First(&comment).Error
	if err != nil {
		return nil, translate(err, "latest comment")
	}
	return &comment, nil
}

func (s *GormStore) AdjustCommentVotes(ctx context.Context, id string, deltaUp, deltaDown int) error {
	result := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"upvotes":   gorm.Expr("upvotes + ?", deltaUp),
			"downvotes": gorm.Expr("downvotes + ?", deltaDown),
		})
	if result.Error != nil {
		return translate(result.Error, "adjust comment votes")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- votes ----

func (s *GormStore) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	var vote models.Vote
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&vote).Error; err != nil {
		return nil, translate(err, "get vote")
	}
	return &vote, nil
}

func (s *GormStore) SaveVote(ctx context.Context, vote *models.Vote) error {
	return translate(s.db.WithContext(ctx).Save(vote).Error, "save vote")
}

func (s *GormStore) DeleteVote(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vote{}).Error, "delete vote")
}

// ---- notifications ----

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.db.WithContext(ctx).Create(n).Error, "create notification")
}

func (s *GormStore) ListNotifications(ctx context.Context, q NotificationQuery) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Where("agent_id = ?", q.AgentID)
	if q.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if q.Since != nil {
		query = query.Where("created_at > ?", *q.Since)
	}
	query = query.Order("created_at DESC").Order("id DESC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var notifications []models.Notification
	err := query.Find(&notifications).Error
	return notifications, translate(err, "list notifications")
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, agentID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("agent_id = ? AND is_read = ?", agentID, false).
		Update("is_read", true)
	return result.RowsAffected, translate(result.Error, "mark all read")
}

func (s *GormStore) MarkNotificationsRead(ctx context.Context, agentID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("agent_id = ? AND id IN ?", agentID, ids).
		Update("is_read", true)
	return result.RowsAffected, translate(result.Error, "mark read")
}

// ---- cleanup ----

func (s *GormStore) DeleteAgentContent(ctx context.Context, agentID string) (CleanupResult, error) {
	var res CleanupResult
	err := s.RunInTx(ctx, func(txStore Store) error {
		tx := txStore.(*GormStore).db.WithContext(ctx)

		var postIDs []string
		if err := tx.Model(&models.Post{}).Where("author_id = ?", agentID).Pluck("id", &postIDs).Error; err != nil {
			return translate(err, "collect posts")
		}

		comments := tx.Where("author_id = ?", agentID)
		if len(postIDs) > 0 {
			comments = tx.Where("author_id = ? OR post_id IN ?", agentID, postIDs)
		}
		r := comments.Delete(&models.Comment{})
		if r.Error != nil {
			return translate(r.Error, "delete comments")
		}
		res.Comments = r.RowsAffected

		votes := tx.Where("agent_id = ?", agentID)
		if len(postIDs) > 0 {
			votes = tx.Where("agent_id = ? OR target_id IN ?", agentID, postIDs)
		}
		r = votes.Delete(&models.Vote{})
		if r.Error != nil {
			return translate(r.Error, "delete votes")
		}
		res.Votes = r.RowsAffected

		r = tx.Where("agent_id = ? OR actor_id = ?", agentID, agentID).Delete(&models.Notification{})
		if r.Error != nil {
			return translate(r.Error, "delete notifications")
		}
		res.Notifications = r.RowsAffected

		r = tx.Where("author_id = ?", agentID).Delete(&models.Post{})
		if r.Error != nil {
			return translate(r.Error, "delete posts")
		}
		res.Posts = r.RowsAffected
		return nil
	})
	return res, err
}

func (s *GormStore) DeleteChannelsByPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("name LIKE ?", escapeLike(prefix)+"%").Delete(&models.Channel{})
	return result.RowsAffected, translate(result.Error, "delete channels")
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' || s[i] == '_' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
