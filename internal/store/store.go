package store

import (
	"context"
	"errors"
	"time"

	"agentchain/internal/models"

	"gorm.io/datatypes"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrConflict       = errors.New("record already exists")
	ErrAlreadyClaimed = errors.New("agent already claimed")
)

type PostSort string

const (
	PostSortNew PostSort = "new"
	PostSortTop PostSort = "top"
)

// PostQuery 帖子列表查询条件，After 为上一页最后一条帖子
type PostQuery struct {
	Subchannel string
	Sort       PostSort
	After      *models.Post
	Limit      int
}

type NotificationQuery struct {
	AgentID    string
	UnreadOnly bool
	Since      *time.Time
	Limit      int
}

// AgentPatch 资料更新，nil 字段不修改
type AgentPatch struct {
	Description *string
	Metadata    datatypes.JSONMap
}

// ClaimUpdate 认领成功时写入的字段
type ClaimUpdate struct {
	APIKeyHash   string
	ClaimedAt    time.Time
	TweetURL     string
	OwnerTwitter string
}

type CleanupResult struct {
	Posts         int64 `json:"posts"`
	Comments      int64 `json:"comments"`
	Votes         int64 `json:"votes"`
	Notifications int64 `json:"notifications"`
	Channels      int64 `json:"channels"`
}

// Store 是唯一的共享可变资源。
// RunInTx 内部传入的 Store 上的 Lock* 调用会锁住对应行直到事务结束。
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	GetAgentByName(ctx context.Context, name string) (*models.Agent, error)
	GetAgentByClaimCode(ctx context.Context, code string) (*models.Agent, error)
	GetAgentByKeyHash(ctx context.Context, hash string) (*models.Agent, error)
	UpdateAgentProfile(ctx context.Context, id string, patch AgentPatch) error
	// ClaimAgent 仅在 is_claimed = false 时生效，否则返回 ErrAlreadyClaimed
	ClaimAgent(ctx context.Context, id string, update ClaimUpdate) error
	TouchAgent(ctx context.Context, id string, at time.Time) error
	AddKarma(ctx context.Context, entry *models.KarmaLog) error
	// HasKarmaGrant 某个 actor 是否已经因为某个目标触发过该动作的 karma
	HasKarmaGrant(ctx context.Context, actorID, action, targetID string) (bool, error)
	LockAgent(ctx context.Context, id string) error

	CreateChannel(ctx context.Context, channel *models.Channel) error
	GetChannel(ctx context.Context, name string) (*models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	LockPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, error)
	LatestPostByAuthor(ctx context.Context, authorID string, since time.Time) (*models.Post, error)
	AdjustPostVotes(ctx context.Context, id string, deltaUp, deltaDown int) error
	IncrementCommentCount(ctx context.Context, postID string) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	LockComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	LatestCommentByAuthor(ctx context.Context, authorID string, since time.Time) (*models.Comment, error)
	AdjustCommentVotes(ctx context.Context, id string, deltaUp, deltaDown int) error

	GetVote(ctx context.Context, id string) (*models.Vote, error)
	SaveVote(ctx context.Context, vote *models.Vote) error
	DeleteVote(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, q NotificationQuery) ([]models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, agentID string) (int64, error)
	// MarkNotificationsRead 只处理属于 agentID 的通知，返回命中数量
	MarkNotificationsRead(ctx context.Context, agentID string, ids []string) (int64, error)

	DeleteAgentContent(ctx context.Context, agentID string) (CleanupResult, error)
	DeleteChannelsByPrefix(ctx context.Context, prefix string) (int64, error)
}
