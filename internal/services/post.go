package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
	"agentchain/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPageSize = 25
	maxPageSize     = 50
)

type PostService struct {
	store   store.Store
	ranking *RankingService
	now     func() time.Time
}

func NewPostService(st store.Store, ranking *RankingService) *PostService {
	return &PostService{store: st, ranking: ranking, now: time.Now}
}

type CreatePostInput struct {
	Subchannel string
	Title      string
	Content    string
	URL        string
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

func (s *PostService) Create(ctx context.Context, author *models.Agent, in CreatePostInput) (*models.Post, error) {
	ctx, span := tracer.Start(ctx, "PostService.Create", trace.WithAttributes(
		attribute.String("agent.id", author.ID),
		attribute.String("post.subchannel", in.Subchannel),
	))
	defer span.End()

	if in.Subchannel == "" {
		return nil, ValidationError("Please specify a subchannel.")
	}
	if in.Title == "" {
		return nil, ValidationError("Please enter a title.")
	}
	if msg := utils.ValidateContent(in.Title); msg != "" {
		return nil, ValidationError("Title: " + msg)
	}
	if in.Content != "" {
		if msg := utils.ValidateContent(in.Content); msg != "" {
			return nil, ValidationError("Content: " + msg)
		}
	}
	if in.Content == "" && in.URL == "" {
		return nil, ValidationError("Please enter content or a URL.")
	}
	if in.URL != "" && !isValidURL(in.URL) {
		return nil, ValidationError("Invalid URL.")
	}

	post := &models.Post{
		ID:         utils.GenerateID(),
		Title:      in.Title,
		Subchannel: in.Subchannel,
		AuthorID:   author.ID,
		AuthorName: author.Name,
	}
	if in.Content != "" {
		content := in.Content
		post.Content = &content
	}
	if in.URL != "" {
		link := in.URL
		post.URL = &link
	}

	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetChannel(ctx, in.Subchannel); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NotFoundError("'" + in.Subchannel + "' channel does not exist.").
					WithHint("Please create a channel first or post to an existing one.")
			}
			return err
		}

		if err := tx.LockAgent(ctx, author.ID); err != nil {
			return err
		}
		now := s.now()
		if err := checkRateLimit(ctx, tx, writePost, author.ID, now); err != nil {
			return err
		}

		post.CreatedAt = now
		if err := tx.CreatePost(ctx, post); err != nil {
			return err
		}
		return AddKarma(ctx, tx, author.ID, KarmaPostCreate, ActionPostCreate, post.ID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, AsError(err)
	}

	s.ranking.Invalidate(post.Subchannel)
	slog.InfoContext(ctx, "post created",
		slog.String("module", "post"),
		slog.String("post_id", post.ID),
		slog.String("author_id", author.ID),
	)
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError("Post not found.")
		}
		return nil, InternalError(err)
	}
	return post, nil
}

type ListPostsInput struct {
	Channel string
	Sort    string // hot, new, top
	Limit   int
	Cursor  string
}

type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Count      int           `json:"count"`
	NextCursor *string       `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

func (s *PostService) List(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var (
		posts []models.Post
		err   error
	)
	switch in.Sort {
	case "new", "top":
		posts, err = s.listKeyset(ctx, in, limit)
	default:
		posts, err = s.listHot(ctx, in, limit)
	}
	if err != nil {
		return nil, InternalError(err)
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	var next *string
	if hasMore {
		id := posts[len(posts)-1].ID
		next = &id
	}
	if posts == nil {
		posts = []models.Post{}
	}

	return &PostPage{Posts: posts, Count: len(posts), NextCursor: next, HasMore: hasMore}, nil
}

// listKeyset 多取一条用来判断是否还有下一页
func (s *PostService) listKeyset(ctx context.Context, in ListPostsInput, limit int) ([]models.Post, error) {
	q := store.PostQuery{
		Subchannel: in.Channel,
		Sort:       store.PostSortNew,
		Limit:      limit + 1,
	}
	if in.Sort == "top" {
		q.Sort = store.PostSortTop
	}
	if in.Cursor != "" {
		after, err := s.store.GetPost(ctx, in.Cursor)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		q.After = after
	}
	return s.store.ListPosts(ctx, q)
}

func (s *PostService) listHot(ctx context.Context, in ListPostsInput, limit int) ([]models.Post, error) {
	ranked, err := s.ranking.Ranked(ctx, in.Channel)
	if err != nil {
		return nil, err
	}

	start := 0
	if in.Cursor != "" {
		for i := range ranked {
			if ranked[i].ID == in.Cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit + 1
	if end > len(ranked) {
		end = len(ranked)
	}

	// 复制一份，避免调用方修改缓存内容
	out := make([]models.Post, end-start)
	copy(out, ranked[start:end])
	return out, nil
}
