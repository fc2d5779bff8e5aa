package services

import (
	"context"
	"sort"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
	"agentchain/internal/utils"
)

const (
	hotWindowSize = 200              // 参与热度排序的最新帖子数
	hotCacheTTL   = 30 * time.Second // 候选集缓存时间
	hotCacheSize  = 128
	hotAllKey     = "hot:*"
)

// RankingService 热门帖子排序：先取最近一批帖子，再在内存中按热度排序
type RankingService struct {
	store store.Store
	cache *utils.Cache[[]models.Post]
	now   func() time.Time
}

func NewRankingService(st store.Store) (*RankingService, error) {
	c, err := utils.NewCache[[]models.Post](hotCacheSize, hotCacheTTL)
	if err != nil {
		return nil, err
	}
	s := &RankingService{store: st, cache: c, now: time.Now}
	c.WithClock(func() time.Time { return s.now() })
	return s, nil
}

func hotKey(channel string) string {
	if channel == "" {
		return hotAllKey
	}
	return "hot:" + channel
}

// Ranked 返回某个频道（空表示全部）按热度降序排列的帖子
func (s *RankingService) Ranked(ctx context.Context, channel string) ([]models.Post, error) {
	key := hotKey(channel)
	if cached, ok := s.cache.Get(key); ok {
		return append([]models.Post(nil), cached...), nil
	}

	posts, err := s.store.ListPosts(ctx, store.PostQuery{
		Subchannel: channel,
		Sort:       store.PostSortNew,
		Limit:      hotWindowSize,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	scores := make(map[string]float64, len(posts))
	for _, p := range posts {
		scores[p.ID] = utils.HotScore(p.CreatedAt, p.Upvotes, p.Downvotes, p.CommentCount, now)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return scores[posts[i].ID] > scores[posts[j].ID]
	})

	s.cache.Set(key, posts)
	return append([]models.Post(nil), posts...), nil
}

// Invalidate 帖子、投票或评论变化后清除缓存
func (s *RankingService) Invalidate(channel string) {
	s.cache.Delete(hotKey(channel), hotAllKey)
}
