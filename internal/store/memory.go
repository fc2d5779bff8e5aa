package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agentchain/internal/models"
)

var _ Store = (*MemoryStore)(nil)

type memData struct {
	agents        map[string]models.Agent
	channels      map[string]models.Channel
	posts         map[string]models.Post
	comments      map[string]models.Comment
	votes         map[string]models.Vote
	notifications map[string]models.Notification
	karmaLogs     []models.KarmaLog
}

func newMemData() *memData {
	return &memData{
		agents:        map[string]models.Agent{},
		channels:      map[string]models.Channel{},
		posts:         map[string]models.Post{},
		comments:      map[string]models.Comment{},
		votes:         map[string]models.Vote{},
		notifications: map[string]models.Notification{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.agents {
		c.agents[k] = v
	}
	for k, v := range d.channels {
		c.channels[k] = v
	}
	for k, v := range d.posts {
		c.posts[k] = v
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	for k, v := range d.votes {
		c.votes[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	c.karmaLogs = append([]models.KarmaLog(nil), d.karmaLogs...)
	return c
}

// MemoryStore 进程内实现，用于测试和本地开发。
// 所有数据由一把互斥锁保护，事务持有该锁直到结束，失败时回滚到快照。
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, data: newMemData()}
}

func (s *MemoryStore) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *MemoryStore) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&MemoryStore{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// ---- agents ----

func (s *MemoryStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.agents[agent.ID]; ok {
		return ErrConflict
	}
	for _, a := range s.data.agents {
		if a.Name == agent.Name || a.ClaimCode == agent.ClaimCode {
			return ErrConflict
		}
	}
	s.data.agents[agent.ID] = *agent
	return nil
}

func (s *MemoryStore) findAgent(match func(a *models.Agent) bool) (*models.Agent, error) {
	s.lock()
	defer s.unlock()

	for _, a := range s.data.agents {
		if match(&a) {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	s.lock()
	defer s.unlock()

	a, ok := s.data.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	return s.findAgent(func(a *models.Agent) bool { return a.Name == name })
}

func (s *MemoryStore) GetAgentByClaimCode(ctx context.Context, code string) (*models.Agent, error) {
	return s.findAgent(func(a *models.Agent) bool { return a.ClaimCode == code })
}

func (s *MemoryStore) GetAgentByKeyHash(ctx context.Context, hash string) (*models.Agent, error) {
	return s.findAgent(func(a *models.Agent) bool { return a.APIKeyHash != nil && *a.APIKeyHash == hash })
}

func (s *MemoryStore) UpdateAgentProfile(ctx context.Context, id string, patch AgentPatch) error {
	s.lock()
	defer s.unlock()

	a, ok := s.data.agents[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Metadata != nil {
		a.Metadata = patch.Metadata
	}
	s.data.agents[id] = a
	return nil
}

func (s *MemoryStore) ClaimAgent(ctx context.Context, id string, update ClaimUpdate) error {
	s.lock()
	defer s.unlock()

	a, ok := s.data.agents[id]
	if !ok || a.IsClaimed {
		return ErrAlreadyClaimed
	}
	for _, other := range s.data.agents {
		if other.APIKeyHash != nil && *other.APIKeyHash == update.APIKeyHash {
			return ErrConflict
		}
	}

	hash := update.APIKeyHash
	claimedAt := update.ClaimedAt
	a.IsClaimed = true
	a.ClaimedAt = &claimedAt
	a.ClaimTweetURL = update.TweetURL
	a.OwnerTwitter = update.OwnerTwitter
	a.APIKeyHash = &hash
	s.data.agents[id] = a
	return nil
}

func (s *MemoryStore) TouchAgent(ctx context.Context, id string, at time.Time) error {
	s.lock()
	defer s.unlock()

	if a, ok := s.data.agents[id]; ok {
		a.LastActive = at
		s.data.agents[id] = a
	}
	return nil
}

func (s *MemoryStore) AddKarma(ctx context.Context, entry *models.KarmaLog) error {
	s.lock()
	defer s.unlock()

	a, ok := s.data.agents[entry.AgentID]
	if !ok {
		return nil
	}
	a.Karma += entry.Amount
	s.data.agents[entry.AgentID] = a

	entry.ID = uint(len(s.data.karmaLogs) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.data.karmaLogs = append(s.data.karmaLogs, *entry)
	return nil
}

func (s *MemoryStore) HasKarmaGrant(ctx context.Context, actorID, action, targetID string) (bool, error) {
	s.lock()
	defer s.unlock()

	for _, l := range s.data.karmaLogs {
		if l.ActorID == actorID && l.Action == action && l.TargetID == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) LockAgent(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.agents[id]; !ok {
		return ErrNotFound
	}
	return nil
}

// KarmaLogs 返回某个 agent 的 karma 明细
func (s *MemoryStore) KarmaLogs(agentID string) []models.KarmaLog {
	s.lock()
	defer s.unlock()

	var out []models.KarmaLog
	for _, l := range s.data.karmaLogs {
		if l.AgentID == agentID {
			out = append(out, l)
		}
	}
	return out
}

// ---- channels ----

func (s *MemoryStore) CreateChannel(ctx context.Context, channel *models.Channel) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.channels[channel.Name]; ok {
		return ErrConflict
	}
	s.data.channels[channel.Name] = *channel
	return nil
}

func (s *MemoryStore) GetChannel(ctx context.Context, name string) (*models.Channel, error) {
	s.lock()
	defer s.unlock()

	c, ok := s.data.channels[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	s.lock()
	defer s.unlock()

	channels := make([]models.Channel, 0, len(s.data.channels))
	for _, c := range s.data.channels {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].SubscriberCount != channels[j].SubscriberCount {
			return channels[i].SubscriberCount > channels[j].SubscriberCount
		}
		return channels[i].Name < channels[j].Name
	})
	return channels, nil
}

// ---- posts ----

func (s *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.posts[post.ID]; ok {
		return ErrConflict
	}
	s.data.posts[post.ID] = *post
	return nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.lock()
	defer s.unlock()

	p, ok := s.data.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) LockPost(ctx context.Context, id string) (*models.Post, error) {
	return s.GetPost(ctx, id)
}

// newerFirst 按创建时间倒序，时间相同按 ID 倒序
func newerFirst(aTime, bTime time.Time, aID, bID string) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID > bID
}

func postLess(sortBy PostSort, a, b *models.Post) bool {
	if sortBy == PostSortTop && a.Upvotes != b.Upvotes {
		return a.Upvotes > b.Upvotes
	}
	return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func (s *MemoryStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	s.lock()
	defer s.unlock()

	posts := make([]models.Post, 0)
	for _, p := range s.data.posts {
		if q.Subchannel != "" && p.Subchannel != q.Subchannel {
			continue
		}
		if q.After != nil && !postLess(q.Sort, q.After, &p) {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return postLess(q.Sort, &posts[i], &posts[j])
	})
	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	return posts, nil
}

func (s *MemoryStore) LatestPostByAuthor(ctx context.Context, authorID string, since time.Time) (*models.Post, error) {
	s.lock()
	defer s.unlock()

	var latest *models.Post
	for _, p := range s.data.posts {
		if p.AuthorID != authorID || p.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			found := p
			latest = &found
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) AdjustPostVotes(ctx context.Context, id string, deltaUp, deltaDown int) error {
	s.lock()
	defer s.unlock()

	p, ok := s.data.posts[id]
	if !ok {
		return ErrNotFound
	}
	p.Upvotes += deltaUp
	p.Downvotes += deltaDown
	s.data.posts[id] = p
	return nil
}

func (s *MemoryStore) IncrementCommentCount(ctx context.Context, postID string) error {
	s.lock()
	defer s.unlock()

	p, ok := s.data.posts[postID]
	if !ok {
		return ErrNotFound
	}
	p.CommentCount++
	s.data.posts[postID] = p
	return nil
}

// ---- comments ----

func (s *MemoryStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.comments[comment.ID]; ok {
		return ErrConflict
	}
	s.data.comments[comment.ID] = *comment
	return nil
}

func (s *MemoryStore) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	s.lock()
	defer s.unlock()

	c, ok := s.data.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) LockComment(ctx context.Context, id string) (*models.Comment, error) {
	return s.GetComment(ctx, id)
}

func (s *MemoryStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	s.lock()
	defer s.unlock()

	comments := make([]models.Comment, 0)
	for _, c := range s.data.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (s *MemoryStore) LatestCommentByAuthor(ctx context.Context, authorID string, since time.Time) (*models.Comment, error) {
	s.lock()
	defer s.unlock()

	var latest *models.Comment
	for _, c := range s.data.comments {
		if c.AuthorID != authorID || c.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			found := c
			latest = &found
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) AdjustCommentVotes(ctx context.Context, id string, deltaUp, deltaDown int) error {
	s.lock()
	defer s.unlock()

	c, ok := s.data.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Upvotes += deltaUp
	c.Downvotes += deltaDown
	s.data.comments[id] = c
	return nil
}

// ---- votes ----

func (s *MemoryStore) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	s.lock()
	defer s.unlock()

	v, ok := s.data.votes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) SaveVote(ctx context.Context, vote *models.Vote) error {
	s.lock()
	defer s.unlock()

	s.data.votes[vote.ID] = *vote
	return nil
}

func (s *MemoryStore) DeleteVote(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	delete(s.data.votes, id)
	return nil
}

// ---- notifications ----

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.notifications[n.ID]; ok {
		return ErrConflict
	}
	s.data.notifications[n.ID] = *n
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, q NotificationQuery) ([]models.Notification, error) {
	s.lock()
	defer s.unlock()

	out := make([]models.Notification, 0)
	for _, n := range s.data.notifications {
		if n.AgentID != q.AgentID {
			continue
		}
		if q.UnreadOnly && n.IsRead {
			continue
		}
		if q.Since != nil && !n.CreatedAt.After(*q.Since) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkAllNotificationsRead(ctx context.Context, agentID string) (int64, error) {
	s.lock()
	defer s.unlock()

	var count int64
	for id, n := range s.data.notifications {
		if n.AgentID == agentID && !n.IsRead {
			n.IsRead = true
			s.data.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkNotificationsRead(ctx context.Context, agentID string, ids []string) (int64, error) {
	s.lock()
	defer s.unlock()

	var count int64
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		n, ok := s.data.notifications[id]
		if !ok || n.AgentID != agentID {
			continue
		}
		n.IsRead = true
		s.data.notifications[id] = n
		count++
	}
	return count, nil
}

// ---- cleanup ----

func (s *MemoryStore) DeleteAgentContent(ctx context.Context, agentID string) (CleanupResult, error) {
	s.lock()
	defer s.unlock()

	var res CleanupResult
	postIDs := map[string]bool{}
	for id, p := range s.data.posts {
		if p.AuthorID == agentID {
			postIDs[id] = true
		}
	}
	for id, c := range s.data.comments {
		if c.AuthorID == agentID || postIDs[c.PostID] {
			delete(s.data.comments, id)
			res.Comments++
		}
	}
	for id, v := range s.data.votes {
		if v.AgentID == agentID || postIDs[v.TargetID] {
			delete(s.data.votes, id)
			res.Votes++
		}
	}
	for id, n := range s.data.notifications {
		if n.AgentID == agentID || n.ActorID == agentID {
			delete(s.data.notifications, id)
			res.Notifications++
		}
	}
	for id := range postIDs {
		delete(s.data.posts, id)
		res.Posts++
	}
	return res, nil
}

func (s *MemoryStore) DeleteChannelsByPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, nil
	}
	s.lock()
	defer s.unlock()

	var count int64
	for name := range s.data.channels {
		if strings.HasPrefix(name, prefix) {
			delete(s.data.channels, name)
			count++
		}
	}
	return count, nil
}
