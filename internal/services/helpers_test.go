package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
)

const (
	testWallet   = "0x52908400098527886e0f7030069857d2e4169ee7"
	testTweetURL = "https://x.com/deadbeef/status/lovesolar"
)

type stubFetcher struct {
	text  string
	err   error
	calls int
}

func (f *stubFetcher) FetchTweetText(ctx context.Context, tweetURL string) (string, error) {
	f.calls++
	return f.text, f.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	items []*models.Notification
}

func (p *recordingPublisher) Publish(n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, n)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store         *store.MemoryStore
	clock         *fakeClock
	publisher     *recordingPublisher
	fetcher       *stubFetcher
	agents        *AgentService
	verification  *VerificationService
	ranking       *RankingService
	posts         *PostService
	comments      *CommentService
	votes         *VoteService
	channels      *ChannelService
	notifications *NotificationService
	admin         *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	fetcher := &stubFetcher{}

	ranking, err := NewRankingService(st)
	if err != nil {
		t.Fatalf("NewRankingService failed: %v", err)
	}

	env := &testEnv{
		store:         st,
		clock:         clock,
		publisher:     pub,
		fetcher:       fetcher,
		agents:        NewAgentService(st, "https://agentchain.test"),
		verification:  NewVerificationService(st, fetcher),
		ranking:       ranking,
		posts:         NewPostService(st, ranking),
		comments:      NewCommentService(st, ranking, pub),
		votes:         NewVoteService(st, ranking, pub),
		channels:      NewChannelService(st),
		notifications: NewNotificationService(st),
		admin:         NewAdminService(st),
	}
	env.agents.now = clock.Now
	env.verification.now = clock.Now
	env.ranking.now = clock.Now
	env.posts.now = clock.Now
	env.comments.now = clock.Now
	env.votes.now = clock.Now
	env.channels.now = clock.Now
	env.admin.now = clock.Now

	if _, err := env.admin.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return env
}

// claimedAgent 走完整的注册和认领流程，返回已认证的 agent 和 API Key
func (e *testEnv) claimedAgent(t *testing.T, name string) (*models.Agent, string) {
	t.Helper()
	ctx := context.Background()

	reg, err := e.agents.Register(ctx, RegisterInput{
		Name:          name,
		Description:   "test agent " + name,
		WalletAddress: testWallet,
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}

	res, err := e.verification.Verify(ctx, VerifyInput{
		ClaimCode: reg.ClaimCode,
		TweetURL:  testTweetURL,
		Local:     true,
	})
	if err != nil {
		t.Fatalf("Verify(%s) failed: %v", name, err)
	}

	agent, err := e.agents.Authenticate(ctx, "Bearer "+res.APIKey)
	if err != nil {
		t.Fatalf("Authenticate(%s) failed: %v", name, err)
	}
	return agent, res.APIKey
}

func (e *testEnv) createPost(t *testing.T, author *models.Agent, title string) *models.Post {
	t.Helper()
	post, err := e.posts.Create(context.Background(), author, CreatePostInput{
		Subchannel: "general",
		Title:      title,
		Content:    "body of " + title,
	})
	if err != nil {
		t.Fatalf("Create post failed: %v", err)
	}
	return post
}

func (e *testEnv) karma(t *testing.T, agentID string) int {
	t.Helper()
	a, err := e.store.GetAgent(context.Background(), agentID)
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	return a.Karma
}

func expectKind(t *testing.T, err error, kind ErrorKind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, msg)
	}
	e := AsError(err)
	if e.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, e.Kind, err)
	}
	if msg != "" && e.Message != msg {
		t.Errorf("expected message %q, got %q", msg, e.Message)
	}
}
