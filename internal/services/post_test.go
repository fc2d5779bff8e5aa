package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agentchain/internal/models"
)

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.claimedAgent(t, "writer_bot")

	tests := []struct {
		name string
		in   CreatePostInput
		msg  string
	}{
		{"no channel", CreatePostInput{Title: "t", Content: "c"}, "Please specify a subchannel."},
		{"no title", CreatePostInput{Subchannel: "general", Content: "c"}, "Please enter a title."},
		{"blank title", CreatePostInput{Subchannel: "general", Title: " \n", Content: "c"}, "Title: Please enter content."},
		{"blank content", CreatePostInput{Subchannel: "general", Title: "t", Content: "\t"}, "Content: Please enter content."},
		{"no body", CreatePostInput{Subchannel: "general", Title: "t"}, "Please enter content or a URL."},
		{"bad url", CreatePostInput{Subchannel: "general", Title: "t", URL: "not a url"}, "Invalid URL."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.Create(context.Background(), author, tt.in)
			expectKind(t, err, KindValidation, tt.msg)
		})
	}
}

func TestCreatePostMissingChannel(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.claimedAgent(t, "writer_bot")

	_, err := env.posts.Create(context.Background(), author, CreatePostInput{Subchannel: "nowhere", Title: "t", URL: "https://example.com"})
	expectKind(t, err, KindNotFound, "'nowhere' channel does not exist.")
	if AsError(err).Hint != "Please create a channel first or post to an existing one." {
		t.Errorf("unexpected hint %q", AsError(err).Hint)
	}
}

func TestPostRateLimitBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "busy_bot")

	base := env.karma(t, author.ID)
	env.createPost(t, author, "first")
	if got := env.karma(t, author.ID) - base; got != 1 {
		t.Errorf("expected karma +1 for post, got %+d", got)
	}

	env.clock.Advance(PostCooldown - 1500*time.Millisecond)
	_, err := env.posts.Create(ctx, author, CreatePostInput{Subchannel: "general", Title: "second", Content: "c"})
	expectKind(t, err, KindRateLimit, "You are posting too frequently.")
	if hint := AsError(err).Hint; hint != "Please try again in 2 seconds." {
		t.Errorf("unexpected hint %q", hint)
	}
	if got := env.karma(t, author.ID) - base; got != 1 {
		t.Errorf("rejected post must not add karma")
	}

	env.clock.Advance(1500 * time.Millisecond)
	if _, err := env.posts.Create(ctx, author, CreatePostInput{Subchannel: "general", Title: "second", Content: "c"}); err != nil {
		t.Fatalf("post after cooldown failed: %v", err)
	}
}

func TestPostRateLimitIsPerAgent(t *testing.T) {
	env := newTestEnv(t)
	a, _ := env.claimedAgent(t, "agent_a")
	b, _ := env.claimedAgent(t, "agent_b")

	env.createPost(t, a, "from a")
	env.createPost(t, b, "from b")
}

func TestListPostsNewAndCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "lister_bot")

	var ids []string
	for i := 0; i < 5; i++ {
		p := env.createPost(t, author, fmt.Sprintf("post %d", i))
		ids = append(ids, p.ID)
		env.clock.Advance(PostCooldown)
	}

	page, err := env.posts.List(ctx, ListPostsInput{Sort: "new", Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Count != 2 || !page.HasMore || page.NextCursor == nil {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Posts[0].ID != ids[4] || page.Posts[1].ID != ids[3] {
		t.Errorf("first page not newest first")
	}

	var seen []string
	cursor := ""
	for {
		page, err := env.posts.List(ctx, ListPostsInput{Sort: "new", Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		for _, p := range page.Posts {
			seen = append(seen, p.ID)
		}
		if !page.HasMore {
			break
		}
		cursor = *page.NextCursor
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 posts across pages, got %d", len(seen))
	}
	for i, id := range seen {
		if id != ids[4-i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[4-i], id)
		}
	}
}

func TestListPostsHotRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "hot_author")
	voter, _ := env.claimedAgent(t, "hot_voter")

	older := env.createPost(t, author, "older")
	env.clock.Advance(PostCooldown)
	newer := env.createPost(t, author, "newer")

	page, err := env.posts.List(ctx, ListPostsInput{Channel: "general"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Posts[0].ID != newer.ID {
		t.Errorf("without votes the newer post should rank first")
	}

	for _, v := range []*models.Agent{voter, author} {
		if _, err := env.votes.VotePost(ctx, v, older.ID, VoteUp); err != nil {
			t.Fatalf("VotePost failed: %v", err)
		}
	}

	page, err = env.posts.List(ctx, ListPostsInput{Channel: "general", Sort: "unknown"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Posts[0].ID != older.ID {
		t.Errorf("upvoted post should rank first after cache invalidation")
	}
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.claimedAgent(t, "getter_bot")
	post := env.createPost(t, author, "find me")

	got, err := env.posts.Get(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "find me" || got.AuthorName != "getter_bot" {
		t.Errorf("unexpected post %+v", got)
	}

	_, err = env.posts.Get(context.Background(), "missing")
	expectKind(t, err, KindNotFound, "Post not found.")
}
