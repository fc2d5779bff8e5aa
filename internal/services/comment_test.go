package services

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"hi @alice_bot and @bob_bot", []string{"alice_bot", "bob_bot"}},
		{"@alice_bot @alice_bot", []string{"alice_bot"}},
		{"mail me at x@example.com", nil},
		{"@ab too short", nil},
		{"@a1x @a2x @a3x @a4x @a5x @a6x", []string{"a1x", "a2x", "a3x", "a4x", "a5x"}},
	}
	for _, tt := range tests {
		if got := ExtractMentions(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractMentions(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func notificationsOf(t *testing.T, env *testEnv, agentID string) []models.Notification {
	t.Helper()
	items, err := env.store.ListNotifications(context.Background(), store.NotificationQuery{AgentID: agentID})
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	return items
}

func TestCreateCommentSideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "post_author")
	commenter, _ := env.claimedAgent(t, "commenter")
	post := env.createPost(t, author, "discuss")

	base := env.karma(t, commenter.ID)
	long := strings.Repeat("가", 150)
	res, err := env.comments.Create(ctx, commenter, post.ID, CreateCommentInput{Content: long})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res.PostAuthorName != "post_author" {
		t.Errorf("unexpected post author %s", res.PostAuthorName)
	}

	p, _ := env.store.GetPost(ctx, post.ID)
	if p.CommentCount != 1 {
		t.Errorf("expected comment_count 1, got %d", p.CommentCount)
	}
	if got := env.karma(t, commenter.ID) - base; got != 1 {
		t.Errorf("expected karma +1, got %+d", got)
	}

	items := notificationsOf(t, env, author.ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(items))
	}
	n := items[0]
	if n.Type != models.NotificationTypeCommentOnPost || n.ActorName != "commenter" || n.CommentID != res.Comment.ID {
		t.Errorf("unexpected notification %+v", n)
	}
	if len([]rune(n.ContentPreview)) != 100 {
		t.Errorf("preview should be 100 characters, got %d", len([]rune(n.ContentPreview)))
	}
	if env.publisher.count() != 1 {
		t.Errorf("expected 1 published notification, got %d", env.publisher.count())
	}
}

func TestReplyNotifiesParentAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "post_author")
	first, _ := env.claimedAgent(t, "first_bot")
	second, _ := env.claimedAgent(t, "second_bot")
	post := env.createPost(t, author, "thread")

	parent, err := env.comments.Create(ctx, first, post.ID, CreateCommentInput{Content: "top level"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	reply, err := env.comments.Create(ctx, second, post.ID, CreateCommentInput{Content: "reply", ParentID: parent.Comment.ID})
	if err != nil {
		t.Fatalf("Create reply failed: %v", err)
	}
	if reply.Comment.ParentID == nil || *reply.Comment.ParentID != parent.Comment.ID {
		t.Errorf("reply must reference its parent")
	}

	items := notificationsOf(t, env, first.ID)
	if len(items) != 1 || items[0].Type != models.NotificationTypeReplyToComment {
		t.Fatalf("expected one reply notification, got %+v", items)
	}
	// 回复只通知父评论作者
	if got := len(notificationsOf(t, env, author.ID)); got != 1 {
		t.Errorf("post author should only have the top-level notification, got %d", got)
	}
}

func TestSelfCommentNoNotification(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.claimedAgent(t, "solo_bot")
	post := env.createPost(t, author, "alone")

	if _, err := env.comments.Create(context.Background(), author, post.ID, CreateCommentInput{Content: "talking to myself"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := len(notificationsOf(t, env, author.ID)); got != 0 {
		t.Errorf("expected no notifications, got %d", got)
	}
}

func TestCommentMentions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "post_author")
	commenter, _ := env.claimedAgent(t, "commenter")
	friend, _ := env.claimedAgent(t, "friend_bot")
	post := env.createPost(t, author, "mentions")

	content := "cc @friend_bot @post_author @commenter @ghost_bot"
	if _, err := env.comments.Create(ctx, commenter, post.ID, CreateCommentInput{Content: content}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	items := notificationsOf(t, env, friend.ID)
	if len(items) != 1 || items[0].Type != models.NotificationTypeMention {
		t.Fatalf("expected one mention for friend, got %+v", items)
	}
	// 帖子作者已经收到评论通知，不再重复提及
	if items := notificationsOf(t, env, author.ID); len(items) != 1 || items[0].Type != models.NotificationTypeCommentOnPost {
		t.Errorf("post author should only get the comment notification, got %+v", items)
	}
	if got := len(notificationsOf(t, env, commenter.ID)); got != 0 {
		t.Errorf("actor must not be notified, got %d", got)
	}
}

func TestCreateCommentErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "post_author")
	other := env.createPost(t, author, "other")
	env.clock.Advance(PostCooldown)
	post := env.createPost(t, author, "main")

	_, err := env.comments.Create(ctx, author, post.ID, CreateCommentInput{})
	expectKind(t, err, KindValidation, "Please enter content.")

	_, err = env.comments.Create(ctx, author, post.ID, CreateCommentInput{Content: "  "})
	expectKind(t, err, KindValidation, "Content: Please enter content.")

	_, err = env.comments.Create(ctx, author, "missing", CreateCommentInput{Content: "x"})
	expectKind(t, err, KindNotFound, "Post not found.")

	_, err = env.comments.Create(ctx, author, post.ID, CreateCommentInput{Content: "x", ParentID: "missing"})
	expectKind(t, err, KindNotFound, "Parent comment not found.")

	foreign, err := env.comments.Create(ctx, author, other.ID, CreateCommentInput{Content: "elsewhere"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	env.clock.Advance(CommentCooldown)
	_, err = env.comments.Create(ctx, author, post.ID, CreateCommentInput{Content: "x", ParentID: foreign.Comment.ID})
	expectKind(t, err, KindNotFound, "Parent comment not found.")

	p, _ := env.store.GetPost(ctx, post.ID)
	if p.CommentCount != 0 {
		t.Errorf("failed comments must not bump comment_count, got %d", p.CommentCount)
	}
}

func TestCommentRateLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "chatty_bot")
	post := env.createPost(t, author, "chat")

	if _, err := env.comments.Create(ctx, author, post.ID, CreateCommentInput{Content: "one"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	env.clock.Advance(4 * time.Second)
	_, err := env.comments.Create(ctx, author, post.ID, CreateCommentInput{Content: "two"})
	expectKind(t, err, KindRateLimit, "You are commenting too frequently.")
	if hint := AsError(err).Hint; hint != "Please try again in 6 seconds." {
		t.Errorf("unexpected hint %q", hint)
	}

	env.clock.Advance(6 * time.Second)
	if _, err := env.comments.Create(ctx, author, post.ID, CreateCommentInput{Content: "two"}); err != nil {
		t.Fatalf("comment after cooldown failed: %v", err)
	}
}

func TestListCommentsTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.claimedAgent(t, "post_author")
	a, _ := env.claimedAgent(t, "agent_a")
	b, _ := env.claimedAgent(t, "agent_b")
	post := env.createPost(t, author, "tree")

	first, _ := env.comments.Create(ctx, a, post.ID, CreateCommentInput{Content: "first"})
	env.clock.Advance(time.Second)
	second, _ := env.comments.Create(ctx, b, post.ID, CreateCommentInput{Content: "second"})
	env.clock.Advance(CommentCooldown)
	reply, err := env.comments.Create(ctx, a, post.ID, CreateCommentInput{Content: "reply", ParentID: first.Comment.ID})
	if err != nil {
		t.Fatalf("Create reply failed: %v", err)
	}
	env.votes.VoteComment(ctx, author, second.Comment.ID, VoteUp)

	roots, count, err := env.comments.List(ctx, post.ID, "top")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].ID != second.Comment.ID {
		t.Errorf("top sort should put the upvoted comment first")
	}
	if len(roots[1].Replies) != 1 || roots[1].Replies[0].ID != reply.Comment.ID {
		t.Errorf("reply not attached to its parent")
	}

	roots, _, _ = env.comments.List(ctx, post.ID, "new")
	if roots[0].ID != second.Comment.ID || roots[1].ID != first.Comment.ID {
		t.Errorf("new sort should be newest first")
	}

	_, _, err = env.comments.List(ctx, "missing", "top")
	expectKind(t, err, KindNotFound, "Post not found.")
}
