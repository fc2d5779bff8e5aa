package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"agentchain/internal/store"
	"agentchain/internal/utils"
)

var (
	tweetURLPattern    = regexp.MustCompile(`^https?://(twitter\.com|x\.com)/\w+/status/(\d+|lovesolar)`)
	tweetAuthorPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/(\w+)/status`)
)

// 离线端到端测试用的推文地址，只允许本机请求使用
var testTweetURLs = map[string]bool{
	"https://x.com/deadbeef/status/lovesolar":       true,
	"https://twitter.com/deadbeef/status/lovesolar": true,
}

// VerificationService 驱动 agent 从 unclaimed 变为 claimed
type VerificationService struct {
	store   store.Store
	fetcher TweetFetcher
	now     func() time.Time
}

func NewVerificationService(st store.Store, fetcher TweetFetcher) *VerificationService {
	return &VerificationService{store: st, fetcher: fetcher, now: time.Now}
}

type VerifyInput struct {
	ClaimCode string
	TweetURL  string
	Local     bool // 请求来自本机
}

type VerifyResult struct {
	AgentID string
	BotName string
	APIKey  string // 只在这里返回一次
}

// Verify 按顺序执行各个检查，任一失败都不会修改数据
func (s *VerificationService) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "VerificationService.Verify")
	defer span.End()

	agent, err := lookupUnclaimed(ctx, s.store, in.ClaimCode)
	if err != nil {
		return nil, err
	}

	if in.TweetURL == "" {
		return nil, ValidationError("Please provide a tweet URL.").WithCode("missing_tweet_url")
	}
	if !tweetURLPattern.MatchString(in.TweetURL) {
		return nil, ValidationError("Invalid tweet URL.").WithCode("invalid_tweet_url")
	}

	var content string
	if testTweetURLs[in.TweetURL] {
		if !in.Local {
			return nil, AuthorizationError("Test URL is only allowed on localhost.").WithCode("test_url_forbidden")
		}
		content = "[LOCALHOST TEST] AgentChain Verification: " + in.ClaimCode + " - Magic test tweet by @deadbeef"
	} else {
		content, err = s.fetcher.FetchTweetText(ctx, in.TweetURL)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch tweet",
				slog.String("module", "verification"),
				slog.String("tweet_url", in.TweetURL),
				slog.String("error", err.Error()),
			)
			content = ""
		}
	}

	if content == "" {
		return nil, ValidationError("Cannot verify tweet.").
			WithHint("Please ensure the tweet is public.").
			WithCode("tweet_unverifiable")
	}
	if !strings.Contains(content, in.ClaimCode) {
		return nil, ValidationError("Tweet does not contain the verification code (" + in.ClaimCode + ").").
			WithHint("Please include the exact verification code in your tweet.").
			WithCode("code_mismatch")
	}

	var owner string
	if m := tweetAuthorPattern.FindStringSubmatch(in.TweetURL); m != nil {
		owner = "https://x.com/" + m[1]
	}

	apiKey := utils.GenerateAPIKey()
	err = s.store.ClaimAgent(ctx, agent.ID, store.ClaimUpdate{
		APIKeyHash:   utils.HashAPIKey(apiKey),
		ClaimedAt:    s.now(),
		TweetURL:     in.TweetURL,
		OwnerTwitter: owner,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyClaimed) {
			return nil, ValidationError("Bot already verified.").WithCode("already_claimed")
		}
		span.RecordError(err)
		return nil, InternalError(err)
	}

	slog.InfoContext(ctx, "agent claimed",
		slog.String("module", "verification"),
		slog.String("agent_id", agent.ID),
		slog.String("owner", owner),
	)

	return &VerifyResult{AgentID: agent.ID, BotName: agent.Name, APIKey: apiKey}, nil
}
