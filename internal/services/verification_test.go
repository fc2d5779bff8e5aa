package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"agentchain/internal/utils"
)

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing name", RegisterInput{Description: "d", WalletAddress: testWallet}, "Please enter a name."},
		{"missing description", RegisterInput{Name: "agent_x", WalletAddress: testWallet}, "Please enter a description."},
		{"missing wallet", RegisterInput{Name: "agent_x", Description: "d"}, "Valid Base wallet address (0x...) is required. AgentChain is only for agents transacting on Base."},
		{"bad name", RegisterInput{Name: "a-b", Description: "d", WalletAddress: testWallet}, "Name must be 3-30 characters (alphanumeric, underscores)."},
		{"blank description", RegisterInput{Name: "agent_x", Description: "   ", WalletAddress: testWallet}, "Description: Please enter content."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.agents.Register(ctx, tt.in)
			expectKind(t, err, KindValidation, tt.msg)
		})
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := RegisterInput{Name: "twin_bot", Description: "first", WalletAddress: testWallet}
	reg, err := env.agents.Register(ctx, in)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Agent.IsClaimed || reg.Agent.APIKeyHash != nil {
		t.Errorf("new agent must be unclaimed without key hash")
	}
	if !utils.IsValidClaimCodeFormat(reg.ClaimCode) {
		t.Errorf("invalid claim code %q", reg.ClaimCode)
	}
	if reg.ClaimURL != "https://agentchain.test/claim/"+reg.ClaimCode {
		t.Errorf("unexpected claim url %s", reg.ClaimURL)
	}
	if reg.Agent.WalletAddress != "0x52908400098527886E0F7030069857D2E4169EE7" {
		t.Errorf("wallet not checksummed: %s", reg.Agent.WalletAddress)
	}

	_, err = env.agents.Register(ctx, in)
	expectKind(t, err, KindConflict, "Name is already in use.")
}

func TestVerifyGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.agents.Register(ctx, RegisterInput{Name: "gate_bot", Description: "d", WalletAddress: testWallet})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := reg.ClaimCode

	tests := []struct {
		name    string
		in      VerifyInput
		fetched string
		kind    ErrorKind
		code    string
	}{
		{"malformed code", VerifyInput{ClaimCode: "agentchain-0000", TweetURL: testTweetURL}, "", KindValidation, "invalid_claim_code"},
		{"unknown code", VerifyInput{ClaimCode: "agentchain-ABCD", TweetURL: testTweetURL}, "", KindNotFound, "claim_not_found"},
		{"missing url", VerifyInput{ClaimCode: code}, "", KindValidation, "missing_tweet_url"},
		{"bad url", VerifyInput{ClaimCode: code, TweetURL: "https://example.com/status/1"}, "", KindValidation, "invalid_tweet_url"},
		{"test url remote", VerifyInput{ClaimCode: code, TweetURL: testTweetURL}, "", KindAuthorization, "test_url_forbidden"},
		{"empty tweet", VerifyInput{ClaimCode: code, TweetURL: "https://x.com/owner/status/123"}, "", KindValidation, "tweet_unverifiable"},
		{"code missing", VerifyInput{ClaimCode: code, TweetURL: "https://x.com/owner/status/123"}, "hello world", KindValidation, "code_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.fetcher.text = tt.fetched
			_, err := env.verification.Verify(ctx, tt.in)
			expectKind(t, err, tt.kind, "")
			if got := AsError(err).Code; got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
		})
	}

	agent, err := env.store.GetAgent(ctx, reg.Agent.ID)
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if agent.IsClaimed || agent.APIKeyHash != nil {
		t.Errorf("failed verification must not change the agent")
	}
}

func TestVerifyFetchError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, _ := env.agents.Register(ctx, RegisterInput{Name: "fetch_bot", Description: "d", WalletAddress: testWallet})
	env.fetcher.text = reg.ClaimCode
	env.fetcher.err = errors.New("network down")

	_, err := env.verification.Verify(ctx, VerifyInput{ClaimCode: reg.ClaimCode, TweetURL: "https://twitter.com/owner/status/42"})
	expectKind(t, err, KindValidation, "Cannot verify tweet.")
	if hint := AsError(err).Hint; hint != "Please ensure the tweet is public." {
		t.Errorf("unexpected hint %q", hint)
	}
}

func TestRegisterVerifyAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.agents.Register(ctx, RegisterInput{Name: "e2e_bot", Description: "end to end", WalletAddress: testWallet})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	env.fetcher.text = "Verifying my agent on AgentChain: " + reg.ClaimCode
	res, err := env.verification.Verify(ctx, VerifyInput{ClaimCode: reg.ClaimCode, TweetURL: "https://x.com/Owner_1/status/987654321"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.BotName != "e2e_bot" {
		t.Errorf("expected bot name e2e_bot, got %s", res.BotName)
	}
	if !utils.IsValidAPIKeyFormat(res.APIKey) {
		t.Fatalf("invalid api key format %q", res.APIKey)
	}

	stored, err := env.store.GetAgent(ctx, reg.Agent.ID)
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if !stored.IsClaimed || stored.APIKeyHash == nil {
		t.Fatalf("agent must be claimed with a key hash")
	}
	if *stored.APIKeyHash == res.APIKey || !utils.VerifyAPIKey(res.APIKey, *stored.APIKeyHash) {
		t.Errorf("stored hash does not match issued key")
	}
	if stored.OwnerTwitter != "https://x.com/Owner_1" {
		t.Errorf("unexpected owner %s", stored.OwnerTwitter)
	}

	agent, err := env.agents.Authenticate(ctx, "Bearer "+res.APIKey)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if agent.ID != reg.Agent.ID {
		t.Errorf("authenticated wrong agent")
	}

	_, err = env.verification.Verify(ctx, VerifyInput{ClaimCode: reg.ClaimCode, TweetURL: testTweetURL, Local: true})
	expectKind(t, err, KindValidation, "Bot already verified.")
}

func TestAuthenticateFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		header string
		msg    string
	}{
		{"", "Authentication required."},
		{"Token abc", "Authentication required."},
		{"Bearer short", "Invalid API key."},
		{"Bearer " + utils.GenerateAPIKey(), "Invalid API key."},
	}
	for _, tt := range tests {
		_, err := env.agents.Authenticate(ctx, tt.header)
		expectKind(t, err, KindAuthentication, tt.msg)
		if AsError(err).Hint == "" {
			t.Errorf("authentication error for %q has no hint", tt.header)
		}
	}
}

func TestConcurrentVerifyIssuesOneKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, _ := env.agents.Register(ctx, RegisterInput{Name: "race_bot", Description: "d", WalletAddress: testWallet})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		keys []string
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.verification.Verify(ctx, VerifyInput{ClaimCode: reg.ClaimCode, TweetURL: testTweetURL, Local: true})
			if err != nil {
				return
			}
			mu.Lock()
			keys = append(keys, res.APIKey)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(keys) != 1 {
		t.Fatalf("expected exactly one issued key, got %d", len(keys))
	}
	if !strings.HasPrefix(keys[0], utils.APIKeyPrefix) {
		t.Errorf("unexpected key %s", keys[0])
	}
}

func TestClaimInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, _ := env.agents.Register(ctx, RegisterInput{Name: "info_bot", Description: "hello", WalletAddress: testWallet})
	agent, err := env.agents.ClaimInfo(ctx, reg.ClaimCode)
	if err != nil {
		t.Fatalf("ClaimInfo failed: %v", err)
	}
	if agent.Name != "info_bot" || agent.Description != "hello" {
		t.Errorf("unexpected agent %+v", agent)
	}

	_, err = env.agents.ClaimInfo(ctx, "nope")
	expectKind(t, err, KindValidation, "Invalid claim code.")
}
