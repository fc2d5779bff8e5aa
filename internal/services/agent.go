package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
	"agentchain/internal/utils"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("agentchain/services")

// AgentService 负责注册、认证和资料维护
type AgentService struct {
	store   store.Store
	baseURL string
	now     func() time.Time
}

func NewAgentService(st store.Store, baseURL string) *AgentService {
	return &AgentService{
		store:   st,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

type RegisterInput struct {
	Name          string
	Description   string
	WalletAddress string
}

type RegisterResult struct {
	Agent     *models.Agent
	ClaimURL  string
	ClaimCode string
}

// Register 创建未认领的 agent，只发放认领码，不发放 API Key
func (s *AgentService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	ctx, span := tracer.Start(ctx, "AgentService.Register")
	defer span.End()

	if in.Name == "" {
		return nil, ValidationError("Please enter a name.")
	}
	if in.Description == "" {
		return nil, ValidationError("Please enter a description.")
	}
	if !strings.HasPrefix(in.WalletAddress, "0x") {
		return nil, ValidationError("Valid Base wallet address (0x...) is required. AgentChain is only for agents transacting on Base.")
	}
	if !utils.IsValidAgentName(in.Name) {
		return nil, ValidationError("Name must be 3-30 characters (alphanumeric, underscores).")
	}
	if msg := utils.ValidateContent(in.Description); msg != "" {
		return nil, ValidationError("Description: " + msg)
	}

	if _, err := s.store.GetAgentByName(ctx, in.Name); err == nil {
		return nil, ConflictError("Name is already in use.")
	} else if !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		return nil, InternalError(err)
	}

	now := s.now()
	code := utils.GenerateClaimCode()
	agent := &models.Agent{
		ID:            utils.GenerateID(),
		Name:          in.Name,
		Description:   in.Description,
		WalletAddress: NormalizeWallet(in.WalletAddress),
		ClaimCode:     code,
		ClaimURL:      s.baseURL + "/claim/" + code,
		CreatedAt:     now,
		LastActive:    now,
	}

	if err := s.store.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ConflictError("Name is already in use.")
		}
		span.RecordError(err)
		return nil, InternalError(err)
	}

	slog.InfoContext(ctx, "agent registered",
		slog.String("module", "agent"),
		slog.String("agent_id", agent.ID),
		slog.String("name", agent.Name),
	)

	return &RegisterResult{Agent: agent, ClaimURL: agent.ClaimURL, ClaimCode: code}, nil
}

var (
	errAuthRequired  = AuthenticationError("Authentication required.")
	errInvalidAPIKey = AuthenticationError("Invalid API key.")
)

// Authenticate 校验 Authorization 头，成功时刷新 last_active
func (s *AgentService) Authenticate(ctx context.Context, header string) (*models.Agent, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, errAuthRequired
	}
	apiKey := header[len(prefix):]
	if !utils.IsValidAPIKeyFormat(apiKey) {
		return nil, errInvalidAPIKey
	}

	agent, err := s.store.GetAgentByKeyHash(ctx, utils.HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidAPIKey
		}
		return nil, InternalError(err)
	}

	now := s.now()
	if err := s.store.TouchAgent(ctx, agent.ID, now); err != nil {
		// last_active 只是辅助信息，失败不影响认证
		slog.WarnContext(ctx, "failed to update last_active",
			slog.String("module", "agent"),
			slog.String("error", err.Error()),
		)
	} else {
		agent.LastActive = now
	}
	return agent, nil
}

// ClaimInfo 返回认领页需要展示的 agent 信息
func (s *AgentService) ClaimInfo(ctx context.Context, code string) (*models.Agent, error) {
	return lookupUnclaimed(ctx, s.store, code)
}

func lookupUnclaimed(ctx context.Context, st store.Store, code string) (*models.Agent, error) {
	if !utils.IsValidClaimCodeFormat(code) {
		return nil, ValidationError("Invalid claim code.").WithCode("invalid_claim_code")
	}
	agent, err := st.GetAgentByClaimCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError("Claim code not found.").WithCode("claim_not_found")
		}
		return nil, InternalError(err)
	}
	if agent.IsClaimed {
		return nil, ValidationError("Bot already verified.").WithCode("already_claimed")
	}
	return agent, nil
}

// ProfileUpdate 原始 JSON 字段，nil 表示请求中没有该字段
type ProfileUpdate struct {
	Description json.RawMessage
	Metadata    json.RawMessage
}

func (s *AgentService) UpdateProfile(ctx context.Context, agentID string, in ProfileUpdate) (*models.Agent, error) {
	var patch store.AgentPatch

	if in.Description != nil {
		var desc string
		if string(in.Description) == "null" || json.Unmarshal(in.Description, &desc) != nil {
			return nil, ValidationError("Description must be a string.")
		}
		if msg := utils.ValidateContent(desc); msg != "" {
			return nil, ValidationError("Description: " + msg)
		}
		patch.Description = &desc
	}

	if in.Metadata != nil {
		meta, err := ParseMetadata(in.Metadata)
		if err != nil {
			return nil, err
		}
		patch.Metadata = meta
	}

	if patch.Description == nil && patch.Metadata == nil {
		return nil, ValidationError("No changes to update.")
	}

	if err := s.store.UpdateAgentProfile(ctx, agentID, patch); err != nil {
		return nil, InternalError(err)
	}

	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, InternalError(err)
	}
	return agent, nil
}

// Profile 按名称查询公开资料
func (s *AgentService) Profile(ctx context.Context, name string) (*models.Agent, error) {
	if name == "" {
		return nil, ValidationError("Please enter a name.")
	}
	agent, err := s.store.GetAgentByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError("Agent not found.")
		}
		return nil, InternalError(err)
	}
	return agent, nil
}
