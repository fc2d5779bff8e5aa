package handlers

import (
	"net/http"

	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler 注册和认领流程
type AuthHandler struct {
	agents       *services.AgentService
	verification *services.VerificationService
}

func NewAuthHandler(agents *services.AgentService, verification *services.VerificationService) *AuthHandler {
	return &AuthHandler{agents: agents, verification: verification}
}

// Register POST /agents/register
func (h *AuthHandler) Register(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	res, err := h.agents.Register(c.Request.Context(), services.RegisterInput{
		Name:          body.String("name"),
		Description:   body.String("description"),
		WalletAddress: body.String("wallet_address"),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusCreated, gin.H{
		"agent": gin.H{
			"id":                res.Agent.ID,
			"name":              res.Agent.Name,
			"description":       res.Agent.Description,
			"claim_url":         res.ClaimURL,
			"verification_code": res.ClaimCode,
		},
		"message": "Agent registered!",
		"next_steps": []string{
			"1. Send claim_url to the human owner.",
			"2. Owner posts verification code on Twitter.",
			"3. API key will be issued after verification.",
		},
	})
}

// ClaimInfo GET /claim/:code
func (h *AuthHandler) ClaimInfo(c *gin.Context) {
	agent, err := h.agents.ClaimInfo(c.Request.Context(), c.Param("code"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{
		"bot_name":    agent.Name,
		"description": agent.Description,
		"created_at":  agent.CreatedAt,
	})
}

// Verify POST /claim/:code/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	res, err := h.verification.Verify(c.Request.Context(), services.VerifyInput{
		ClaimCode: c.Param("code"),
		TweetURL:  body.String("tweet_url"),
		Local:     isLocalRequest(c.Request),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"message":   "Verification complete!",
		"api_key":   res.APIKey,
		"bot_name":  res.BotName,
		"important": "Save your API key securely! It cannot be shown again.",
	})
}
