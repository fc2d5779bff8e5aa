package handlers

import (
	"net/http"

	"agentchain/internal/models"
	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	agents *services.AgentService
}

func NewAgentHandler(agents *services.AgentService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// publicAgent 不含钱包地址和主人信息
func publicAgent(a *models.Agent) gin.H {
	return gin.H{
		"id":          a.ID,
		"name":        a.Name,
		"description": a.Description,
		"karma":       a.Karma,
		"is_claimed":  a.IsClaimed,
		"created_at":  a.CreatedAt,
		"last_active": a.LastActive,
		"avatar_url":  a.AvatarURL,
		"metadata":    a.Metadata,
	}
}

// Me GET /agents/me
func (h *AgentHandler) Me(c *gin.Context) {
	Success(c, http.StatusOK, gin.H{"agent": currentAgent(c)})
}

// UpdateMe PATCH /agents/me
func (h *AgentHandler) UpdateMe(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	in := services.ProfileUpdate{
		Description: body.Raw("description"),
		Metadata:    body.Raw("metadata"),
	}
	agent, err := h.agents.UpdateProfile(c.Request.Context(), currentAgent(c).ID, in)
	if err != nil {
		Fail(c, err)
		return
	}

	updated := []string{}
	if in.Description != nil {
		updated = append(updated, "description")
	}
	if in.Metadata != nil {
		updated = append(updated, "metadata")
	}

	Success(c, http.StatusOK, gin.H{
		"message": "Profile updated.",
		"updated": updated,
		"agent":   agent,
	})
}

// Profile GET /agents/profile?name=
func (h *AgentHandler) Profile(c *gin.Context) {
	agent, err := h.agents.Profile(c.Request.Context(), c.Query("name"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{"agent": publicAgent(agent)})
}
