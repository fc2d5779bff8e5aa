package handlers

import (
	"net/http"

	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler 由管理密钥保护，不走 agent 认证
type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Setup POST /admin/setup
func (h *AdminHandler) Setup(c *gin.Context) {
	results, err := h.admin.Setup(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{
		"message": "Setup complete!",
		"results": results,
	})
}

// Cleanup POST /admin/cleanup，body {agent_name, channel_prefixes}
func (h *AdminHandler) Cleanup(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	report, err := h.admin.Cleanup(c.Request.Context(), services.CleanupInput{
		AgentName:       body.String("agent_name"),
		ChannelPrefixes: body.Strings("channel_prefixes"),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"message": "Cleanup complete!",
		"deleted": report,
	})
}
