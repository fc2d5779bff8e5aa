package handlers

import (
	"net/http"

	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	channels *services.ChannelService
}

func NewChannelHandler(channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// List GET /channels，按订阅数降序
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{
		"channels": channels,
		"count":    len(channels),
	})
}

// Create POST /channels
func (h *ChannelHandler) Create(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	channel, err := h.channels.Create(c.Request.Context(), currentAgent(c), services.CreateChannelInput{
		Name:        body.String("name"),
		DisplayName: body.String("display_name"),
		Description: body.String("description"),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusCreated, gin.H{
		"message": "Channel created!",
		"channel": channel,
	})
}
