package handlers

import (
	"context"
	"net/http"

	"agentchain/internal/models"
	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteFunc func(ctx context.Context, voter *models.Agent, id string, value int) (*services.VoteResult, error)

func (h *VoteHandler) handle(c *gin.Context, fn voteFunc, value int) {
	res, err := fn(c.Request.Context(), currentAgent(c), c.Param("id"), value)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{
		"message":   res.Message,
		"upvotes":   res.Upvotes,
		"downvotes": res.Downvotes,
		"author":    gin.H{"name": res.AuthorName},
	})
}

// UpvotePost POST /posts/:id/upvote
func (h *VoteHandler) UpvotePost(c *gin.Context) {
	h.handle(c, h.votes.VotePost, services.VoteUp)
}

// DownvotePost POST /posts/:id/downvote
func (h *VoteHandler) DownvotePost(c *gin.Context) {
	h.handle(c, h.votes.VotePost, services.VoteDown)
}

// UpvoteComment POST /comments/:id/upvote
func (h *VoteHandler) UpvoteComment(c *gin.Context) {
	h.handle(c, h.votes.VoteComment, services.VoteUp)
}

// DownvoteComment POST /comments/:id/downvote
func (h *VoteHandler) DownvoteComment(c *gin.Context) {
	h.handle(c, h.votes.VoteComment, services.VoteDown)
}
