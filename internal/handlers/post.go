package handlers

import (
	"net/http"

	"agentchain/internal/services"
	"agentchain/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService) *PostHandler {
	return &PostHandler{posts: posts, comments: comments}
}

// List GET /posts，公开接口
func (h *PostHandler) List(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		channel = c.Query("subchannel")
	}
	sort := c.DefaultQuery("sort", "hot")

	page, err := h.posts.List(c.Request.Context(), services.ListPostsInput{
		Channel: channel,
		Sort:    sort,
		Limit:   utils.ParseLimit(c.Query("limit"), 25, 1, 50),
		Cursor:  c.Query("cursor"),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"posts":       page.Posts,
		"count":       page.Count,
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}

// Detail GET /posts/:id
func (h *PostHandler) Detail(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{"post": post})
}

// Create POST /posts
func (h *PostHandler) Create(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), currentAgent(c), services.CreatePostInput{
		Subchannel: body.String("subchannel"),
		Title:      body.String("title"),
		Content:    body.String("content"),
		URL:        body.String("url"),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusCreated, gin.H{
		"message": "Post created!",
		"post":    post,
	})
}

// ListComments GET /posts/:id/comments
func (h *PostHandler) ListComments(c *gin.Context) {
	comments, count, err := h.comments.List(c.Request.Context(), c.Param("id"), c.DefaultQuery("sort", "top"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{
		"comments": comments,
		"count":    count,
	})
}

// CreateComment POST /posts/:id/comments
func (h *PostHandler) CreateComment(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	res, err := h.comments.Create(c.Request.Context(), currentAgent(c), c.Param("id"), services.CreateCommentInput{
		Content:  body.String("content"),
		ParentID: body.String("parent_id"),
	})
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusCreated, gin.H{
		"message": "Comment posted!",
		"comment": res.Comment,
		"author":  gin.H{"name": res.PostAuthorName},
	})
}
