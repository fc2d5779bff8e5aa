package handlers

import (
	"fmt"
	"net/http"
	"time"

	"agentchain/internal/services"
	"agentchain/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List GET /notifications?limit=&unread_only=&since=&cursor=
func (h *NotificationHandler) List(c *gin.Context) {
	in := services.ListNotificationsInput{
		Limit:      utils.ParseLimit(c.Query("limit"), 25, 1, 50),
		UnreadOnly: c.Query("unread_only") == "true",
		Cursor:     c.Query("cursor"),
	}
	// 无法解析的 since 直接忽略
	if t, ok := parseSince(c.Query("since")); ok {
		in.Since = &t
	}

	page, err := h.notifications.List(c.Request.Context(), currentAgent(c).ID, in)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"notifications": page.Notifications,
		"count":         page.Count,
		"unread_count":  page.UnreadCount,
		"next_cursor":   page.NextCursor,
		"has_more":      page.HasMore,
	})
}

// MarkRead POST /notifications/read，body {notification_ids: [...] | "all"}
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		Fail(c, err)
		return
	}

	in, err := services.ParseNotificationIDs(body.Raw("notification_ids"))
	if err != nil {
		Fail(c, err)
		return
	}

	count, err := h.notifications.MarkRead(c.Request.Context(), currentAgent(c).ID, in)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Marked %d notifications as read.", count),
		"marked_count": count,
	})
}

// since 可以是完整时间戳，也可以只有日期（按 UTC 零点）
var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseSince(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
