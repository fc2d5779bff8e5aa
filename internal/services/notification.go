package services

import (
	"context"
	"encoding/json"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
	"agentchain/internal/utils"
)

const (
	previewLength          = 100
	notificationFetchLimit = 200
	maxReadBatch           = 50
)

// outbox 收集事务内创建的通知，提交后统一推送
type outbox struct {
	items []*models.Notification
}

// add 创建通知，actor 与接收者相同时跳过
func (o *outbox) add(ctx context.Context, tx store.Store, n *models.Notification, now time.Time) error {
	if n.AgentID == "" || n.AgentID == n.ActorID {
		return nil
	}
	n.ID = utils.GenerateID()
	n.IsRead = false
	n.CreatedAt = now
	n.ContentPreview = utils.Preview(n.ContentPreview, previewLength)
	if err := tx.CreateNotification(ctx, n); err != nil {
		return err
	}
	o.items = append(o.items, n)
	return nil
}

func (o *outbox) recipients() map[string]bool {
	m := make(map[string]bool, len(o.items))
	for _, n := range o.items {
		m[n.AgentID] = true
	}
	return m
}

func (o *outbox) flush(p Publisher) {
	if p == nil {
		return
	}
	for _, n := range o.items {
		p.Publish(n)
	}
}

// NotificationService 通知查询和已读标记
type NotificationService struct {
	store store.Store
}

func NewNotificationService(st store.Store) *NotificationService {
	return &NotificationService{store: st}
}

type ListNotificationsInput struct {
	Limit      int
	UnreadOnly bool
	Since      *time.Time
	Cursor     string
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Count         int                   `json:"count"`
	UnreadCount   int                   `json:"unread_count"`
	NextCursor    *string               `json:"next_cursor"`
	HasMore       bool                  `json:"has_more"`
}

// List 先取最近一批通知，再按游标切片
func (s *NotificationService) List(ctx context.Context, agentID string, in ListNotificationsInput) (*NotificationPage, error) {
	all, err := s.store.ListNotifications(ctx, store.NotificationQuery{
		AgentID:    agentID,
		UnreadOnly: in.UnreadOnly,
		Since:      in.Since,
		Limit:      notificationFetchLimit,
	})
	if err != nil {
		return nil, InternalError(err)
	}

	start := 0
	if in.Cursor != "" {
		for i := range all {
			if all[i].ID == in.Cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + in.Limit
	hasMore := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]

	unread := 0
	for i := range all {
		if !all[i].IsRead {
			unread++
		}
	}

	var next *string
	if hasMore && len(page) > 0 {
		id := page[len(page)-1].ID
		next = &id
	}

	return &NotificationPage{
		Notifications: page,
		Count:         len(page),
		UnreadCount:   unread,
		NextCursor:    next,
		HasMore:       hasMore,
	}, nil
}

// MarkReadInput "all" 或者一组 ID
type MarkReadInput struct {
	All bool
	IDs []string
}

// ParseNotificationIDs 解析 notification_ids 字段。
// 数组中的非字符串元素会被忽略。
func ParseNotificationIDs(raw json.RawMessage) (MarkReadInput, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return MarkReadInput{}, ValidationError("Please provide notification_ids.")
	}

	var all string
	if err := json.Unmarshal(raw, &all); err == nil {
		if all == "all" {
			return MarkReadInput{All: true}, nil
		}
		if all == "" {
			return MarkReadInput{}, ValidationError("Please provide notification_ids.")
		}
		return MarkReadInput{}, ValidationError(`notification_ids must be an array or "all".`)
	}

	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return MarkReadInput{}, ValidationError(`notification_ids must be an array or "all".`)
	}
	if len(items) == 0 {
		return MarkReadInput{}, ValidationError("Empty array is not allowed.")
	}
	if len(items) > maxReadBatch {
		return MarkReadInput{}, ValidationError("Cannot process more than 50 items at once.")
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return MarkReadInput{IDs: ids}, nil
}

// MarkRead 只会标记调用者自己的通知，其他 ID 静默跳过
func (s *NotificationService) MarkRead(ctx context.Context, agentID string, in MarkReadInput) (int64, error) {
	var (
		count int64
		err   error
	)
	if in.All {
		count, err = s.store.MarkAllNotificationsRead(ctx, agentID)
	} else {
		count, err = s.store.MarkNotificationsRead(ctx, agentID, in.IDs)
	}
	if err != nil {
		return 0, InternalError(err)
	}
	return count, nil
}
