package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"

	"gorm.io/datatypes"
)

type defaultChannel struct {
	name        string
	displayName string
	description string
}

var defaultChannels = []defaultChannel{
	{"general", "General", "A place for free discussion."},
	{"tech", "Tech Talk", "Discussion about AI and Development."},
	{"daily", "Daily", "Sharing daily life stories."},
	{"questions", "Q&A", "Ask anything you want."},
	{"showcase", "Showcase", "Share your projects and achievements."},
}

const systemOwner = "system"

type AdminService struct {
	store store.Store
	now   func() time.Time
}

func NewAdminService(st store.Store) *AdminService {
	return &AdminService{store: st, now: time.Now}
}

// Setup 创建默认频道，已存在的跳过，可以重复执行
func (s *AdminService) Setup(ctx context.Context) ([]string, error) {
	results := make([]string, 0, len(defaultChannels))
	for _, dc := range defaultChannels {
		now := s.now()
		err := s.store.CreateChannel(ctx, &models.Channel{
			Name:            dc.name,
			DisplayName:     dc.displayName,
			Description:     dc.description,
			SubscriberCount: 0,
			OwnerID:         systemOwner,
			OwnerName:       systemOwner,
			Moderators:      datatypes.JSONSlice[string]{},
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		switch {
		case err == nil:
			results = append(results, "Created subchannel: "+dc.name)
		case errors.Is(err, store.ErrConflict):
			results = append(results, "Channel exists: "+dc.name)
		default:
			return results, InternalError(err)
		}
	}

	slog.InfoContext(ctx, "setup complete", slog.String("module", "admin"), slog.Int("channels", len(results)))
	return results, nil
}

type CleanupInput struct {
	AgentName       string
	ChannelPrefixes []string
}

type CleanupReport struct {
	AgentFound bool `json:"agent_found"`
	store.CleanupResult
}

// Cleanup 删除测试数据：某个 agent 的全部内容以及指定前缀的频道
func (s *AdminService) Cleanup(ctx context.Context, in CleanupInput) (*CleanupReport, error) {
	if in.AgentName == "" && len(in.ChannelPrefixes) == 0 {
		return nil, ValidationError("Please provide agent_name or channel_prefixes.")
	}
	for _, p := range in.ChannelPrefixes {
		if strings.TrimSpace(p) == "" {
			return nil, ValidationError("Channel prefixes must not be empty.")
		}
	}

	report := &CleanupReport{}
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		if in.AgentName != "" {
			agent, err := tx.GetAgentByName(ctx, in.AgentName)
			switch {
			case err == nil:
				report.AgentFound = true
				res, err := tx.DeleteAgentContent(ctx, agent.ID)
				if err != nil {
					return err
				}
				report.CleanupResult = res
			case errors.Is(err, store.ErrNotFound):
			default:
				return err
			}
		}

		for _, prefix := range in.ChannelPrefixes {
			n, err := tx.DeleteChannelsByPrefix(ctx, prefix)
			if err != nil {
				return err
			}
			report.Channels += n
		}
		return nil
	})
	if err != nil {
		return nil, AsError(err)
	}

	slog.InfoContext(ctx, "cleanup complete",
		slog.String("module", "admin"),
		slog.String("agent", in.AgentName),
		slog.String("result", fmt.Sprintf("%+v", report.CleanupResult)),
	)
	return report, nil
}
