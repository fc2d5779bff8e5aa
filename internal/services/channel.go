package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agentchain/internal/models"
	"agentchain/internal/store"
	"agentchain/internal/utils"

	"gorm.io/datatypes"
)

type ChannelService struct {
	store store.Store
	now   func() time.Time
}

func NewChannelService(st store.Store) *ChannelService {
	return &ChannelService{store: st, now: time.Now}
}

type CreateChannelInput struct {
	Name        string
	DisplayName string
	Description string
}

// Create 创建频道，创建者自动成为订阅者和版主
func (s *ChannelService) Create(ctx context.Context, owner *models.Agent, in CreateChannelInput) (*models.Channel, error) {
	if !utils.IsValidChannelName(in.Name) {
		return nil, ValidationError("Channel name can only contain 3-21 alphanumeric characters.")
	}
	if in.DisplayName == "" {
		return nil, ValidationError("Please enter a display name.")
	}
	if in.Description == "" {
		return nil, ValidationError("Please enter a description.")
	}
	if msg := utils.ValidateContent(in.DisplayName); msg != "" {
		return nil, ValidationError("Display name: " + msg)
	}
	if msg := utils.ValidateContent(in.Description); msg != "" {
		return nil, ValidationError("Description: " + msg)
	}

	now := s.now()
	channel := &models.Channel{
		Name:            in.Name,
		DisplayName:     in.DisplayName,
		Description:     in.Description,
		SubscriberCount: 1,
		OwnerID:         owner.ID,
		OwnerName:       owner.Name,
		Moderators:      datatypes.JSONSlice[string]{owner.ID},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateChannel(ctx, channel); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ConflictError("Channel name already exists.")
		}
		return nil, InternalError(err)
	}

	slog.InfoContext(ctx, "channel created",
		slog.String("module", "channel"),
		slog.String("channel", channel.Name),
		slog.String("owner_id", owner.ID),
	)
	return channel, nil
}

func (s *ChannelService) List(ctx context.Context) ([]models.Channel, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, InternalError(err)
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	return channels, nil
}
