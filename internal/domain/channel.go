package domain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fatih/structs"
	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/enum"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

type ChannelDomain interface {
	Create(context.Context, *model.CreateChannelRequest) (*model.CreateChannelResponse, error)
	Edit(context.Context, *model.EditChannelRequest) (*model.EditChannelResponse, error)
	Delete(context.Context, *model.DeleteChannelRequest) (*model.DeleteChannelResponse, error)
	GetList(context.Context, *model.GetChannelsRequest) (*model.GetChannelsResponse, error)
}

type channelDomain struct {
	channelRepo repository.ChannelRepository
	roleRepo    repository.RoleRepository
	messageRepo repository.MessageRepository
	guard       *common.Guard
	dispatcher  dispatcher.Dispatcher
	locker      *keylock.Locker
}

func NewChannelDomain(
	channelRepo repository.ChannelRepository,
	roleRepo repository.RoleRepository,
	messageRepo repository.MessageRepository,
	guard *common.Guard,
	dispatcher dispatcher.Dispatcher,
	locker *keylock.Locker,
) ChannelDomain {
	return &channelDomain{
		channelRepo: channelRepo,
		roleRepo:    roleRepo,
		messageRepo: messageRepo,
		guard:       guard,
		dispatcher:  dispatcher,
		locker:      locker,
	}
}

func (d *channelDomain) Create(
	ctx context.Context, req *model.CreateChannelRequest,
) (*model.CreateChannelResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.ManageChannels})
	if err != nil {
		return nil, err
	}

	channelType, err := enum.ToEnum[entity.ChannelType](req.Type)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Invalid channel type: %v", err)
		return nil, errorx.New(errorx.BadRequest, "Invalid channel type %s", req.Type)
	}

	name, err := checkName("name", req.Name)
	if err != nil {
		return nil, err
	}

	if err := checkDescription(req.Description); err != nil {
		return nil, err
	}

	guildID := decision.Guild.ID
	insideOf := sql.NullInt64{}
	if req.InsideOf != 0 {
		if channelType == entity.ChannelCategory {
			return nil, errorx.New(errorx.BadRequest, "A category cannot be inside another channel").
				WithReason(common.ReasonCategoryNotAllowed)
		}

		parent, err := d.channelRepo.GetByID(ctx, req.InsideOf)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, common.StoreError(ctx, err, "get parent channel")
		}

		if err != nil || parent.GuildID != guildID {
			return nil, errorx.New(errorx.NotFound, "Not found parent category")
		}

		if parent.Type != entity.ChannelCategory {
			return nil, errorx.New(errorx.BadRequest, "Parent channel must be a category").
				WithReason(common.ReasonCategoryNotAllowed)
		}

		insideOf = sql.NullInt64{Valid: true, Int64: parent.ID}
	}

	overwrites, err := d.convertOverwrites(ctx, guildID, req.Overwrites)
	if err != nil {
		return nil, err
	}

	channel := &entity.Channel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: newID(ctx)},
		GuildID:       guildID,
		Type:          channelType,
		Name:          name,
		Description:   req.Description,
		InsideOf:      insideOf,
		Position:      req.Position,
		Overwrites:    overwrites,
	}

	unlock := d.locker.Lock(guildLockKey(guildID))
	defer unlock()

	if err := d.channelRepo.InsertOne(ctx, channel); err != nil {
		return nil, common.StoreError(ctx, err, "create channel")
	}

	result := model.ConvertChannel(channel)
	ev := event.ChannelCreateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, guildID, &ev)

	return &model.CreateChannelResponse{Channel: result}, nil
}

type channelPatch struct {
	Name string `structs:"name,omitempty"`
}

func (d *channelDomain) Edit(ctx context.Context, req *model.EditChannelRequest) (*model.EditChannelResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Flag:      entity.ManageChannels,
	})
	if err != nil {
		return nil, err
	}

	patch := channelPatch{}
	if req.Name != "" {
		if patch.Name, err = checkName("name", req.Name); err != nil {
			return nil, err
		}
	}

	changes := structs.Map(patch)
	if req.Description != nil {
		if err := checkDescription(*req.Description); err != nil {
			return nil, err
		}

		changes["description"] = *req.Description
	}
	if req.Position != nil {
		changes["position"] = *req.Position
	}

	if req.Overwrites != nil {
		overwrites, err := d.convertOverwrites(ctx, decision.Guild.ID, *req.Overwrites)
		if err != nil {
			return nil, err
		}

		changes["overwrites"] = overwrites
	}

	if len(changes) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Nothing to update")
	}

	channelID := decision.Channel.ID
	unlock := d.locker.Lock(channelLockKey(channelID))
	defer unlock()

	if err := d.channelRepo.UpdateOne(ctx, repository.Filter{"id": channelID}, changes); err != nil {
		return nil, common.StoreError(ctx, err, "update channel")
	}

	channel, err := d.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get channel")
	}

	result := model.ConvertChannel(channel)
	ev := event.ChannelUpdateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, channel.GuildID, &ev)

	return &model.EditChannelResponse{Channel: result}, nil
}

// Delete removes the channel with its messages. Channels inside a deleted
// category are moved to the top level.
func (d *channelDomain) Delete(
	ctx context.Context, req *model.DeleteChannelRequest,
) (*model.DeleteChannelResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Flag:      entity.ManageChannels,
	})
	if err != nil {
		return nil, err
	}

	guildID, channelID := decision.Guild.ID, decision.Channel.ID
	unlock := d.locker.LockMany(guildLockKey(guildID), channelLockKey(channelID))
	defer unlock()

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if _, err := d.messageRepo.DeleteMany(ctx, repository.Filter{"channel_id": channelID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete messages of channel")
	}

	children, err := d.channelRepo.Find(ctx, repository.Filter{"inside_of": channelID}).All()
	if err != nil {
		return nil, common.StoreError(ctx, err, "get children of channel")
	}

	for i := range children {
		err := d.channelRepo.UpdateOne(ctx,
			repository.Filter{"id": children[i].ID},
			repository.Patch{"inside_of": nil},
		)
		if err != nil {
			return nil, common.StoreError(ctx, err, "detach child channel")
		}

		children[i].InsideOf = sql.NullInt64{}
	}

	if err := d.channelRepo.DeleteOne(ctx, repository.Filter{"id": channelID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete channel")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit channel deletion")
	}

	for i := range children {
		ev := event.ChannelUpdateEvent(model.ConvertChannel(&children[i]))
		dispatchToGuild(ctx, d.dispatcher, guildID, &ev)
	}

	dispatchToGuild(ctx, d.dispatcher, guildID, &event.ChannelDeleteEvent{
		GuildID:   model.FormatID(guildID),
		ChannelID: model.FormatID(channelID),
	})

	return &model.DeleteChannelResponse{}, nil
}

// GetList returns the channels the actor can view.
func (d *channelDomain) GetList(
	ctx context.Context, req *model.GetChannelsRequest,
) (*model.GetChannelsResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}

	channels, err := d.channelRepo.GetByGuildID(ctx, decision.Guild.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get channels")
	}

	result := []model.Channel{}
	for _, c := range visibleChannels(decision, channels) {
		c := c
		result = append(result, model.ConvertChannel(&c))
	}

	return &model.GetChannelsResponse{Channels: result}, nil
}

// convertOverwrites validates overwrites. Every role overwrite must reference a
// role of the guild and a subject can appear only once.
func (d *channelDomain) convertOverwrites(
	ctx context.Context, guildID int64, overwrites []model.Overwrite,
) (entity.Array[entity.PermissionOverwrite], error) {
	result := entity.Array[entity.PermissionOverwrite]{}
	seen := map[string]bool{}
	roleIDs := []int64{}

	for _, o := range overwrites {
		kind, err := enum.ToEnum[entity.OverwriteKind](o.Kind)
		if err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid overwrite kind %s", o.Kind)
		}

		id, err := model.ParseID(o.ID)
		if err != nil || id <= 0 {
			return nil, errorx.New(errorx.BadRequest, "Invalid overwrite id %s", o.ID)
		}

		key := fmt.Sprintf("%s:%d", kind, id)
		if seen[key] {
			return nil, errorx.New(errorx.BadRequest, "Duplicated overwrite for %s", key)
		}
		seen[key] = true

		if kind == entity.OverwriteRole {
			roleIDs = append(roleIDs, id)
		}

		result = append(result, entity.PermissionOverwrite{
			ID:    id,
			Kind:  kind,
			Value: entity.PermissionFlag(o.Value) & entity.KnownPermissions,
		})
	}

	if len(roleIDs) > 0 {
		roles, err := d.roleRepo.GetByIDs(ctx, guildID, roleIDs)
		if err != nil {
			return nil, common.StoreError(ctx, err, "get roles of overwrites")
		}

		if len(roles) != len(roleIDs) {
			return nil, errorx.New(errorx.NotFound, "Not found role of overwrite")
		}
	}

	return result, nil
}
