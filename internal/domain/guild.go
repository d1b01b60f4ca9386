package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fatih/structs"
	"github.com/hatsu-chat/backend/internal/common"
	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/internal/model"
	"github.com/hatsu-chat/backend/internal/repository"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/keylock"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

const (
	defaultCategoryName = "General"
	defaultChannelName  = "general"
)

type GuildDomain interface {
	Create(context.Context, *model.CreateGuildRequest) (*model.CreateGuildResponse, error)
	Get(context.Context, *model.GetGuildRequest) (*model.GetGuildResponse, error)
	GetPreview(context.Context, *model.GetGuildPreviewRequest) (*model.GetGuildPreviewResponse, error)
	Edit(context.Context, *model.EditGuildRequest) (*model.EditGuildResponse, error)
	Delete(context.Context, *model.DeleteGuildRequest) (*model.DeleteGuildResponse, error)
	GetMembers(context.Context, *model.GetMembersRequest) (*model.GetMembersResponse, error)
	Leave(context.Context, *model.LeaveGuildRequest) (*model.LeaveGuildResponse, error)
	Kick(context.Context, *model.KickMemberRequest) (*model.KickMemberResponse, error)
}

type guildDomain struct {
	guildRepo   repository.GuildRepository
	channelRepo repository.ChannelRepository
	memberRepo  repository.MemberRepository
	roleRepo    repository.RoleRepository
	inviteRepo  repository.InviteRepository
	messageRepo repository.MessageRepository
	guard       *common.Guard
	dispatcher  dispatcher.Dispatcher
	locker      *keylock.Locker
}

func NewGuildDomain(
	guildRepo repository.GuildRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	roleRepo repository.RoleRepository,
	inviteRepo repository.InviteRepository,
	messageRepo repository.MessageRepository,
	guard *common.Guard,
	dispatcher dispatcher.Dispatcher,
	locker *keylock.Locker,
) GuildDomain {
	return &guildDomain{
		guildRepo:   guildRepo,
		channelRepo: channelRepo,
		memberRepo:  memberRepo,
		roleRepo:    roleRepo,
		inviteRepo:  inviteRepo,
		messageRepo: messageRepo,
		guard:       guard,
		dispatcher:  dispatcher,
		locker:      locker,
	}
}

// Create provisions the guild with its default category, default text channel
// and the owner membership in a single transaction.
func (d *guildDomain) Create(
	ctx context.Context, req *model.CreateGuildRequest,
) (*model.CreateGuildResponse, error) {
	user, err := d.guard.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if user.Bot {
		return nil, errorx.New(errorx.PermissionDenied, "Bots cannot create guilds").
			WithReason(common.ReasonBotForbidden)
	}

	name, err := checkName("name", req.Name)
	if err != nil {
		return nil, err
	}

	if err := checkDescription(req.Description); err != nil {
		return nil, err
	}

	guild := &entity.Guild{
		SnowFlakeBase:     entity.SnowFlakeBase{ID: newID(ctx)},
		Name:              name,
		Description:       req.Description,
		OwnerID:           user.ID,
		DefaultPermission: entity.DefaultPermission,
	}

	category := entity.Channel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: newID(ctx)},
		GuildID:       guild.ID,
		Type:          entity.ChannelCategory,
		Name:          defaultCategoryName,
		Overwrites:    entity.Array[entity.PermissionOverwrite]{},
	}

	channels := []entity.Channel{
		category,
		{
			SnowFlakeBase: entity.SnowFlakeBase{ID: newID(ctx)},
			GuildID:       guild.ID,
			Type:          entity.ChannelText,
			Name:          defaultChannelName,
			InsideOf:      sql.NullInt64{Valid: true, Int64: category.ID},
			Overwrites:    entity.Array[entity.PermissionOverwrite]{},
		},
	}

	member := &entity.Member{
		GuildID:  guild.ID,
		UserID:   user.ID,
		Profile:  entity.NewMemberProfile(user),
		RoleIDs:  entity.Array[int64]{},
		Owner:    true,
		JoinedAt: time.Now(),
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.guildRepo.InsertOne(ctx, guild); err != nil {
		return nil, common.StoreError(ctx, err, "create guild")
	}

	if err := d.channelRepo.InsertMany(ctx, channels); err != nil {
		return nil, common.StoreError(ctx, err, "create default channels")
	}

	if err := d.memberRepo.InsertOne(ctx, member); err != nil {
		return nil, common.StoreError(ctx, err, "create owner member")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit guild")
	}

	result := model.ConvertGuild(guild, nil, channels)

	joinGuild(ctx, d.dispatcher, guild.ID, user.ID)
	ev := event.GuildCreateEvent(result)
	dispatchToUser(ctx, d.dispatcher, user.ID, &ev)

	return &model.CreateGuildResponse{Guild: result}, nil
}

func (d *guildDomain) Get(ctx context.Context, req *model.GetGuildRequest) (*model.GetGuildResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}

	roles, err := d.roleRepo.GetByGuildID(ctx, decision.Guild.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get roles")
	}

	channels, err := d.channelRepo.GetByGuildID(ctx, decision.Guild.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get channels")
	}

	return &model.GetGuildResponse{
		Guild: model.ConvertGuild(decision.Guild, roles, visibleChannels(decision, channels)),
	}, nil
}

// GetPreview is public, no membership is needed.
func (d *guildDomain) GetPreview(
	ctx context.Context, req *model.GetGuildPreviewRequest,
) (*model.GetGuildPreviewResponse, error) {
	guild, err := d.guildRepo.GetByID(ctx, req.GuildID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found guild")
		}

		return nil, common.StoreError(ctx, err, "get guild")
	}

	channels, err := d.channelRepo.GetByGuildID(ctx, guild.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get channels")
	}

	count, err := d.memberRepo.Count(ctx, repository.Filter{"guild_id": guild.ID})
	if err != nil {
		return nil, common.StoreError(ctx, err, "count members")
	}

	return &model.GetGuildPreviewResponse{
		Guild:       model.ConvertGuild(guild, nil, channels),
		MemberCount: count,
	}, nil
}

type guildPatch struct {
	Name string `structs:"name,omitempty"`
}

func (d *guildDomain) Edit(ctx context.Context, req *model.EditGuildRequest) (*model.EditGuildResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.ManageGuild})
	if err != nil {
		return nil, err
	}

	patch := guildPatch{}
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

		// An empty description clears it.
		changes["description"] = *req.Description
	}
	if len(changes) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Nothing to update")
	}

	unlock := d.locker.Lock(guildLockKey(decision.Guild.ID))
	defer unlock()

	err = d.guildRepo.UpdateOne(ctx, repository.Filter{"id": decision.Guild.ID}, changes)
	if err != nil {
		return nil, common.StoreError(ctx, err, "update guild")
	}

	guild, err := d.guildRepo.GetByID(ctx, decision.Guild.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get guild")
	}

	result := model.ConvertGuild(guild, nil, nil)
	ev := event.GuildUpdateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, guild.ID, &ev)

	return &model.EditGuildResponse{Guild: result}, nil
}

// Delete removes the guild with everything it owns. Only the owner can delete
// a guild.
func (d *guildDomain) Delete(ctx context.Context, req *model.DeleteGuildRequest) (*model.DeleteGuildResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, OwnerOnly: true})
	if err != nil {
		return nil, err
	}

	guildID := decision.Guild.ID
	unlock := d.locker.Lock(guildLockKey(guildID))
	defer unlock()

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	filter := repository.Filter{"guild_id": guildID}
	if _, err := d.messageRepo.DeleteMany(ctx, filter); err != nil {
		return nil, common.StoreError(ctx, err, "delete messages of guild")
	}

	if _, err := d.inviteRepo.DeleteMany(ctx, filter); err != nil {
		return nil, common.StoreError(ctx, err, "delete invites of guild")
	}

	if _, err := d.channelRepo.DeleteMany(ctx, filter); err != nil {
		return nil, common.StoreError(ctx, err, "delete channels of guild")
	}

	if _, err := d.roleRepo.DeleteMany(ctx, filter); err != nil {
		return nil, common.StoreError(ctx, err, "delete roles of guild")
	}

	if _, err := d.memberRepo.DeleteMany(ctx, filter); err != nil {
		return nil, common.StoreError(ctx, err, "delete members of guild")
	}

	if err := d.guildRepo.DeleteOne(ctx, repository.Filter{"id": guildID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete guild")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit guild deletion")
	}

	dispatchToGuild(ctx, d.dispatcher, guildID, &event.GuildDeleteEvent{GuildID: model.FormatID(guildID)})
	if err := d.dispatcher.Drop(ctx, guildID); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot drop hub of guild %d: %v", guildID, err)
	}

	return &model.DeleteGuildResponse{}, nil
}

func (d *guildDomain) GetMembers(
	ctx context.Context, req *model.GetMembersRequest,
) (*model.GetMembersResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}

	members, err := d.memberRepo.Find(ctx,
		repository.Filter{"guild_id": decision.Guild.ID},
		repository.OrderBy("joined_at", false),
	).All()
	if err != nil {
		return nil, common.StoreError(ctx, err, "get members")
	}

	result := []model.Member{}
	for i := range members {
		result = append(result, model.ConvertMember(&members[i]))
	}

	return &model.GetMembersResponse{Members: result}, nil
}

func (d *guildDomain) Leave(ctx context.Context, req *model.LeaveGuildRequest) (*model.LeaveGuildResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}

	if decision.IsOwner() {
		return nil, errorx.New(errorx.PermissionDenied, "Owner cannot leave the guild").
			WithReason(common.ReasonOwnerCannotLeave)
	}

	guildID, userID := decision.Guild.ID, decision.User.ID
	unlock := d.locker.Lock(memberLockKey(guildID, userID))
	defer unlock()

	err = d.memberRepo.DeleteOne(ctx, repository.Filter{"guild_id": guildID, "user_id": userID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.LeaveGuildResponse{}, nil
		}

		return nil, common.StoreError(ctx, err, "delete member")
	}

	dispatchToGuild(ctx, d.dispatcher, guildID, &event.MemberLeaveEvent{
		GuildID: model.FormatID(guildID),
		UserID:  model.FormatID(userID),
	})
	leaveGuild(ctx, d.dispatcher, guildID, userID)

	return &model.LeaveGuildResponse{}, nil
}

// Kick removes another member. The owner cannot be kicked, and a non-owner can
// only kick members whose highest role is below their own.
func (d *guildDomain) Kick(ctx context.Context, req *model.KickMemberRequest) (*model.KickMemberResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.KickMembers})
	if err != nil {
		return nil, err
	}

	if req.UserID == decision.User.ID {
		return nil, errorx.New(errorx.BadRequest, "Cannot kick yourself, leave the guild instead")
	}

	guildID := decision.Guild.ID
	target, err := d.memberRepo.Get(ctx, guildID, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found member")
		}

		return nil, common.StoreError(ctx, err, "get member")
	}

	if common.IsOwner(decision.Guild, target.UserID) {
		return nil, errorx.New(errorx.PermissionDenied, "Cannot kick the owner").
			WithReason(common.ReasonRoleHierarchy)
	}

	if !decision.IsOwner() {
		targetRoles, err := d.roleRepo.GetByIDs(ctx, guildID, target.RoleIDs)
		if err != nil {
			return nil, common.StoreError(ctx, err, "get roles of member")
		}

		targetHighest := common.HighestPosition(target, targetRoles)
		if !common.CanManageRole(decision.Guild, decision.Member, decision.Roles, targetHighest) {
			return nil, errorx.New(errorx.PermissionDenied, "Cannot kick a member with a higher role").
				WithReason(common.ReasonRoleHierarchy)
		}
	}

	unlock := d.locker.Lock(memberLockKey(guildID, target.UserID))
	defer unlock()

	err = d.memberRepo.DeleteOne(ctx, repository.Filter{"guild_id": guildID, "user_id": target.UserID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found member")
		}

		return nil, common.StoreError(ctx, err, "delete member")
	}

	dispatchToGuild(ctx, d.dispatcher, guildID, &event.MemberRemoveEvent{
		GuildID: model.FormatID(guildID),
		UserID:  model.FormatID(target.UserID),
	})
	leaveGuild(ctx, d.dispatcher, guildID, target.UserID)

	return &model.KickMemberResponse{}, nil
}

// visibleChannels keeps the channels the actor of decision can view.
func visibleChannels(decision common.Decision, channels []entity.Channel) []entity.Channel {
	result := []entity.Channel{}
	for i := range channels {
		permission := common.EffectivePermission(decision.Guild, decision.Member, decision.Roles, &channels[i])
		if entity.HasFlag(permission, entity.ViewChannels) {
			result = append(result, channels[i])
		}
	}

	return result
}
