package domain

import (
	"context"
	"errors"

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
	"golang.org/x/exp/slices"
)

type RoleDomain interface {
	Create(context.Context, *model.CreateRoleRequest) (*model.CreateRoleResponse, error)
	Update(context.Context, *model.UpdateRoleRequest) (*model.UpdateRoleResponse, error)
	Delete(context.Context, *model.DeleteRoleRequest) (*model.DeleteRoleResponse, error)
	GetList(context.Context, *model.GetRolesRequest) (*model.GetRolesResponse, error)
	Assign(context.Context, *model.AssignRoleRequest) (*model.AssignRoleResponse, error)
	Unassign(context.Context, *model.UnassignRoleRequest) (*model.UnassignRoleResponse, error)
}

type roleDomain struct {
	roleRepo    repository.RoleRepository
	memberRepo  repository.MemberRepository
	channelRepo repository.ChannelRepository
	guard       *common.Guard
	dispatcher  dispatcher.Dispatcher
	locker      *keylock.Locker
}

func NewRoleDomain(
	roleRepo repository.RoleRepository,
	memberRepo repository.MemberRepository,
	channelRepo repository.ChannelRepository,
	guard *common.Guard,
	dispatcher dispatcher.Dispatcher,
	locker *keylock.Locker,
) RoleDomain {
	return &roleDomain{
		roleRepo:    roleRepo,
		memberRepo:  memberRepo,
		channelRepo: channelRepo,
		guard:       guard,
		dispatcher:  dispatcher,
		locker:      locker,
	}
}

func (d *roleDomain) Create(ctx context.Context, req *model.CreateRoleRequest) (*model.CreateRoleResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.ManageRoles})
	if err != nil {
		return nil, err
	}

	name, err := checkName("name", req.Name)
	if err != nil {
		return nil, err
	}

	if err := checkRoleColor(req.Color); err != nil {
		return nil, err
	}

	permissions := entity.PermissionFlag(req.Permissions) & entity.KnownPermissions
	if err := checkRoleChange(decision, req.Position, permissions); err != nil {
		return nil, err
	}

	role := &entity.Role{
		SnowFlakeBase: entity.SnowFlakeBase{ID: newID(ctx)},
		GuildID:       decision.Guild.ID,
		Name:          name,
		Color:         req.Color,
		Position:      req.Position,
		Permissions:   permissions,
	}

	unlock := d.locker.Lock(guildLockKey(role.GuildID))
	defer unlock()

	if err := d.roleRepo.InsertOne(ctx, role); err != nil {
		return nil, common.StoreError(ctx, err, "create role")
	}

	result := model.ConvertRole(role)
	ev := event.RoleCreateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, role.GuildID, &ev)

	return &model.CreateRoleResponse{Role: result}, nil
}

type rolePatch struct {
	Name string `structs:"name,omitempty"`
}

func (d *roleDomain) Update(ctx context.Context, req *model.UpdateRoleRequest) (*model.UpdateRoleResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.ManageRoles})
	if err != nil {
		return nil, err
	}

	role, err := d.getRole(ctx, decision.Guild.ID, req.RoleID)
	if err != nil {
		return nil, err
	}

	if !common.CanManageRole(decision.Guild, decision.Member, decision.Roles, role.Position) {
		return nil, errorx.New(errorx.PermissionDenied, "Cannot manage a role above your highest role").
			WithReason(common.ReasonRoleHierarchy)
	}

	patch := rolePatch{}
	if req.Name != "" {
		if patch.Name, err = checkName("name", req.Name); err != nil {
			return nil, err
		}
	}

	changes := structs.Map(patch)
	position, permissions := role.Position, role.Permissions

	if req.Color != nil {
		if err := checkRoleColor(*req.Color); err != nil {
			return nil, err
		}

		changes["color"] = *req.Color
	}

	if req.Position != nil {
		position = *req.Position
		changes["position"] = position
	}

	if req.Permissions != nil {
		permissions = entity.PermissionFlag(*req.Permissions) & entity.KnownPermissions
		changes["permissions"] = permissions
	}

	if len(changes) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Nothing to update")
	}

	if err := checkRoleChange(decision, position, permissions); err != nil {
		return nil, err
	}

	unlock := d.locker.Lock(roleLockKey(role.ID))
	defer unlock()

	if err := d.roleRepo.UpdateOne(ctx, repository.Filter{"id": role.ID}, changes); err != nil {
		return nil, common.StoreError(ctx, err, "update role")
	}

	role, err = d.getRole(ctx, decision.Guild.ID, role.ID)
	if err != nil {
		return nil, err
	}

	result := model.ConvertRole(role)
	ev := event.RoleUpdateEvent(result)
	dispatchToGuild(ctx, d.dispatcher, role.GuildID, &ev)

	return &model.UpdateRoleResponse{Role: result}, nil
}

// Delete removes the role, unassigns it from every member and drops the
// overwrites referencing it.
func (d *roleDomain) Delete(ctx context.Context, req *model.DeleteRoleRequest) (*model.DeleteRoleResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID, Flag: entity.ManageRoles})
	if err != nil {
		return nil, err
	}

	role, err := d.getRole(ctx, decision.Guild.ID, req.RoleID)
	if err != nil {
		return nil, err
	}

	if !common.CanManageRole(decision.Guild, decision.Member, decision.Roles, role.Position) {
		return nil, errorx.New(errorx.PermissionDenied, "Cannot manage a role above your highest role").
			WithReason(common.ReasonRoleHierarchy)
	}

	guildID := decision.Guild.ID
	unlock := d.locker.LockMany(guildLockKey(guildID), roleLockKey(role.ID))
	defer unlock()

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	updatedMembers := []entity.Member{}
	members := d.memberRepo.Find(ctx, repository.Filter{"guild_id": guildID})
	for members.Next() {
		member := *members.Value()
		index := slices.Index(member.RoleIDs, role.ID)
		if index < 0 {
			continue
		}

		member.RoleIDs = slices.Delete(append(entity.Array[int64]{}, member.RoleIDs...), index, index+1)
		updatedMembers = append(updatedMembers, member)
	}

	if err := members.Err(); err != nil {
		return nil, common.StoreError(ctx, err, "get members of guild")
	}

	for _, m := range updatedMembers {
		err := d.memberRepo.UpdateOne(ctx,
			repository.Filter{"guild_id": guildID, "user_id": m.UserID},
			repository.Patch{"role_ids": m.RoleIDs},
		)
		if err != nil {
			return nil, common.StoreError(ctx, err, "unassign deleted role")
		}
	}

	channels, err := d.channelRepo.GetByGuildID(ctx, guildID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get channels of guild")
	}

	updatedChannels := []entity.Channel{}
	for _, c := range channels {
		overwrites := entity.Array[entity.PermissionOverwrite]{}
		for _, o := range c.Overwrites {
			if o.Kind != entity.OverwriteRole || o.ID != role.ID {
				overwrites = append(overwrites, o)
			}
		}

		if len(overwrites) == len(c.Overwrites) {
			continue
		}

		err := d.channelRepo.UpdateOne(ctx, repository.Filter{"id": c.ID}, repository.Patch{"overwrites": overwrites})
		if err != nil {
			return nil, common.StoreError(ctx, err, "drop overwrites of deleted role")
		}

		c.Overwrites = overwrites
		updatedChannels = append(updatedChannels, c)
	}

	if err := d.roleRepo.DeleteOne(ctx, repository.Filter{"id": role.ID}); err != nil {
		return nil, common.StoreError(ctx, err, "delete role")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, common.StoreError(ctx, err, "commit role deletion")
	}

	dispatchToGuild(ctx, d.dispatcher, guildID, &event.RoleDeleteEvent{
		GuildID: model.FormatID(guildID),
		RoleID:  model.FormatID(role.ID),
	})

	for i := range updatedMembers {
		ev := event.MemberUpdateEvent(model.ConvertMember(&updatedMembers[i]))
		dispatchToGuild(ctx, d.dispatcher, guildID, &ev)
	}

	for i := range updatedChannels {
		ev := event.ChannelUpdateEvent(model.ConvertChannel(&updatedChannels[i]))
		dispatchToGuild(ctx, d.dispatcher, guildID, &ev)
	}

	return &model.DeleteRoleResponse{}, nil
}

func (d *roleDomain) GetList(ctx context.Context, req *model.GetRolesRequest) (*model.GetRolesResponse, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}

	roles, err := d.roleRepo.GetByGuildID(ctx, decision.Guild.ID)
	if err != nil {
		return nil, common.StoreError(ctx, err, "get roles")
	}

	result := []model.Role{}
	for i := range roles {
		result = append(result, model.ConvertRole(&roles[i]))
	}

	return &model.GetRolesResponse{Roles: result}, nil
}

func (d *roleDomain) Assign(ctx context.Context, req *model.AssignRoleRequest) (*model.AssignRoleResponse, error) {
	member, err := d.changeMemberRoles(ctx, req.GuildID, req.UserID, req.RoleID, true)
	if err != nil {
		return nil, err
	}

	return &model.AssignRoleResponse{Member: model.ConvertMember(member)}, nil
}

func (d *roleDomain) Unassign(ctx context.Context, req *model.UnassignRoleRequest) (*model.UnassignRoleResponse, error) {
	member, err := d.changeMemberRoles(ctx, req.GuildID, req.UserID, req.RoleID, false)
	if err != nil {
		return nil, err
	}

	return &model.UnassignRoleResponse{Member: model.ConvertMember(member)}, nil
}

// changeMemberRoles adds or removes a role of a member. It is a no-op if the
// member already is in the requested state.
func (d *roleDomain) changeMemberRoles(
	ctx context.Context, guildID, userID, roleID int64, assign bool,
) (*entity.Member, error) {
	decision, err := d.guard.Require(ctx, common.Target{GuildID: guildID, Flag: entity.ManageRoles})
	if err != nil {
		return nil, err
	}

	role, err := d.getRole(ctx, decision.Guild.ID, roleID)
	if err != nil {
		return nil, err
	}

	if !common.CanManageRole(decision.Guild, decision.Member, decision.Roles, role.Position) {
		return nil, errorx.New(errorx.PermissionDenied, "Cannot manage a role above your highest role").
			WithReason(common.ReasonRoleHierarchy)
	}

	unlock := d.locker.Lock(memberLockKey(decision.Guild.ID, userID))
	defer unlock()

	member, err := d.memberRepo.Get(ctx, decision.Guild.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found member")
		}

		return nil, common.StoreError(ctx, err, "get member")
	}

	index := slices.Index(member.RoleIDs, role.ID)
	if (index >= 0) == assign {
		return member, nil
	}

	roleIDs := append(entity.Array[int64]{}, member.RoleIDs...)
	if assign {
		roleIDs = append(roleIDs, role.ID)
	} else {
		roleIDs = slices.Delete(roleIDs, index, index+1)
	}

	err = d.memberRepo.UpdateOne(ctx,
		repository.Filter{"guild_id": member.GuildID, "user_id": member.UserID},
		repository.Patch{"role_ids": roleIDs},
	)
	if err != nil {
		return nil, common.StoreError(ctx, err, "update roles of member")
	}

	member.RoleIDs = roleIDs
	ev := event.MemberUpdateEvent(model.ConvertMember(member))
	dispatchToGuild(ctx, d.dispatcher, member.GuildID, &ev)

	return member, nil
}

func (d *roleDomain) getRole(ctx context.Context, guildID, roleID int64) (*entity.Role, error) {
	role, err := d.roleRepo.FindOne(ctx, repository.Filter{"id": roleID, "guild_id": guildID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found role")
		}

		return nil, common.StoreError(ctx, err, "get role")
	}

	return role, nil
}

// checkRoleChange rejects a role a non-owner could not hold: it must stay
// below the highest role of the actor and grant nothing the actor lacks.
func checkRoleChange(decision common.Decision, position int, permissions entity.PermissionFlag) error {
	if decision.IsOwner() {
		return nil
	}

	if !common.CanManageRole(decision.Guild, decision.Member, decision.Roles, position) {
		return errorx.New(errorx.PermissionDenied, "Cannot manage a role above your highest role").
			WithReason(common.ReasonRoleHierarchy)
	}

	if permissions&^decision.Permission != 0 {
		return errorx.New(errorx.PermissionDenied, "Cannot grant permissions you do not have").
			WithReason(common.ReasonMissingPermission)
	}

	return nil
}

func checkRoleColor(color int) error {
	if color < 0 || color > maxEmbedColor {
		return errorx.New(errorx.BadRequest, "Invalid color")
	}

	return nil
}
