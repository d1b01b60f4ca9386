package common

import (
	"math"

	"github.com/hatsu-chat/backend/internal/entity"
	"golang.org/x/exp/slices"

	mathUtil "github.com/pkg/math"
)

// BasePermission combines every role assigned to the member. A member without
// any resolvable role gets the default permission of the guild.
func BasePermission(guild *entity.Guild, member *entity.Member, roles []entity.Role) entity.PermissionFlag {
	var permission entity.PermissionFlag
	matched := false
	for _, role := range roles {
		if role.GuildID == guild.ID && slices.Contains(member.RoleIDs, role.ID) {
			permission |= role.Permissions
			matched = true
		}
	}

	if !matched {
		return guild.DefaultPermission
	}

	return permission
}

// EffectivePermission resolves the permission of member in channel. The owner
// has every permission. Otherwise a user overwrite of the channel replaces the
// base permission, then role overwrites (combined together) do, then the base
// permission applies. A nil channel resolves the guild level permission.
func EffectivePermission(
	guild *entity.Guild,
	member *entity.Member,
	roles []entity.Role,
	channel *entity.Channel,
) entity.PermissionFlag {
	if IsOwner(guild, member.UserID) {
		return entity.AllPermissions
	}

	base := BasePermission(guild, member, roles)
	if channel == nil {
		return base
	}

	var roleOverwrite entity.PermissionFlag
	roleMatched := false
	for _, overwrite := range channel.Overwrites {
		switch overwrite.Kind {
		case entity.OverwriteUser:
			if overwrite.ID == member.UserID {
				return overwrite.Value
			}

		case entity.OverwriteRole:
			if slices.Contains(member.RoleIDs, overwrite.ID) {
				roleOverwrite |= overwrite.Value
				roleMatched = true
			}
		}
	}

	if roleMatched {
		return roleOverwrite
	}

	return base
}

func IsOwner(guild *entity.Guild, userID int64) bool {
	return guild.OwnerID == userID
}

// HighestPosition returns the highest position among the roles assigned to
// member, or math.MinInt if the member has no role.
func HighestPosition(member *entity.Member, roles []entity.Role) int {
	highest := math.MinInt
	for _, role := range roles {
		if slices.Contains(member.RoleIDs, role.ID) {
			highest = mathUtil.MaxInt(highest, role.Position)
		}
	}

	return highest
}

// CanManageRole reports whether member is allowed to create, edit, assign or
// delete a role at position. Only roles strictly below the highest role of
// the member can be managed.
func CanManageRole(
	guild *entity.Guild,
	member *entity.Member,
	memberRoles []entity.Role,
	position int,
) bool {
	if IsOwner(guild, member.UserID) {
		return true
	}

	return HighestPosition(member, memberRoles) > position
}
