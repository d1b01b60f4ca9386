package model

import (
	"strconv"
	"time"

	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/hatsu-chat/backend/pkg/enum"
)

const DefaultTimeLayout string = time.RFC3339Nano

func FormatID(id int64) string {
	if id == 0 {
		return ""
	}

	return strconv.FormatInt(id, 10)
}

func FormatIDs(ids []int64) []string {
	result := []string{}
	for _, id := range ids {
		result = append(result, FormatID(id))
	}

	return result
}

func ParseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// ConvertUser converts a user. Email and block list are included only if
// includeSensitive is set, which must only happen for the user itself.
func ConvertUser(user *entity.User, includeSensitive bool) User {
	if user == nil {
		return User{}
	}

	u := User{
		ID:            FormatID(user.ID),
		Username:      user.Username,
		Discriminator: user.Discriminator,
		Bio:           user.Bio,
		Verified:      user.Verified,
		EarlyAdopter:  user.EarlyAdopter,
		Bot:           user.Bot,
		System:        user.System,
		CreatedAt:     user.CreatedAt.Format(DefaultTimeLayout),
	}

	if includeSensitive {
		u.Email = user.Email.String
		u.BlockedUserIDs = FormatIDs(user.BlockedUserIDs)
	}

	return u
}

func ConvertMemberUser(profile entity.MemberProfile) MemberUser {
	return MemberUser{
		ID:            FormatID(profile.ID),
		Username:      profile.Username,
		Discriminator: profile.Discriminator,
		Bio:           profile.Bio,
		Bot:           profile.Bot,
		System:        profile.System,
		EarlyAdopter:  profile.EarlyAdopter,
	}
}

func ConvertGuild(guild *entity.Guild, roles []entity.Role, channels []entity.Channel) Guild {
	if guild == nil {
		return Guild{}
	}

	g := Guild{
		ID:                FormatID(guild.ID),
		Name:              guild.Name,
		Description:       guild.Description,
		OwnerID:           FormatID(guild.OwnerID),
		DefaultPermission: uint64(guild.DefaultPermission),
		CreatedAt:         guild.CreatedAt.Format(DefaultTimeLayout),
	}

	for i := range roles {
		g.Roles = append(g.Roles, ConvertRole(&roles[i]))
	}

	for i := range channels {
		g.Channels = append(g.Channels, ConvertChannel(&channels[i]))
	}

	return g
}

func ConvertRole(role *entity.Role) Role {
	if role == nil {
		return Role{}
	}

	return Role{
		ID:          FormatID(role.ID),
		GuildID:     FormatID(role.GuildID),
		Name:        role.Name,
		Color:       role.Color,
		Position:    role.Position,
		Permissions: uint64(role.Permissions),
	}
}

func ConvertMember(member *entity.Member) Member {
	if member == nil {
		return Member{}
	}

	return Member{
		GuildID:  FormatID(member.GuildID),
		User:     ConvertMemberUser(member.Profile),
		Nick:     member.Nick,
		RoleIDs:  FormatIDs(member.RoleIDs),
		Owner:    member.Owner,
		JoinedAt: member.JoinedAt.Format(DefaultTimeLayout),
	}
}

func ConvertChannel(channel *entity.Channel) Channel {
	if channel == nil {
		return Channel{}
	}

	c := Channel{
		ID:          FormatID(channel.ID),
		GuildID:     FormatID(channel.GuildID),
		Type:        enum.ToString(channel.Type),
		Name:        channel.Name,
		Description: channel.Description,
		Position:    channel.Position,
		Overwrites:  []Overwrite{},
	}

	if channel.InsideOf.Valid {
		c.InsideOf = FormatID(channel.InsideOf.Int64)
	}

	for _, o := range channel.Overwrites {
		c.Overwrites = append(c.Overwrites, Overwrite{
			ID:    FormatID(o.ID),
			Kind:  string(o.Kind),
			Value: uint64(o.Value),
		})
	}

	return c
}

func ConvertInvite(invite *entity.Invite) Invite {
	if invite == nil {
		return Invite{}
	}

	i := Invite{
		Code:      invite.Code,
		GuildID:   FormatID(invite.GuildID),
		CreatorID: FormatID(invite.CreatorID),
		MaxUses:   invite.MaxUses,
		Uses:      invite.Uses,
		CreatedAt: invite.CreatedAt.Format(DefaultTimeLayout),
	}

	if invite.ExpiresAt.Valid {
		i.ExpiresAt = invite.ExpiresAt.Time.Format(DefaultTimeLayout)
	}

	return i
}

func ConvertMessage(message *entity.Message) Message {
	if message == nil {
		return Message{}
	}

	m := Message{
		ID:        FormatID(message.ID),
		GuildID:   FormatID(message.GuildID),
		ChannelID: FormatID(message.ChannelID),
		Author:    ConvertMemberUser(message.Author),
		Content:   message.Content,
		Embeds:    message.Embeds,
		TTS:       message.TTS,
		CreatedAt: message.CreatedAt.Format(DefaultTimeLayout),
	}

	if m.Embeds == nil {
		m.Embeds = []entity.Embed{}
	}

	if message.EditedAt.Valid {
		m.EditedAt = message.EditedAt.Time.Format(DefaultTimeLayout)
	}

	return m
}
