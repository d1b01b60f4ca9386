package event

import "github.com/hatsu-chat/backend/internal/model"

type GuildCreateEvent model.Guild

func (*GuildCreateEvent) Op() string {
	return "GUILD_CREATE"
}

type GuildUpdateEvent model.Guild

func (*GuildUpdateEvent) Op() string {
	return "GUILD_UPDATE"
}

type GuildDeleteEvent struct {
	GuildID string `json:"guild_id"`
}

func (*GuildDeleteEvent) Op() string {
	return "GUILD_DELETE"
}

type RoleCreateEvent model.Role

func (*RoleCreateEvent) Op() string {
	return "GUILD_ROLE_CREATE"
}

type RoleUpdateEvent model.Role

func (*RoleUpdateEvent) Op() string {
	return "GUILD_ROLE_UPDATE"
}

type RoleDeleteEvent struct {
	GuildID string `json:"guild_id"`
	RoleID  string `json:"role_id"`
}

func (*RoleDeleteEvent) Op() string {
	return "GUILD_ROLE_DELETE"
}

type InviteCreateEvent model.Invite

func (*InviteCreateEvent) Op() string {
	return "INVITE_CREATE"
}

type InviteDeleteEvent struct {
	GuildID string `json:"guild_id"`
	Code    string `json:"code"`
}

func (*InviteDeleteEvent) Op() string {
	return "INVITE_DELETE"
}
