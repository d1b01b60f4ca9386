package event

import "github.com/hatsu-chat/backend/internal/model"

type MemberJoinEvent model.Member

func (*MemberJoinEvent) Op() string {
	return "MEMBER_JOIN"
}

type MemberUpdateEvent model.Member

func (*MemberUpdateEvent) Op() string {
	return "MEMBER_UPDATE"
}

type MemberLeaveEvent struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

func (*MemberLeaveEvent) Op() string {
	return "MEMBER_LEAVE"
}

type MemberRemoveEvent struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

func (*MemberRemoveEvent) Op() string {
	return "MEMBER_REMOVE"
}
