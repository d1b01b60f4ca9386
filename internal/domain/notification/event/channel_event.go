package event

import "github.com/hatsu-chat/backend/internal/model"

type ChannelCreateEvent model.Channel

func (*ChannelCreateEvent) Op() string {
	return "CHANNEL_CREATE"
}

type ChannelUpdateEvent model.Channel

func (*ChannelUpdateEvent) Op() string {
	return "CHANNEL_UPDATE"
}

type ChannelDeleteEvent struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

func (*ChannelDeleteEvent) Op() string {
	return "CHANNEL_DELETE"
}
