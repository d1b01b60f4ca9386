package event

import "github.com/hatsu-chat/backend/internal/model"

type MessageCreateEvent model.Message

func (*MessageCreateEvent) Op() string {
	return "MESSAGE_CREATE"
}

type MessageUpdateEvent model.Message

func (*MessageUpdateEvent) Op() string {
	return "MESSAGE_UPDATE"
}

type MessageDeleteEvent struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

func (*MessageDeleteEvent) Op() string {
	return "MESSAGE_DELETE"
}
