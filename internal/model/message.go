package model

type CreateMessageRequest struct {
	GuildID   int64            `json:"guild_id,string"`
	ChannelID int64            `json:"channel_id,string"`
	Content   string           `json:"content"`
	Embeds    []map[string]any `json:"embeds"`

	// TTS must be a boolean if present.
	TTS any `json:"tts"`
}

type CreateMessageResponse struct {
	Message Message `json:"message"`
}

type EditMessageRequest struct {
	GuildID   int64             `json:"guild_id,string"`
	ChannelID int64             `json:"channel_id,string"`
	MessageID int64             `json:"message_id,string"`
	Content   *string           `json:"content"`
	Embeds    *[]map[string]any `json:"embeds"`
}

type EditMessageResponse struct {
	Message Message `json:"message"`
}

type DeleteMessageRequest struct {
	GuildID   int64 `json:"guild_id,string"`
	ChannelID int64 `json:"channel_id,string"`
	MessageID int64 `json:"message_id,string"`
}

type DeleteMessageResponse struct{}

type GetMessageRequest struct {
	GuildID   int64 `json:"guild_id,string"`
	ChannelID int64 `json:"channel_id,string"`
	MessageID int64 `json:"message_id,string"`
}

type GetMessageResponse struct {
	Message Message `json:"message"`
}

type GetMessagesRequest struct {
	GuildID   int64 `json:"guild_id,string"`
	ChannelID int64 `json:"channel_id,string"`
	Before    int64 `json:"before,string"`
	Limit     int   `json:"limit"`
}

type GetMessagesResponse struct {
	Messages []Message `json:"messages"`
}
