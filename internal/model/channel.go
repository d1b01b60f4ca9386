package model

type CreateChannelRequest struct {
	GuildID     int64       `json:"guild_id,string"`
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InsideOf    int64       `json:"inside_of,string"`
	Position    int         `json:"position"`
	Overwrites  []Overwrite `json:"overwrites"`
}

type CreateChannelResponse struct {
	Channel Channel `json:"channel"`
}

// EditChannelRequest patches a channel. Nil fields are left untouched.
type EditChannelRequest struct {
	GuildID     int64        `json:"guild_id,string"`
	ChannelID   int64        `json:"channel_id,string"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Position    *int         `json:"position"`
	Overwrites  *[]Overwrite `json:"overwrites"`
}

type EditChannelResponse struct {
	Channel Channel `json:"channel"`
}

type DeleteChannelRequest struct {
	GuildID   int64 `json:"guild_id,string"`
	ChannelID int64 `json:"channel_id,string"`
}

type DeleteChannelResponse struct{}

type GetChannelsRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type GetChannelsResponse struct {
	Channels []Channel `json:"channels"`
}
