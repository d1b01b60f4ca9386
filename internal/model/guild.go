package model

type CreateGuildRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateGuildResponse struct {
	Guild Guild `json:"guild"`
}

type GetGuildRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type GetGuildResponse struct {
	Guild Guild `json:"guild"`
}

type GetGuildPreviewRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type GetGuildPreviewResponse struct {
	Guild       Guild `json:"guild"`
	MemberCount int64 `json:"member_count"`
}

type EditGuildRequest struct {
	GuildID     int64   `json:"guild_id,string"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type EditGuildResponse struct {
	Guild Guild `json:"guild"`
}

type DeleteGuildRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type DeleteGuildResponse struct{}

type GetMembersRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type GetMembersResponse struct {
	Members []Member `json:"members"`
}

type LeaveGuildRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type LeaveGuildResponse struct{}

type KickMemberRequest struct {
	GuildID int64 `json:"guild_id,string"`
	UserID  int64 `json:"user_id,string"`
}

type KickMemberResponse struct{}
