package model

type CreateInviteRequest struct {
	GuildID int64 `json:"guild_id,string"`

	// Zero means unlimited.
	MaxUses int `json:"max_uses"`

	// MaxAge is in seconds. Zero means the invite never expires.
	MaxAge int `json:"max_age"`
}

type CreateInviteResponse struct {
	Invite Invite `json:"invite"`
}

type GetInviteRequest struct {
	Code string `json:"code"`
}

type GetInviteResponse struct {
	Invite Invite `json:"invite"`
	Guild  Guild  `json:"guild"`
}

type RedeemInviteRequest struct {
	Code string `json:"code"`
}

type RedeemInviteResponse struct {
	Guild  Guild  `json:"guild"`
	Member Member `json:"member"`
}

type DeleteInviteRequest struct {
	Code string `json:"code"`
}

type DeleteInviteResponse struct{}
