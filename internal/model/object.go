package model

import "github.com/hatsu-chat/backend/internal/entity"

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bio           string `json:"bio"`
	Verified      bool   `json:"verified"`
	EarlyAdopter  bool   `json:"early_adopter"`
	Bot           bool   `json:"bot"`
	System        bool   `json:"system"`
	CreatedAt     string `json:"created_at"`

	// Only sent to the user itself.
	Email          string   `json:"email,omitempty"`
	BlockedUserIDs []string `json:"blocked_user_ids,omitempty"`
}

type MemberUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bio           string `json:"bio"`
	Bot           bool   `json:"bot"`
	System        bool   `json:"system"`
	EarlyAdopter  bool   `json:"early_adopter"`
}

type Guild struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	OwnerID           string    `json:"owner_id"`
	DefaultPermission uint64    `json:"default_permission"`
	CreatedAt         string    `json:"created_at"`
	Roles             []Role    `json:"roles,omitempty"`
	Channels          []Channel `json:"channels,omitempty"`
}

type Role struct {
	ID          string `json:"id"`
	GuildID     string `json:"guild_id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions uint64 `json:"permissions"`
}

type Member struct {
	GuildID  string     `json:"guild_id"`
	User     MemberUser `json:"user"`
	Nick     string     `json:"nick"`
	RoleIDs  []string   `json:"role_ids"`
	Owner    bool       `json:"owner"`
	JoinedAt string     `json:"joined_at"`
}

type Overwrite struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Value uint64 `json:"value"`
}

type Channel struct {
	ID          string      `json:"id"`
	GuildID     string      `json:"guild_id"`
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InsideOf    string      `json:"inside_of,omitempty"`
	Position    int         `json:"position"`
	Overwrites  []Overwrite `json:"overwrites"`
}

type Invite struct {
	Code      string `json:"code"`
	GuildID   string `json:"guild_id"`
	CreatorID string `json:"creator_id"`
	MaxUses   int    `json:"max_uses"`
	Uses      int    `json:"uses"`
	ExpiresAt string `json:"expires_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

type Message struct {
	ID        string         `json:"id"`
	GuildID   string         `json:"guild_id"`
	ChannelID string         `json:"channel_id"`
	Author    MemberUser     `json:"author"`
	Content   string         `json:"content"`
	Embeds    []entity.Embed `json:"embeds"`
	TTS       bool           `json:"tts"`
	CreatedAt string         `json:"created_at"`
	EditedAt  string         `json:"edited_at,omitempty"`
}
