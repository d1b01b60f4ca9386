package entity

import (
	"database/sql"

	"github.com/hatsu-chat/backend/pkg/enum"
)

type ChannelType int

var (
	ChannelCategory = enum.New(ChannelType(1), "category")
	ChannelText     = enum.New(ChannelType(2), "text")
	ChannelVoice    = enum.New(ChannelType(3), "voice")
)

type OverwriteKind string

var (
	OverwriteUser = enum.New(OverwriteKind("user"), "user")
	OverwriteRole = enum.New(OverwriteKind("role"), "role")
)

// PermissionOverwrite replaces the resolved permission of a user or of every
// holder of a role, in one channel only.
type PermissionOverwrite struct {
	ID    int64          `json:"id,string"`
	Kind  OverwriteKind  `json:"kind"`
	Value PermissionFlag `json:"value"`
}

type Channel struct {
	SnowFlakeBase

	GuildID     int64 `gorm:"index"`
	Type        ChannelType
	Name        string `gorm:"size:100"`
	Description string
	InsideOf    sql.NullInt64 `gorm:"index"`
	Position    int
	Overwrites  Array[PermissionOverwrite]
}
