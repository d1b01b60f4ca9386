package entity

import (
	"database/sql"
)

type EmbedField struct {
	Name   string `json:"name" mapstructure:"name"`
	Value  string `json:"value" mapstructure:"value"`
	Inline bool   `json:"inline,omitempty" mapstructure:"inline"`
}

type EmbedAuthor struct {
	Name      string `json:"name" mapstructure:"name"`
	URL       string `json:"url,omitempty" mapstructure:"url"`
	AvatarURL string `json:"avatar_url,omitempty" mapstructure:"avatar_url"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Color       *int         `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
}

// IsEmpty reports whether no field of the embed survived sanitizing.
func (e Embed) IsEmpty() bool {
	return e.Title == "" && e.Description == "" && e.URL == "" && e.Timestamp == "" &&
		e.Color == nil && len(e.Fields) == 0 && e.Author == nil
}

type Message struct {
	SnowFlakeBase

	GuildID   int64 `gorm:"index"`
	ChannelID int64 `gorm:"index"`
	AuthorID  int64 `gorm:"index"`

	Author   MemberProfile `gorm:"serializer:json"`
	Content  string        `gorm:"size:5000"`
	Embeds   Array[Embed]
	TTS      bool
	EditedAt sql.NullTime
}
