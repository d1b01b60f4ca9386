package entity

import (
	"database/sql"
	"time"
)

type Invite struct {
	Code      string `gorm:"primaryKey;size:16"`
	GuildID   int64  `gorm:"index"`
	CreatorID int64
	MaxUses   int
	Uses      int
	ExpiresAt sql.NullTime
	CreatedAt time.Time
}

// Usable reports whether the invite can still be redeemed at now.
func (i Invite) Usable(now time.Time) bool {
	if i.ExpiresAt.Valid && !now.Before(i.ExpiresAt.Time) {
		return false
	}

	if i.MaxUses > 0 && i.Uses >= i.MaxUses {
		return false
	}

	return true
}
