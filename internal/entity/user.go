package entity

import "database/sql"

type User struct {
	SnowFlakeBase

	Username      string         `gorm:"size:32;uniqueIndex:idx_users_tag"`
	Discriminator string         `gorm:"size:4;uniqueIndex:idx_users_tag"`
	Email         sql.NullString `gorm:"size:256;unique"`
	Password      string
	Bio           string

	Verified         bool
	VerificationCode string `gorm:"size:16"`
	EarlyAdopter     bool
	Bot              bool
	System           bool
	BotOwnerID       sql.NullInt64 `gorm:"index"`

	BlockedUserIDs Array[int64]
}

// Tag is the unique display handle, username#discriminator.
func (u User) Tag() string {
	return u.Username + "#" + u.Discriminator
}
