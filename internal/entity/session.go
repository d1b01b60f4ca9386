package entity

import "time"

// Session is an opaque bearer token. The token is the literal value of the
// Authorization header.
type Session struct {
	Token     string `gorm:"primaryKey;size:64"`
	UserID    int64  `gorm:"index"`
	CreatedAt time.Time
}
