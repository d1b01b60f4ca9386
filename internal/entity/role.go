package entity

type Role struct {
	SnowFlakeBase

	GuildID     int64 `gorm:"index"`
	Name        string
	Color       int
	Position    int
	Permissions PermissionFlag
}
