package entity

type Guild struct {
	SnowFlakeBase

	Name              string `gorm:"size:100"`
	Description       string
	OwnerID           int64 `gorm:"index"`
	DefaultPermission PermissionFlag
}
