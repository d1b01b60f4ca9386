package entity

import "time"

// MemberProfile is a redacted copy of the user taken when the member joined. It
// is never refreshed.
type MemberProfile struct {
	ID            int64  `json:"id,string"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bio           string `json:"bio"`
	Bot           bool   `json:"bot"`
	System        bool   `json:"system"`
	EarlyAdopter  bool   `json:"early_adopter"`
}

func NewMemberProfile(u *User) MemberProfile {
	return MemberProfile{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Bio:           u.Bio,
		Bot:           u.Bot,
		System:        u.System,
		EarlyAdopter:  u.EarlyAdopter,
	}
}

type Member struct {
	GuildID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID  int64 `gorm:"primaryKey;autoIncrement:false;index"`

	Profile  MemberProfile `gorm:"serializer:json"`
	Nick     string
	RoleIDs  Array[int64]
	Owner    bool
	JoinedAt time.Time
}
