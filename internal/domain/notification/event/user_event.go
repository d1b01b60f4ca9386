package event

import "github.com/hatsu-chat/backend/internal/model"

// MentionEvent is sent to a user mentioned in a message.
type MentionEvent model.Message

func (*MentionEvent) Op() string {
	return "MENTION"
}

type UserUpdateEvent model.User

func (*UserUpdateEvent) Op() string {
	return "USER_UPDATE"
}
