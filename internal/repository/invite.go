package repository

import (
	"github.com/hatsu-chat/backend/internal/entity"
)

type InviteRepository interface {
	Collection[entity.Invite]
}

type inviteRepository struct {
	*collection[entity.Invite]
}

func NewInviteRepository() InviteRepository {
	return &inviteRepository{collection: newCollection[entity.Invite]("code")}
}
