package repository

import (
	"github.com/hatsu-chat/backend/internal/entity"
)

type SessionRepository interface {
	Collection[entity.Session]
}

type sessionRepository struct {
	*collection[entity.Session]
}

func NewSessionRepository() SessionRepository {
	return &sessionRepository{collection: newCollection[entity.Session]("token")}
}
