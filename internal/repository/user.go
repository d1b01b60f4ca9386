package repository

import (
	"context"

	"github.com/hatsu-chat/backend/internal/entity"
)

type UserRepository interface {
	Collection[entity.User]
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

type userRepository struct {
	*collection[entity.User]
}

func NewUserRepository() UserRepository {
	return &userRepository{collection: newCollection[entity.User]("id")}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.FindOne(ctx, Filter{"id": id})
}
