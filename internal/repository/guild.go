package repository

import (
	"context"

	"github.com/hatsu-chat/backend/internal/entity"
)

type GuildRepository interface {
	Collection[entity.Guild]
	GetByID(ctx context.Context, id int64) (*entity.Guild, error)
}

type guildRepository struct {
	*collection[entity.Guild]
}

func NewGuildRepository() GuildRepository {
	return &guildRepository{collection: newCollection[entity.Guild]("id")}
}

func (r *guildRepository) GetByID(ctx context.Context, id int64) (*entity.Guild, error) {
	return r.FindOne(ctx, Filter{"id": id})
}
