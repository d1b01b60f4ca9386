package repository

import (
	"context"

	"github.com/hatsu-chat/backend/internal/entity"
)

type ChannelRepository interface {
	Collection[entity.Channel]
	GetByID(ctx context.Context, id int64) (*entity.Channel, error)

	// GetByGuildID returns every channel of the guild ordered by position.
	GetByGuildID(ctx context.Context, guildID int64) ([]entity.Channel, error)
}

type channelRepository struct {
	*collection[entity.Channel]
}

func NewChannelRepository() ChannelRepository {
	return &channelRepository{collection: newCollection[entity.Channel]("id")}
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*entity.Channel, error) {
	return r.FindOne(ctx, Filter{"id": id})
}

func (r *channelRepository) GetByGuildID(ctx context.Context, guildID int64) ([]entity.Channel, error) {
	return r.Find(ctx, Filter{"guild_id": guildID}, OrderBy("position", false)).All()
}
