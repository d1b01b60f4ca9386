package repository

import (
	"context"

	"github.com/hatsu-chat/backend/internal/entity"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Collection[entity.Message]

	// GetHistory returns at most limit messages of the channel older than
	// before, newest first. A zero before starts from the newest message.
	GetHistory(ctx context.Context, channelID, before int64, limit int) ([]entity.Message, error)
}

type messageRepository struct {
	*collection[entity.Message]
}

func NewMessageRepository() MessageRepository {
	return &messageRepository{collection: newCollection[entity.Message]("id")}
}

func (r *messageRepository) GetHistory(
	ctx context.Context, channelID, before int64, limit int,
) ([]entity.Message, error) {
	db, tctx, cancel := r.db(ctx)
	defer cancel()

	db = db.Where("channel_id = ?", channelID)
	if before > 0 {
		db = db.Where("id < ?", before)
	}

	result := []entity.Message{}
	err := db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, wrapError(tctx, err)
	}

	return result, nil
}
