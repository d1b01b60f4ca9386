package repository

import (
	"context"

	"github.com/hatsu-chat/backend/internal/entity"
)

type MemberRepository interface {
	Collection[entity.Member]
	Get(ctx context.Context, guildID, userID int64) (*entity.Member, error)
}

type memberRepository struct {
	*collection[entity.Member]
}

func NewMemberRepository() MemberRepository {
	return &memberRepository{collection: newCollection[entity.Member]("guild_id", "user_id")}
}

func (r *memberRepository) Get(ctx context.Context, guildID, userID int64) (*entity.Member, error) {
	return r.FindOne(ctx, Filter{"guild_id": guildID, "user_id": userID})
}
