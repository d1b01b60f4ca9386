package repository

import (
	"context"

	"github.com/hatsu-chat/backend/internal/entity"
)

type RoleRepository interface {
	Collection[entity.Role]
	GetByGuildID(ctx context.Context, guildID int64) ([]entity.Role, error)

	// GetByIDs returns the roles of the guild among ids. Unknown ids are
	// ignored.
	GetByIDs(ctx context.Context, guildID int64, ids []int64) ([]entity.Role, error)
}

type roleRepository struct {
	*collection[entity.Role]
}

func NewRoleRepository() RoleRepository {
	return &roleRepository{collection: newCollection[entity.Role]("id")}
}

func (r *roleRepository) GetByGuildID(ctx context.Context, guildID int64) ([]entity.Role, error) {
	return r.Find(ctx, Filter{"guild_id": guildID}, OrderBy("position", false)).All()
}

func (r *roleRepository) GetByIDs(ctx context.Context, guildID int64, ids []int64) ([]entity.Role, error) {
	if len(ids) == 0 {
		return []entity.Role{}, nil
	}

	return r.Find(ctx, Filter{"guild_id": guildID, "id": ids}).All()
}
