package model

type CreateRoleRequest struct {
	GuildID     int64  `json:"guild_id,string"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions uint64 `json:"permissions"`
}

type CreateRoleResponse struct {
	Role Role `json:"role"`
}

// UpdateRoleRequest patches a role. Nil fields are left untouched.
type UpdateRoleRequest struct {
	GuildID     int64   `json:"guild_id,string"`
	RoleID      int64   `json:"role_id,string"`
	Name        string  `json:"name"`
	Color       *int    `json:"color"`
	Position    *int    `json:"position"`
	Permissions *uint64 `json:"permissions"`
}

type UpdateRoleResponse struct {
	Role Role `json:"role"`
}

type DeleteRoleRequest struct {
	GuildID int64 `json:"guild_id,string"`
	RoleID  int64 `json:"role_id,string"`
}

type DeleteRoleResponse struct{}

type GetRolesRequest struct {
	GuildID int64 `json:"guild_id,string"`
}

type GetRolesResponse struct {
	Roles []Role `json:"roles"`
}

type AssignRoleRequest struct {
	GuildID int64 `json:"guild_id,string"`
	UserID  int64 `json:"user_id,string"`
	RoleID  int64 `json:"role_id,string"`
}

type AssignRoleResponse struct {
	Member Member `json:"member"`
}

type UnassignRoleRequest struct {
	GuildID int64 `json:"guild_id,string"`
	UserID  int64 `json:"user_id,string"`
	RoleID  int64 `json:"role_id,string"`
}

type UnassignRoleResponse struct {
	Member Member `json:"member"`
}
