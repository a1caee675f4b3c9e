package role

import (
	"time"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-api/internal/permission"
)

// Permission codes guarding the role endpoints.
const (
	CodeCreate = "role:create"
	CodeList   = "role:list"
	CodeRead   = "role:read"
	CodeUpdate = "role:update"
	CodeDelete = "role:delete"
)

var OrderByColumns = []string{"created_at", "name"}

type Role struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description *string                  `json:"description"`
	IsDefault   bool                     `json:"is_default"`
	IsSystem    bool                     `json:"is_system"`
	Permissions []*permission.Permission `json:"permissions"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func FromDataModel(r *rbac.Role) *Role {
	out := &Role{
		ID:          r.ID,
		Name:        r.Name,
		IsDefault:   r.IsDefault,
		IsSystem:    r.IsSystem,
		Permissions: permission.FromDataModels(r.Permissions),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Description != "" {
		desc := r.Description
		out.Description = &desc
	}
	return out
}

func FromDataModels(rs []rbac.Role) []*Role {
	out := make([]*Role, 0, len(rs))
	for i := range rs {
		out = append(out, FromDataModel(&rs[i]))
	}
	return out
}

func CursorOf(orderBy string) func(*rbac.Role) pagination.Cursor {
	return func(r *rbac.Role) pagination.Cursor {
		if orderBy == "name" {
			return pagination.Cursor{Value: r.Name, ID: r.ID}
		}
		return pagination.Cursor{Value: pagination.TimeValue(r.CreatedAt), ID: r.ID}
	}
}
