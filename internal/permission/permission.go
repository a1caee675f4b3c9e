package permission

import (
	"time"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
)

// Permission codes guarding the permission endpoints.
const (
	CodeCreate = "permission:create"
	CodeList   = "permission:list"
	CodeRead   = "permission:read"
	CodeUpdate = "permission:update"
	CodeDelete = "permission:delete"
)

var OrderByColumns = []string{"created_at", "name", "code"}

type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromDataModel(p *rbac.Permission) *Permission {
	out := &Permission{
		ID:        p.ID,
		Name:      p.Name,
		Code:      p.Code,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Description != "" {
		desc := p.Description
		out.Description = &desc
	}
	return out
}

func FromDataModels(ps []rbac.Permission) []*Permission {
	out := make([]*Permission, 0, len(ps))
	for i := range ps {
		out = append(out, FromDataModel(&ps[i]))
	}
	return out
}

// CursorOf positions a permission for the given order column.
func CursorOf(orderBy string) func(*rbac.Permission) pagination.Cursor {
	return func(p *rbac.Permission) pagination.Cursor {
		switch orderBy {
		case "name":
			return pagination.Cursor{Value: p.Name, ID: p.ID}
		case "code":
			return pagination.Cursor{Value: p.Code, ID: p.ID}
		}
		return pagination.Cursor{Value: pagination.TimeValue(p.CreatedAt), ID: p.ID}
	}
}
