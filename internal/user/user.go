package user

import (
	"time"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/permission"
	"github.com/frahmantamala/rbac-api/internal/role"
)

// Permission codes guarding the admin user endpoints.
const (
	CodeCreate = "user:create"
	CodeList   = "user:list"
	CodeRead   = "user:read"
	CodeUpdate = "user:update"
	CodeDelete = "user:delete"
)

var OrderByColumns = []string{"created_at", "email", "first_name", "last_name"}

// User is the API representation. Permissions lists direct grants only; role grants sit under Roles.
type User struct {
	ID          string                   `json:"id"`
	Email       string                   `json:"email"`
	PhoneNumber *string                  `json:"phone_number"`
	FirstName   string                   `json:"first_name"`
	MiddleName  *string                  `json:"middle_name"`
	LastName    string                   `json:"last_name"`
	IsActive    bool                     `json:"is_active"`
	IsVerified  bool                     `json:"is_verified"`
	LastLoginAt *time.Time               `json:"last_login_at"`
	Roles       []*role.Role             `json:"roles"`
	Permissions []*permission.Permission `json:"permissions"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	DeletedAt   *time.Time               `json:"deleted_at,omitempty"`
}

func FromDataModel(u *userDatamodel.User) *User {
	out := &User{
		ID:          u.ID,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		FirstName:   u.FirstName,
		MiddleName:  u.MiddleName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		LastLoginAt: u.LastLoginAt,
		Roles:       role.FromDataModels(u.Roles),
		Permissions: permission.FromDataModels(u.Permissions),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.DeletedAt.Valid {
		deleted := u.DeletedAt.Time
		out.DeletedAt = &deleted
	}
	return out
}

func CursorOf(orderBy string) func(*userDatamodel.User) pagination.Cursor {
	return func(u *userDatamodel.User) pagination.Cursor {
		switch orderBy {
		case "email":
			return pagination.Cursor{Value: u.Email, ID: u.ID}
		case "first_name":
			return pagination.Cursor{Value: u.FirstName, ID: u.ID}
		case "last_name":
			return pagination.Cursor{Value: u.LastName, ID: u.ID}
		}
		return pagination.Cursor{Value: pagination.TimeValue(u.CreatedAt), ID: u.ID}
	}
}
