package user

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
)

type User struct {
	ID           string            `gorm:"primaryKey;type:uuid"`
	Email        string            `gorm:"column:email;uniqueIndex;not null;size:255"`
	PhoneNumber  *string           `gorm:"column:phone_number;uniqueIndex;size:20"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	FirstName    string            `gorm:"column:first_name;not null;size:100"`
	MiddleName   *string           `gorm:"column:middle_name;size:100"`
	LastName     string            `gorm:"column:last_name;not null;size:100"`
	IsActive     bool              `gorm:"column:is_active;not null"`
	IsVerified   bool              `gorm:"column:is_verified;not null;default:false"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	Roles        []rbac.Role       `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
	Permissions  []rbac.Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt    `gorm:"column:deleted_at;index"`
}

func (User) TableName() string {
	return "users"
}
