package rbac

import "time"

type Permission struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	Name        string    `gorm:"column:name;uniqueIndex;not null;size:100"`
	Code        string    `gorm:"column:code;uniqueIndex;not null;size:100"`
	Description string    `gorm:"column:description;size:255"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}

type Role struct {
	ID          string       `gorm:"primaryKey;type:uuid"`
	Name        string       `gorm:"column:name;uniqueIndex;not null;size:100"`
	Description string       `gorm:"column:description;size:255"`
	IsDefault   bool         `gorm:"column:is_default;not null;default:false"`
	IsSystem    bool         `gorm:"column:is_system;not null;default:false"`
	Permissions []Permission `gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}
