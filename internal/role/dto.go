package role

type CreateRoleDTO struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Description   *string  `json:"description" validate:"omitempty,max=255"`
	IsDefault     bool     `json:"is_default"`
	IsSystem      bool     `json:"is_system"`
	PermissionIDs []string `json:"permission_ids" validate:"omitempty,dive,uuid"`
}

// UpdateRoleDTO leaves nil fields untouched. A non-nil PermissionIDs (even empty) replaces the role's permissions.
type UpdateRoleDTO struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string  `json:"description" validate:"omitempty,max=255"`
	IsDefault     *bool    `json:"is_default"`
	IsSystem      *bool    `json:"is_system"`
	PermissionIDs []string `json:"permission_ids" validate:"omitempty,dive,uuid"`
}
