package permission

type CreatePermissionDTO struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Code        string  `json:"code" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type UpdatePermissionDTO struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Code        *string `json:"code" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}
