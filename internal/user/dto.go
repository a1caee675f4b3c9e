package user

type CreateUserDTO struct {
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=8,max=128"`
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	MiddleName  *string `json:"middle_name" validate:"omitempty,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
}

// UpdateUserDTO is the admin update. An empty phone_number clears the phone.
type UpdateUserDTO struct {
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	MiddleName  *string `json:"middle_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	IsActive    *bool   `json:"is_active"`
	IsVerified  *bool   `json:"is_verified"`
}

type UpdateProfileDTO struct {
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	MiddleName  *string `json:"middle_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type AssignRolesDTO struct {
	RoleIDs []string `json:"role_ids" validate:"required,min=1,dive,uuid"`
}

type GrantPermissionsDTO struct {
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1,dive,uuid"`
}
