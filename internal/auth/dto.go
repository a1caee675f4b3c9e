package auth

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code,omitempty" validate:"omitempty,min=6,max=16"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Requires2FA bool   `json:"requires_2fa"`
}

type PasswordResetRequestDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmDTO struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
