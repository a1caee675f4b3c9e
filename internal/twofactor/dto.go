package twofactor

type EnableDTO struct {
	TOTPCode string `json:"totp_code" validate:"required,min=6,max=16"`
}

// DisableDTO accepts either a current TOTP code or an unused backup code.
type DisableDTO struct {
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code" validate:"required,min=6,max=16"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
