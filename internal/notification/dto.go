package notification

type RegisterPushTokenDTO struct {
	Token      string `json:"token" validate:"required,max=512"`
	DeviceType string `json:"device_type" validate:"required,oneof=ios android web"`
}

// SendDTO targets UserIDs, or every active user when UserIDs is empty.
type SendDTO struct {
	Title   string            `json:"title" validate:"required,max=255"`
	Message string            `json:"message" validate:"required"`
	Type    string            `json:"type" validate:"omitempty,oneof=info success warning error security"`
	UserIDs []string          `json:"user_ids" validate:"omitempty,dive,uuid"`
	Data    map[string]string `json:"data"`
}
