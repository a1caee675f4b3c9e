package notification

import (
	"time"

	notificationDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/notification"
)

// CodeSend guards the broadcast endpoint.
const CodeSend = "notification:send"

const (
	TypeInfo     = "info"
	TypeSuccess  = "success"
	TypeWarning  = "warning"
	TypeError    = "error"
	TypeSecurity = "security"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromDataModel(n *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

type PushToken struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Token      string    `json:"token"`
	DeviceType string    `json:"device_type"`
	CreatedAt  time.Time `json:"created_at"`
}

func PushTokenFromDataModel(t *notificationDatamodel.PushToken) *PushToken {
	return &PushToken{
		ID:         t.ID,
		UserID:     t.UserID,
		Token:      t.Token,
		DeviceType: t.DeviceType,
		CreatedAt:  t.CreatedAt,
	}
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type SendResult struct {
	Notified   int `json:"notified"`
	PushSent   int `json:"push_sent"`
	PushFailed int `json:"push_failed"`
}
