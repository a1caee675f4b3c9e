package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserCreated     = "user.created"
	EventTypePasswordChanged = "user.password_changed"
)

type UserCreatedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

func NewUserCreatedEvent(userID, email, firstName string) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeUserCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"email":      email,
				"first_name": firstName,
			},
		},
		UserID:    userID,
		Email:     email,
		FirstName: firstName,
	}
}

type PasswordChangedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

func NewPasswordChangedEvent(userID, reason string) *PasswordChangedEvent {
	return &PasswordChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypePasswordChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"reason":  reason,
			},
		},
		UserID: userID,
		Reason: reason,
	}
}
