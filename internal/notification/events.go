package notification

import (
	"context"
	"fmt"

	"github.com/frahmantamala/rbac-api/internal/core/events"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// RegisterEventHandlers turns account events into in-app notifications.
func (s *Service) RegisterEventHandlers(bus Subscriber) {
	bus.Subscribe(events.EventTypeUserCreated, s.handleUserCreated)
	bus.Subscribe(events.EventTypePasswordChanged, s.handlePasswordChanged)
}

func (s *Service) handleUserCreated(ctx context.Context, e events.Event) error {
	userID, firstName := payloadString(e, "user_id"), payloadString(e, "first_name")
	if userID == "" {
		return fmt.Errorf("event %s: missing user_id", e.EventID())
	}

	title := "Welcome!"
	if firstName != "" {
		title = fmt.Sprintf("Welcome, %s!", firstName)
	}
	if err := s.Notify(ctx, userID, title, "Your account has been created.", TypeSuccess); err != nil {
		return fmt.Errorf("welcome notification: %w", err)
	}
	return nil
}

func (s *Service) handlePasswordChanged(ctx context.Context, e events.Event) error {
	userID := payloadString(e, "user_id")
	if userID == "" {
		return fmt.Errorf("event %s: missing user_id", e.EventID())
	}

	msg := "Your password was changed. If this was not you, reset it immediately."
	if payloadString(e, "reason") == "reset" {
		msg = "Your password was reset. If this was not you, contact support."
	}
	if err := s.Notify(ctx, userID, "Password changed", msg, TypeSecurity); err != nil {
		return fmt.Errorf("password notification: %w", err)
	}
	return nil
}

func payloadString(e events.Event, key string) string {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := data[key].(string)
	return v
}
