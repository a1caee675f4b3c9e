package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/core/common/validation"
	notificationDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/notification"
)

type RepositoryAPI interface {
	Create(ctx context.Context, ns []*notificationDatamodel.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notificationDatamodel.Notification, error)
	// MarkRead returns nil, nil when the notification does not exist or belongs to someone else.
	MarkRead(ctx context.Context, id, userID string) (*notificationDatamodel.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// ReplacePushToken drops any row holding the same token before inserting t.
	ReplacePushToken(ctx context.Context, t *notificationDatamodel.PushToken) error
	DeletePushToken(ctx context.Context, userID, token string) (bool, error)
	ListPushTokens(ctx context.Context, userIDs []string) ([]*notificationDatamodel.PushToken, error)
	// ActiveUserIDs returns active users, restricted to ids when any are given.
	ActiveUserIDs(ctx context.Context, ids []string) ([]string, error)
}

type Service struct {
	repo   RepositoryAPI
	pusher Pusher
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, pusher Pusher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		logger: logger,
	}
}

var (
	ErrNotFound          = internal.NewNotFoundError("Notification not found", internal.ErrCodeNotificationNotFound)
	ErrPushTokenNotFound = internal.NewNotFoundError("Push token not found", internal.ErrCodePushTokenNotFound)
)

// List returns the newest notifications of a user first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.repo.ListForUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list notifications", err)
	}

	out := make([]*Notification, 0, len(rows))
	for _, n := range rows {
		out = append(out, FromDataModel(n))
	}
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to mark notification read", err)
	}
	if n == nil {
		return nil, ErrNotFound
	}
	return FromDataModel(n), nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, internal.NewInternalError("failed to count notifications", err)
	}
	return count, nil
}

// Notify stores an in-app notification for one user.
func (s *Service) Notify(ctx context.Context, userID, title, message, kind string) error {
	if kind == "" {
		kind = TypeInfo
	}
	n := &notificationDatamodel.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	return s.repo.Create(ctx, []*notificationDatamodel.Notification{n})
}

func (s *Service) RegisterPushToken(ctx context.Context, userID string, dto RegisterPushTokenDTO) (*PushToken, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	t := &notificationDatamodel.PushToken{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      dto.Token,
		DeviceType: dto.DeviceType,
	}
	if err := s.repo.ReplacePushToken(ctx, t); err != nil {
		return nil, internal.NewInternalError("failed to register push token", err)
	}

	s.logger.Info("push token registered", "user_id", userID, "device_type", dto.DeviceType)
	return PushTokenFromDataModel(t), nil
}

func (s *Service) UnregisterPushToken(ctx context.Context, userID, token string) error {
	if err := validation.Var("token", token, "required,max=512"); err != nil {
		return err
	}

	removed, err := s.repo.DeletePushToken(ctx, userID, token)
	if err != nil {
		return internal.NewInternalError("failed to unregister push token", err)
	}
	if !removed {
		return ErrPushTokenNotFound
	}
	return nil
}

// Send creates in-app notifications for the targets and pushes to their registered devices.
func (s *Service) Send(ctx context.Context, dto SendDTO) (*SendResult, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	targets, err := s.repo.ActiveUserIDs(ctx, dto.UserIDs)
	if err != nil {
		return nil, internal.NewInternalError("failed to load recipients", err)
	}

	result := &SendResult{}
	if len(targets) == 0 {
		return result, nil
	}

	kind := dto.Type
	if kind == "" {
		kind = TypeInfo
	}
	rows := make([]*notificationDatamodel.Notification, 0, len(targets))
	for _, userID := range targets {
		rows = append(rows, &notificationDatamodel.Notification{
			ID:      uuid.NewString(),
			UserID:  userID,
			Title:   dto.Title,
			Message: dto.Message,
			Type:    kind,
		})
	}
	if err := s.repo.Create(ctx, rows); err != nil {
		return nil, internal.NewInternalError("failed to create notifications", err)
	}
	result.Notified = len(rows)

	tokens, err := s.repo.ListPushTokens(ctx, targets)
	if err != nil {
		return nil, internal.NewInternalError("failed to load push tokens", err)
	}
	if len(tokens) == 0 || s.pusher == nil {
		s.logger.Warn("no push tokens for notification", "recipients", len(targets))
		return result, nil
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	pushed, err := s.pusher.Push(ctx, values, PushMessage{Title: dto.Title, Body: dto.Message, Data: dto.Data})
	if err != nil {
		s.logger.Error("push delivery failed", "tokens", len(values), "error", err)
		result.PushFailed = len(values)
		return result, nil
	}
	result.PushSent = pushed.SuccessCount
	result.PushFailed = pushed.FailureCount

	s.logger.Info("notification sent",
		"recipients", result.Notified,
		"push_tokens", len(values),
		"push_sent", result.PushSent,
		"push_failed", result.PushFailed)
	return result, nil
}
