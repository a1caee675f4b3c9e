package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	notificationDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/notification"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.RepositoryAPI {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, ns []*notificationDatamodel.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(ns, 500).Error
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notificationDatamodel.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var ns []*notificationDatamodel.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (*notificationDatamodel.Notification, error) {
	var n notificationDatamodel.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return tx.Model(&n).Select("is_read", "updated_at").Updates(&n).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) ReplacePushToken(ctx context.Context, t *notificationDatamodel.PushToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", t.Token).Delete(&notificationDatamodel.PushToken{}).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

func (r *NotificationRepository) DeletePushToken(ctx context.Context, userID, token string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&notificationDatamodel.PushToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *NotificationRepository) ListPushTokens(ctx context.Context, userIDs []string) ([]*notificationDatamodel.PushToken, error) {
	var tokens []*notificationDatamodel.PushToken
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *NotificationRepository) ActiveUserIDs(ctx context.Context, ids []string) ([]string, error) {
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("is_active = ?", true)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}

	var out []string
	err := q.Pluck("id", &out).Error
	return out, err
}
