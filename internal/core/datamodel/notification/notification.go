package notification

import "time"

type Notification struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"column:user_id;type:uuid;index;not null"`
	Title     string    `gorm:"column:title;not null;size:255"`
	Message   string    `gorm:"column:message;type:text;not null"`
	Type      string    `gorm:"column:type;not null;size:50;default:info"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

type PushToken struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	UserID     string    `gorm:"column:user_id;type:uuid;index;not null"`
	Token      string    `gorm:"column:token;not null;size:512"`
	DeviceType string    `gorm:"column:device_type;size:50"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PushToken) TableName() string {
	return "push_tokens"
}
