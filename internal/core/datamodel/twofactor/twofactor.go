package twofactor

import "time"

type TwoFactorAuth struct {
	ID          string     `gorm:"primaryKey;type:uuid"`
	UserID      string     `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Secret      string     `gorm:"column:secret;not null"`
	IsEnabled   bool       `gorm:"column:is_enabled;not null;default:false"`
	BackupCodes string     `gorm:"column:backup_codes;type:text;not null"`
	LastUsedAt  *time.Time `gorm:"column:last_used_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (TwoFactorAuth) TableName() string {
	return "two_factor_auth"
}
