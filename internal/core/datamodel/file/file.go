package file

import "time"

type File struct {
	ID               string    `gorm:"primaryKey;type:uuid"`
	UserID           string    `gorm:"column:user_id;type:uuid;index;not null"`
	Filename         string    `gorm:"column:filename;not null;size:255"`
	OriginalFilename string    `gorm:"column:original_filename;not null;size:255"`
	ContentType      string    `gorm:"column:content_type;not null;size:100"`
	Size             int64     `gorm:"column:size;not null"`
	StorageProvider  string    `gorm:"column:storage_provider;not null;size:20"`
	StorageKey       string    `gorm:"column:storage_key;not null;size:500"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (File) TableName() string {
	return "files"
}
