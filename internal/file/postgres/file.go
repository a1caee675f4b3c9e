package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	fileDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/file"
	"github.com/frahmantamala/rbac-api/internal/file"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) file.RepositoryAPI {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *fileDatamodel.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FileRepository) GetForUser(ctx context.Context, id, userID string) (*fileDatamodel.File, error) {
	var f fileDatamodel.File
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*fileDatamodel.File, error) {
	var files []*fileDatamodel.File
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&fileDatamodel.File{}).Error
}
