package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	twofactorDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/twofactor"
	"github.com/frahmantamala/rbac-api/internal/twofactor"
)

type TwoFactorRepository struct {
	db *gorm.DB
}

func NewTwoFactorRepository(db *gorm.DB) twofactor.RepositoryAPI {
	return &TwoFactorRepository{db: db}
}

func (r *TwoFactorRepository) GetByUserID(ctx context.Context, userID string) (*twofactorDatamodel.TwoFactorAuth, error) {
	var tf twofactorDatamodel.TwoFactorAuth
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&tf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tf, nil
}

// Save inserts or fully updates the record keyed by its id.
func (r *TwoFactorRepository) Save(ctx context.Context, tf *twofactorDatamodel.TwoFactorAuth) error {
	return r.db.WithContext(ctx).Save(tf).Error
}
