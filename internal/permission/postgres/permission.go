package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-api/internal/permission"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.RepositoryAPI {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(ctx context.Context, p *rbac.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PermissionRepository) Update(ctx context.Context, p *rbac.Permission) error {
	return r.db.WithContext(ctx).Model(p).Select("name", "code", "description", "updated_at").Updates(p).Error
}

// Delete removes the permission together with its role and user grants.
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM role_permissions WHERE permission_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_permissions WHERE permission_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&rbac.Permission{}, "id = ?", id).Error
	})
}

func (r *PermissionRepository) first(ctx context.Context, query string, arg interface{}) (*rbac.Permission, error) {
	var p rbac.Permission
	err := r.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*rbac.Permission, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*rbac.Permission, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *PermissionRepository) GetByCode(ctx context.Context, code string) (*rbac.Permission, error) {
	return r.first(ctx, "code = ?", code)
}

func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []string) ([]rbac.Permission, error) {
	var perms []rbac.Permission
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *PermissionRepository) List(ctx context.Context, params pagination.CursorParams) ([]*rbac.Permission, error) {
	scope, err := params.Scope()
	if err != nil {
		return nil, err
	}

	var perms []*rbac.Permission
	if err := r.db.WithContext(ctx).Scopes(scope).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}
