package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-api/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, rl *rbac.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rl.IsDefault {
			if err := unsetDefault(tx, rl.ID); err != nil {
				return err
			}
		}
		return tx.Create(rl).Error
	})
}

func (r *RoleRepository) Update(ctx context.Context, rl *rbac.Role, replacePermissions bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rl.IsDefault {
			if err := unsetDefault(tx, rl.ID); err != nil {
				return err
			}
		}

		err := tx.Model(rl).
			Select("name", "description", "is_default", "is_system", "updated_at").
			Updates(rl).Error
		if err != nil {
			return err
		}

		if !replacePermissions {
			return nil
		}
		assoc := tx.Model(rl).Association("Permissions")
		if len(rl.Permissions) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(rl.Permissions)
	})
}

func unsetDefault(tx *gorm.DB, exceptID string) error {
	return tx.Model(&rbac.Role{}).
		Where("is_default = ? AND id <> ?", true, exceptID).
		Update("is_default", false).Error
}

// Delete removes the role together with its permission grants and user assignments.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM role_permissions WHERE role_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_roles WHERE role_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&rbac.Role{}, "id = ?", id).Error
	})
}

func (r *RoleRepository) first(ctx context.Context, query string, args ...interface{}) (*rbac.Role, error) {
	var rl rbac.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where(query, args...).First(&rl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rl, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*rbac.Role, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*rbac.Role, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *RoleRepository) GetDefault(ctx context.Context) (*rbac.Role, error) {
	return r.first(ctx, "is_default = ?", true)
}

func (r *RoleRepository) GetByIDs(ctx context.Context, ids []string) ([]rbac.Role, error) {
	var roles []rbac.Role
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) List(ctx context.Context, params pagination.CursorParams) ([]*rbac.Role, error) {
	scope, err := params.Scope()
	if err != nil {
		return nil, err
	}

	var roles []*rbac.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Scopes(scope).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
