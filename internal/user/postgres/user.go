package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User, roleIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(u).Error; err != nil {
			return err
		}
		return link(tx, "user_roles", "role_id", u.ID, roleIDs)
	})
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Model(u).
		Select("phone_number", "first_name", "middle_name", "last_name", "is_active", "is_verified", "updated_at").
		Updates(u).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"password_hash": passwordHash, "updated_at": time.Now()}).Error
}

// Delete soft-deletes the user. Role and permission links stay so a restore keeps them.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Delete(&userDatamodel.User{}, "id = ?", userID).Error
}

func (r *UserRepository) GetByID(ctx context.Context, userID string, includeDeleted bool) (*userDatamodel.User, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}

	var u userDatamodel.User
	err := db.Preload("Roles.Permissions").Preload("Permissions").Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) firstUnscoped(ctx context.Context, query string, arg interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Unscoped().Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.firstUnscoped(ctx, "email = ?", email)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*userDatamodel.User, error) {
	return r.firstUnscoped(ctx, "phone_number = ?", phone)
}

func (r *UserRepository) List(ctx context.Context, params pagination.CursorParams) ([]*userDatamodel.User, error) {
	scope, err := params.Scope()
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	if params.IncludeDeleted {
		db = db.Unscoped()
	}

	var users []*userDatamodel.User
	err = db.Preload("Roles.Permissions").Preload("Permissions").Scopes(scope).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) AddRoles(ctx context.Context, userID string, roleIDs []string) error {
	return link(r.db.WithContext(ctx), "user_roles", "role_id", userID, roleIDs)
}

func (r *UserRepository) RemoveRoles(ctx context.Context, userID string, roleIDs []string) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM user_roles WHERE user_id = ? AND role_id IN ?", userID, roleIDs).Error
}

func (r *UserRepository) AddPermissions(ctx context.Context, userID string, permissionIDs []string) error {
	return link(r.db.WithContext(ctx), "user_permissions", "permission_id", userID, permissionIDs)
}

func (r *UserRepository) RemovePermissions(ctx context.Context, userID string, permissionIDs []string) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM user_permissions WHERE user_id = ? AND permission_id IN ?", userID, permissionIDs).Error
}

// link inserts (user_id, column) rows into a join table, skipping pairs that already exist.
func link(db *gorm.DB, table, column, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]interface{}{"user_id": userID, column: id})
	}
	return db.Table(table).Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error
}
