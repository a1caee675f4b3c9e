package postgres

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal/auth"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ auth.RepositoryAPI = (*Repository)(nil)

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "email", "password_hash", "is_active").
		Where("email = ?", email).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
	}, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (*auth.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
	}, nil
}

const rolesQuery = `
SELECT r.name
FROM roles r
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = ?`

const effectivePermissionsQuery = `
SELECT p.code
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = ?
UNION
SELECT p.code
FROM permissions p
JOIN user_permissions up ON up.permission_id = p.id
WHERE up.user_id = ?`

func (r *Repository) GetGrants(ctx context.Context, userID string) ([]string, []string, error) {
	roles := []string{}
	if err := r.db.WithContext(ctx).Raw(rolesQuery, userID).Scan(&roles).Error; err != nil {
		return nil, nil, err
	}

	perms := []string{}
	if err := r.db.WithContext(ctx).Raw(effectivePermissionsQuery, userID, userID).Scan(&perms).Error; err != nil {
		return nil, nil, err
	}

	sort.Strings(roles)
	sort.Strings(perms)
	return roles, perms, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}

func (r *Repository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login_at", at).Error
}
