package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/common/validation"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-api/internal/permission"
)

type RepositoryAPI interface {
	// Create inserts the role with its permissions. A default role clears the previous default in the same transaction.
	Create(ctx context.Context, r *rbac.Role) error
	// Update saves the role fields; when replacePermissions is set r.Permissions becomes the full grant list.
	Update(ctx context.Context, r *rbac.Role, replacePermissions bool) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*rbac.Role, error)
	GetByName(ctx context.Context, name string) (*rbac.Role, error)
	GetByIDs(ctx context.Context, ids []string) ([]rbac.Role, error)
	GetDefault(ctx context.Context) (*rbac.Role, error)
	List(ctx context.Context, params pagination.CursorParams) ([]*rbac.Role, error)
}

type PermissionResolver interface {
	ResolveIDs(ctx context.Context, ids []string) ([]rbac.Permission, error)
}

type Service struct {
	repo        RepositoryAPI
	permissions PermissionResolver
	invalidator permission.Invalidator
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, permissions PermissionResolver, invalidator permission.Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		invalidator: invalidator,
		logger:      logger,
	}
}

var (
	ErrNotFound   = internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
	ErrSystemRole = internal.NewForbiddenError("Cannot delete a system role", internal.ErrCodeSystemRole)
	ErrInvalidIDs = internal.NewBadRequestError("Some role IDs are invalid", internal.ErrCodeInvalidRoles)
)

func conflictName(name string) error {
	return internal.NewConflictError(fmt.Sprintf("Role with name '%s' already exists", name), internal.ErrCodeRoleExists)
}

func (s *Service) Create(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil {
		return nil, conflictName(dto.Name)
	}

	perms, err := s.permissions.ResolveIDs(ctx, dto.PermissionIDs)
	if err != nil {
		return nil, err
	}

	r := &rbac.Role{
		ID:          uuid.NewString(),
		Name:        dto.Name,
		IsDefault:   dto.IsDefault,
		IsSystem:    dto.IsSystem,
		Permissions: perms,
	}
	if dto.Description != nil {
		r.Description = *dto.Description
	}

	if err := s.repo.Create(ctx, r); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictName(dto.Name)
		}
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "role_id", r.ID, "name", r.Name, "permissions", len(perms))
	return s.Get(ctx, r.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*Role, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(r), nil
}

func (s *Service) List(ctx context.Context, params pagination.CursorParams) (pagination.Page[*Role], error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return pagination.Page[*Role]{}, err
		}
		return pagination.Page[*Role]{}, internal.NewInternalError("failed to list roles", err)
	}
	page := pagination.BuildPage(rows, params, CursorOf(params.OrderBy))
	return pagination.MapPage(page, FromDataModel), nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateRoleDTO) (*Role, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	renamed := dto.Name != nil && *dto.Name != r.Name
	if renamed {
		existing, err := s.repo.GetByName(ctx, *dto.Name)
		if err != nil {
			return nil, internal.NewInternalError("failed to check role name", err)
		}
		if existing != nil {
			return nil, conflictName(*dto.Name)
		}
		r.Name = *dto.Name
	}

	replace := dto.PermissionIDs != nil
	if replace {
		perms, err := s.permissions.ResolveIDs(ctx, dto.PermissionIDs)
		if err != nil {
			return nil, err
		}
		r.Permissions = perms
	}

	if dto.Description != nil {
		r.Description = *dto.Description
	}
	if dto.IsDefault != nil {
		r.IsDefault = *dto.IsDefault
	}
	if dto.IsSystem != nil {
		r.IsSystem = *dto.IsSystem
	}

	if err := s.repo.Update(ctx, r, replace); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictName(r.Name)
		}
		return nil, internal.NewInternalError("failed to update role", err)
	}

	// Cached grants carry role names, so a rename is an RBAC change too.
	if replace || renamed {
		s.invalidate(ctx)
	}
	return s.Get(ctx, r.ID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if r.IsSystem {
		return ErrSystemRole
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}

	s.logger.Info("role deleted", "role_id", id, "name", r.Name)
	s.invalidate(ctx)
	return nil
}

// Default returns the role given to new users, or nil when none is marked default.
func (s *Service) Default(ctx context.Context) (*rbac.Role, error) {
	r, err := s.repo.GetDefault(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load default role", err)
	}
	return r, nil
}

// ResolveIDs loads roles by id and fails when any id is unknown.
func (s *Service) ResolveIDs(ctx context.Context, ids []string) ([]rbac.Role, error) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, ErrInvalidIDs
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return []rbac.Role{}, nil
	}

	roles, err := s.repo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, internal.NewInternalError("failed to load roles", err)
	}
	if len(roles) != len(unique) {
		return nil, ErrInvalidIDs
	}
	return roles, nil
}

func (s *Service) load(ctx context.Context, id string) (*rbac.Role, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate permission cache", "error", err)
	}
}
