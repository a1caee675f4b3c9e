package permission

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
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *rbac.Permission) error
	Update(ctx context.Context, p *rbac.Permission) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*rbac.Permission, error)
	GetByName(ctx context.Context, name string) (*rbac.Permission, error)
	GetByCode(ctx context.Context, code string) (*rbac.Permission, error)
	GetByIDs(ctx context.Context, ids []string) ([]rbac.Permission, error)
	List(ctx context.Context, params pagination.CursorParams) ([]*rbac.Permission, error)
}

// Invalidator drops cached authorization data after a change.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	repo        RepositoryAPI
	invalidator Invalidator
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
	}
}

var (
	ErrNotFound   = internal.NewNotFoundError("Permission not found", internal.ErrCodePermissionNotFound)
	ErrInvalidIDs = internal.NewBadRequestError("Some permission IDs are invalid", internal.ErrCodeInvalidPermissions)
)

func conflictName(name string) error {
	return internal.NewConflictError(fmt.Sprintf("Permission with name '%s' already exists", name), internal.ErrCodePermissionExists)
}

func conflictCode(code string) error {
	return internal.NewConflictError(fmt.Sprintf("Permission with code '%s' already exists", code), internal.ErrCodePermissionExists)
}

func (s *Service) Create(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, "", dto.Name, dto.Code); err != nil {
		return nil, err
	}

	p := &rbac.Permission{
		ID:   uuid.NewString(),
		Name: dto.Name,
		Code: dto.Code,
	}
	if dto.Description != nil {
		p.Description = *dto.Description
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictCode(dto.Code)
		}
		return nil, internal.NewInternalError("failed to create permission", err)
	}

	s.logger.Info("permission created", "permission_id", p.ID, "code", p.Code)
	return FromDataModel(p), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Permission, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return FromDataModel(p), nil
}

func (s *Service) List(ctx context.Context, params pagination.CursorParams) (pagination.Page[*Permission], error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return pagination.Page[*Permission]{}, err
		}
		return pagination.Page[*Permission]{}, internal.NewInternalError("failed to list permissions", err)
	}
	page := pagination.BuildPage(rows, params, CursorOf(params.OrderBy))
	return pagination.MapPage(page, FromDataModel), nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdatePermissionDTO) (*Permission, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}

	var name, code string
	if dto.Name != nil && *dto.Name != p.Name {
		name = *dto.Name
	}
	if dto.Code != nil && *dto.Code != p.Code {
		code = *dto.Code
	}
	if err := s.ensureUnique(ctx, p.ID, name, code); err != nil {
		return nil, err
	}

	if name != "" {
		p.Name = name
	}
	codeChanged := code != ""
	if codeChanged {
		p.Code = code
	}
	if dto.Description != nil {
		p.Description = *dto.Description
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictCode(p.Code)
		}
		return nil, internal.NewInternalError("failed to update permission", err)
	}

	if codeChanged {
		s.invalidate(ctx)
	}
	return FromDataModel(p), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to load permission", err)
	}
	if p == nil {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete permission", err)
	}

	s.logger.Info("permission deleted", "permission_id", id, "code", p.Code)
	s.invalidate(ctx)
	return nil
}

// ResolveIDs loads permissions by id and fails when any id is unknown.
func (s *Service) ResolveIDs(ctx context.Context, ids []string) ([]rbac.Permission, error) {
	if len(ids) == 0 {
		return []rbac.Permission{}, nil
	}
	unique := dedupe(ids)
	for _, id := range unique {
		if _, err := uuid.Parse(id); err != nil {
			return nil, ErrInvalidIDs
		}
	}

	perms, err := s.repo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	if len(perms) != len(unique) {
		return nil, ErrInvalidIDs
	}
	return perms, nil
}

func (s *Service) ensureUnique(ctx context.Context, selfID, name, code string) error {
	if name != "" {
		existing, err := s.repo.GetByName(ctx, name)
		if err != nil {
			return internal.NewInternalError("failed to check permission name", err)
		}
		if existing != nil && existing.ID != selfID {
			return conflictName(name)
		}
	}
	if code != "" {
		existing, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			return internal.NewInternalError("failed to check permission code", err)
		}
		if existing != nil && existing.ID != selfID {
			return conflictCode(code)
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate permission cache", "error", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
