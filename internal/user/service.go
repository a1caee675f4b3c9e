package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/common/validation"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/core/events"
	"github.com/frahmantamala/rbac-api/internal/permission"
	"github.com/frahmantamala/rbac-api/internal/role"
)

type RepositoryAPI interface {
	// Create inserts the user and assigns roleIDs in one transaction.
	Create(ctx context.Context, u *userDatamodel.User, roleIDs []string) error
	Update(ctx context.Context, u *userDatamodel.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Delete(ctx context.Context, userID string) error
	// GetByID preloads roles (with their permissions) and direct permissions.
	GetByID(ctx context.Context, userID string, includeDeleted bool) (*userDatamodel.User, error)
	// GetByEmail and GetByPhone also see soft-deleted rows, which keep their unique values.
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByPhone(ctx context.Context, phone string) (*userDatamodel.User, error)
	List(ctx context.Context, params pagination.CursorParams) ([]*userDatamodel.User, error)
	AddRoles(ctx context.Context, userID string, roleIDs []string) error
	RemoveRoles(ctx context.Context, userID string, roleIDs []string) error
	AddPermissions(ctx context.Context, userID string, permissionIDs []string) error
	RemovePermissions(ctx context.Context, userID string, permissionIDs []string) error
}

type RoleResolver interface {
	Default(ctx context.Context) (*rbac.Role, error)
	ResolveIDs(ctx context.Context, ids []string) ([]rbac.Role, error)
}

type PermissionResolver interface {
	ResolveIDs(ctx context.Context, ids []string) ([]rbac.Permission, error)
}

type Service struct {
	repo        RepositoryAPI
	roles       RoleResolver
	permissions PermissionResolver
	invalidator permission.Invalidator
	publisher   events.Publisher
	logger      *slog.Logger
	cost        int
}

func NewService(repo RepositoryAPI, roles RoleResolver, permissions PermissionResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		roles:       roles,
		permissions: permissions,
		logger:      logger,
		cost:        bcrypt.DefaultCost,
	}
}

func (s *Service) WithInvalidator(inv permission.Invalidator) *Service {
	s.invalidator = inv
	return s
}

func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithBCryptCost(cost int) *Service {
	if cost > 0 {
		s.cost = cost
	}
	return s
}

var (
	ErrNotFound          = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
	ErrIncorrectPassword = internal.NewBadRequestError("Current password is incorrect", internal.ErrCodeInvalidPassword)
)

func emailTaken(email string) error {
	return internal.NewConflictError(fmt.Sprintf("Email %s is already taken", email), internal.ErrCodeEmailTaken)
}

func phoneTaken(phone string) error {
	return internal.NewConflictError(fmt.Sprintf("Phone number %s is already taken", phone), internal.ErrCodePhoneTaken)
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	email := auth.NormalizeEmail(dto.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	phone, err := s.normalizePhone(ctx, "", dto.PhoneNumber)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.cost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	var roleIDs []string
	def, err := s.roles.Default(ctx)
	if err != nil {
		return nil, err
	}
	if def != nil {
		roleIDs = append(roleIDs, def.ID)
	}

	u := &userDatamodel.User{
		ID:           uuid.NewString(),
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: hash,
		FirstName:    dto.FirstName,
		MiddleName:   dto.MiddleName,
		LastName:     dto.LastName,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u, roleIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken(email)
		}
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "default_role", roleIDs)
	s.publish(ctx, events.NewUserCreatedEvent(u.ID, u.Email, u.FirstName))

	return s.Get(ctx, u.ID, false)
}

func (s *Service) Get(ctx context.Context, id string, includeDeleted bool) (*User, error) {
	u, err := s.load(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u), nil
}

func (s *Service) List(ctx context.Context, params pagination.CursorParams) (pagination.Page[*User], error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return pagination.Page[*User]{}, err
		}
		return pagination.Page[*User]{}, internal.NewInternalError("failed to list users", err)
	}
	page := pagination.BuildPage(rows, params, CursorOf(params.OrderBy))
	return pagination.MapPage(page, FromDataModel), nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO) (*User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if err := s.applyProfile(ctx, u, dto.PhoneNumber, dto.FirstName, dto.MiddleName, dto.LastName); err != nil {
		return nil, err
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.IsVerified != nil {
		u.IsVerified = *dto.IsVerified
	}

	return s.save(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id, false); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete user", err)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// AssignRoles adds roles the user does not hold yet.
func (s *Service) AssignRoles(ctx context.Context, id string, dto AssignRolesDTO) (*User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id, false); err != nil {
		return nil, err
	}

	roles, err := s.roles.ResolveIDs(ctx, dto.RoleIDs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddRoles(ctx, id, roleIDs(roles)); err != nil {
		return nil, internal.NewInternalError("failed to assign roles", err)
	}

	s.invalidate(ctx)
	return s.Get(ctx, id, false)
}

func (s *Service) RemoveRole(ctx context.Context, id, roleID string) (*User, error) {
	if _, err := s.load(ctx, id, false); err != nil {
		return nil, err
	}
	if _, err := s.roles.ResolveIDs(ctx, []string{roleID}); err != nil {
		if errors.Is(err, role.ErrInvalidIDs) {
			return nil, role.ErrNotFound
		}
		return nil, err
	}

	if err := s.repo.RemoveRoles(ctx, id, []string{roleID}); err != nil {
		return nil, internal.NewInternalError("failed to remove role", err)
	}

	s.invalidate(ctx)
	return s.Get(ctx, id, false)
}

// GrantPermissions adds direct permissions on top of the user's role grants.
func (s *Service) GrantPermissions(ctx context.Context, id string, dto GrantPermissionsDTO) (*User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id, false); err != nil {
		return nil, err
	}

	perms, err := s.permissions.ResolveIDs(ctx, dto.PermissionIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	if err := s.repo.AddPermissions(ctx, id, ids); err != nil {
		return nil, internal.NewInternalError("failed to grant permissions", err)
	}

	s.invalidate(ctx)
	return s.Get(ctx, id, false)
}

func (s *Service) RevokePermission(ctx context.Context, id, permissionID string) (*User, error) {
	if _, err := s.load(ctx, id, false); err != nil {
		return nil, err
	}
	if _, err := s.permissions.ResolveIDs(ctx, []string{permissionID}); err != nil {
		if errors.Is(err, permission.ErrInvalidIDs) {
			return nil, permission.ErrNotFound
		}
		return nil, err
	}

	if err := s.repo.RemovePermissions(ctx, id, []string{permissionID}); err != nil {
		return nil, internal.NewInternalError("failed to revoke permission", err)
	}

	s.invalidate(ctx)
	return s.Get(ctx, id, false)
}

// UpdateProfile is the self-service update; it cannot touch account flags.
func (s *Service) UpdateProfile(ctx context.Context, id string, dto UpdateProfileDTO) (*User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(ctx, u, dto.PhoneNumber, dto.FirstName, dto.MiddleName, dto.LastName); err != nil {
		return nil, err
	}
	return s.save(ctx, u)
}

func (s *Service) ChangePassword(ctx context.Context, id string, dto ChangePasswordDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	u, err := s.load(ctx, id, false)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		s.logger.Warn("password change rejected: wrong current password", "user_id", id)
		return ErrIncorrectPassword
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.cost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	s.logger.Info("password changed", "user_id", id)
	s.publish(ctx, events.NewPasswordChangedEvent(id, "changed"))
	return nil
}

func (s *Service) Verify(ctx context.Context, id string) (*User, error) {
	u, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return FromDataModel(u), nil
	}
	u.IsVerified = true
	return s.save(ctx, u)
}

func (s *Service) applyProfile(ctx context.Context, u *userDatamodel.User, phone, first, middle, last *string) error {
	if phone != nil {
		normalized, err := s.normalizePhone(ctx, u.ID, phone)
		if err != nil {
			return err
		}
		u.PhoneNumber = normalized
	}
	if first != nil {
		u.FirstName = *first
	}
	if middle != nil {
		if *middle == "" {
			u.MiddleName = nil
		} else {
			m := *middle
			u.MiddleName = &m
		}
	}
	if last != nil {
		u.LastName = *last
	}
	return nil
}

func (s *Service) save(ctx context.Context, u *userDatamodel.User) (*User, error) {
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && u.PhoneNumber != nil {
			return nil, phoneTaken(*u.PhoneNumber)
		}
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return s.Get(ctx, u.ID, false)
}

// normalizePhone returns nil for an empty number and fails when another user holds it.
func (s *Service) normalizePhone(ctx context.Context, selfID string, raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	phone, err := validation.NormalizePhone(*raw)
	if err != nil {
		return nil, internal.NewValidationFieldError("phone_number", "Phone number must be between 10 and 15 digits", internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, internal.NewInternalError("failed to check phone number", err)
	}
	if existing != nil && existing.ID != selfID {
		return nil, phoneTaken(phone)
	}
	return &phone, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return emailTaken(email)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string, includeDeleted bool) (*userDatamodel.User, error) {
	u, err := s.repo.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate permission cache", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}

func roleIDs(roles []rbac.Role) []string {
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}
