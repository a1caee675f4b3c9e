package user_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal"
	authPostgres "github.com/frahmantamala/rbac-api/internal/auth/postgres"
	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/core/events"
	"github.com/frahmantamala/rbac-api/internal/permission"
	permissionPostgres "github.com/frahmantamala/rbac-api/internal/permission/postgres"
	"github.com/frahmantamala/rbac-api/internal/role"
	rolePostgres "github.com/frahmantamala/rbac-api/internal/role/postgres"
	"github.com/frahmantamala/rbac-api/internal/testutil"
	"github.com/frahmantamala/rbac-api/internal/user"
	userPostgres "github.com/frahmantamala/rbac-api/internal/user/postgres"
)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func statusOf(err error) int {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected *internal.AppError, got %v", err)
	return appErr.StatusCode
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type fixture struct {
	db          *gorm.DB
	service     *user.Service
	roles       *role.Service
	permissions *permission.Service
	publisher   *recordingPublisher
	invalidator *countingInvalidator
}

func newFixture() fixture {
	db, err := testutil.NewDB()
	Expect(err).NotTo(HaveOccurred())

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fixture{
		db:          db,
		publisher:   &recordingPublisher{},
		invalidator: &countingInvalidator{},
	}
	f.permissions = permission.NewService(permissionPostgres.NewPermissionRepository(db), nil, lg)
	f.roles = role.NewService(rolePostgres.NewRoleRepository(db), f.permissions, nil, lg)
	f.service = user.NewService(userPostgres.NewUserRepository(db), f.roles, f.permissions, lg).
		WithPublisher(f.publisher).
		WithInvalidator(f.invalidator).
		WithBCryptCost(bcrypt.MinCost)
	return f
}

func newUserDTO(email string) user.CreateUserDTO {
	return user.CreateUserDTO{
		Email:     email,
		Password:  "s3cret-pass",
		FirstName: "Jane",
		LastName:  "Doe",
	}
}

var _ = Describe("User Service", func() {
	var (
		f   fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("assigns the default role and announces the user", func() {
			_, err := f.roles.Create(ctx, role.CreateRoleDTO{Name: "user", IsDefault: true})
			Expect(err).NotTo(HaveOccurred())

			u, err := f.service.Create(ctx, newUserDTO("Jane@Example.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("jane@example.com"))
			Expect(u.IsActive).To(BeTrue())
			Expect(u.IsVerified).To(BeFalse())
			Expect(u.Roles).To(HaveLen(1))
			Expect(u.Roles[0].Name).To(Equal("user"))

			Expect(f.publisher.events).To(HaveLen(1))
			Expect(f.publisher.events[0].EventType()).To(Equal(events.EventTypeUserCreated))
		})

		It("works without a default role", func() {
			u, err := f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Roles).To(BeEmpty())
		})

		It("hashes the password", func() {
			u, err := f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(err).NotTo(HaveOccurred())

			creds, err := authPostgres.NewRepository(f.db).GetCredentialsByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.PasswordHash).NotTo(Equal("s3cret-pass"))
			Expect(bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte("s3cret-pass"))).To(Succeed())
		})

		It("normalizes the phone number", func() {
			dto := newUserDTO("jane@example.com")
			dto.PhoneNumber = strPtr("(555) 123-4567")

			u, err := f.service.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(*u.PhoneNumber).To(Equal("+5551234567"))
		})

		It("rejects a taken email with 409", func() {
			_, err := f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, err = f.service.Create(ctx, newUserDTO("JANE@example.com"))
			Expect(statusOf(err)).To(Equal(http.StatusConflict))
		})

		It("rejects a taken phone with 409", func() {
			a := newUserDTO("a@example.com")
			a.PhoneNumber = strPtr("+15551234567")
			_, err := f.service.Create(ctx, a)
			Expect(err).NotTo(HaveOccurred())

			b := newUserDTO("b@example.com")
			b.PhoneNumber = strPtr("1 555 123 4567")
			_, err = f.service.Create(ctx, b)
			Expect(statusOf(err)).To(Equal(http.StatusConflict))
		})

		It("rejects a short password with 422", func() {
			dto := newUserDTO("jane@example.com")
			dto.Password = "short"
			_, err := f.service.Create(ctx, dto)
			Expect(statusOf(err)).To(Equal(http.StatusUnprocessableEntity))
		})
	})

	Describe("Update and Delete", func() {
		var u *user.User

		BeforeEach(func() {
			var err error
			u, err = f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("updates account flags", func() {
			got, err := f.service.Update(ctx, u.ID, user.UpdateUserDTO{IsActive: boolPtr(false), FirstName: strPtr("Janet")})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
			Expect(got.FirstName).To(Equal("Janet"))
			Expect(got.LastName).To(Equal("Doe"))
		})

		It("soft deletes and hides the user", func() {
			Expect(f.service.Delete(ctx, u.ID)).To(Succeed())

			_, err := f.service.Get(ctx, u.ID, false)
			Expect(errors.Is(err, user.ErrNotFound)).To(BeTrue())

			deleted, err := f.service.Get(ctx, u.ID, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted.DeletedAt).NotTo(BeNil())

			creds, err := authPostgres.NewRepository(f.db).GetCredentialsByEmail(ctx, "jane@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(creds).To(BeNil())
		})

		It("keeps a deleted user's email reserved", func() {
			Expect(f.service.Delete(ctx, u.ID)).To(Succeed())

			_, err := f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(statusOf(err)).To(Equal(http.StatusConflict))
		})

		It("returns 404 for an unknown user", func() {
			_, err := f.service.Update(ctx, uuid.NewString(), user.UpdateUserDTO{})
			Expect(statusOf(err)).To(Equal(http.StatusNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for _, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
				_, err := f.service.Create(ctx, newUserDTO(email))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("orders by email", func() {
			page, err := f.service.List(ctx, pagination.CursorParams{Limit: 10, OrderBy: "email", Direction: pagination.Forward})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(3))
			Expect(page.Items[0].Email).To(Equal("a@example.com"))
			Expect(page.HasNext).To(BeFalse())
		})

		It("excludes deleted users unless asked", func() {
			page, err := f.service.List(ctx, pagination.CursorParams{Limit: 10, OrderBy: "email"})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.service.Delete(ctx, page.Items[0].ID)).To(Succeed())

			page, err = f.service.List(ctx, pagination.CursorParams{Limit: 10, OrderBy: "email"})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(2))

			page, err = f.service.List(ctx, pagination.CursorParams{Limit: 10, OrderBy: "email", IncludeDeleted: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(3))
		})
	})

	Describe("roles and permissions", func() {
		var (
			u      *user.User
			editor *role.Role
			audit  *permission.Permission
		)

		BeforeEach(func() {
			var err error
			u, err = f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(err).NotTo(HaveOccurred())

			read, err := f.permissions.Create(ctx, permission.CreatePermissionDTO{Name: "Read docs", Code: "doc:read"})
			Expect(err).NotTo(HaveOccurred())
			audit, err = f.permissions.Create(ctx, permission.CreatePermissionDTO{Name: "Audit", Code: "audit:read"})
			Expect(err).NotTo(HaveOccurred())
			editor, err = f.roles.Create(ctx, role.CreateRoleDTO{Name: "editor", PermissionIDs: []string{read.ID}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("combines role and direct grants into the effective set", func() {
			_, err := f.service.AssignRoles(ctx, u.ID, user.AssignRolesDTO{RoleIDs: []string{editor.ID}})
			Expect(err).NotTo(HaveOccurred())
			got, err := f.service.GrantPermissions(ctx, u.ID, user.GrantPermissionsDTO{PermissionIDs: []string{audit.ID}})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Roles).To(HaveLen(1))
			Expect(got.Permissions).To(HaveLen(1))

			roles, perms, err := authPostgres.NewRepository(f.db).GetGrants(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(ConsistOf("editor"))
			Expect(perms).To(ConsistOf("doc:read", "audit:read"))
			Expect(f.invalidator.calls).To(Equal(2))
		})

		It("assigns the same role twice without error", func() {
			_, err := f.service.AssignRoles(ctx, u.ID, user.AssignRolesDTO{RoleIDs: []string{editor.ID}})
			Expect(err).NotTo(HaveOccurred())
			got, err := f.service.AssignRoles(ctx, u.ID, user.AssignRolesDTO{RoleIDs: []string{editor.ID}})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Roles).To(HaveLen(1))
		})

		It("removes a role and revokes a permission", func() {
			_, err := f.service.AssignRoles(ctx, u.ID, user.AssignRolesDTO{RoleIDs: []string{editor.ID}})
			Expect(err).NotTo(HaveOccurred())
			_, err = f.service.GrantPermissions(ctx, u.ID, user.GrantPermissionsDTO{PermissionIDs: []string{audit.ID}})
			Expect(err).NotTo(HaveOccurred())

			got, err := f.service.RemoveRole(ctx, u.ID, editor.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Roles).To(BeEmpty())

			got, err = f.service.RevokePermission(ctx, u.ID, audit.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Permissions).To(BeEmpty())
		})

		It("rejects unknown role ids with 400", func() {
			_, err := f.service.AssignRoles(ctx, u.ID, user.AssignRolesDTO{RoleIDs: []string{uuid.NewString()}})
			Expect(statusOf(err)).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when removing an unknown role", func() {
			_, err := f.service.RemoveRole(ctx, u.ID, uuid.NewString())
			Expect(errors.Is(err, role.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("self service", func() {
		var u *user.User

		BeforeEach(func() {
			var err error
			u, err = f.service.Create(ctx, newUserDTO("jane@example.com"))
			Expect(err).NotTo(HaveOccurred())
			f.publisher.events = nil
		})

		It("changes the password after checking the current one", func() {
			err := f.service.ChangePassword(ctx, u.ID, user.ChangePasswordDTO{CurrentPassword: "wrong-pass", NewPassword: "another-pass"})
			Expect(errors.Is(err, user.ErrIncorrectPassword)).To(BeTrue())
			Expect(statusOf(err)).To(Equal(http.StatusBadRequest))

			Expect(f.service.ChangePassword(ctx, u.ID, user.ChangePasswordDTO{CurrentPassword: "s3cret-pass", NewPassword: "another-pass"})).To(Succeed())

			creds, err := authPostgres.NewRepository(f.db).GetCredentialsByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte("another-pass"))).To(Succeed())
			Expect(f.publisher.events).To(HaveLen(1))
			Expect(f.publisher.events[0].EventType()).To(Equal(events.EventTypePasswordChanged))
		})

		It("updates names and clears the middle name", func() {
			got, err := f.service.UpdateProfile(ctx, u.ID, user.UpdateProfileDTO{MiddleName: strPtr("Q")})
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.MiddleName).To(Equal("Q"))

			got, err = f.service.UpdateProfile(ctx, u.ID, user.UpdateProfileDTO{MiddleName: strPtr("")})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.MiddleName).To(BeNil())
		})

		It("marks the user verified", func() {
			got, err := f.service.Verify(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsVerified).To(BeTrue())
		})
	})
})
