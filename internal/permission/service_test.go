package permission_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/core/common/pagination"
	"github.com/frahmantamala/rbac-api/internal/permission"
	permissionPostgres "github.com/frahmantamala/rbac-api/internal/permission/postgres"
	"github.com/frahmantamala/rbac-api/internal/testutil"
)

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

var _ = Describe("Permission Service", func() {
	var (
		service     *permission.Service
		invalidator *countingInvalidator
		ctx         context.Context
	)

	BeforeEach(func() {
		db, err := testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		invalidator = &countingInvalidator{}
		service = permission.NewService(permissionPostgres.NewPermissionRepository(db), invalidator, slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("creates a permission", func() {
			p, err := service.Create(ctx, permission.CreatePermissionDTO{Name: "Create users", Code: "user:create", Description: strPtr("create")})
			Expect(err).NotTo(HaveOccurred())
			Expect(uuid.Parse(p.ID)).Error().NotTo(HaveOccurred())
			Expect(p.Code).To(Equal("user:create"))
			Expect(*p.Description).To(Equal("create"))
		})

		It("rejects a duplicate code with 409", func() {
			_, err := service.Create(ctx, permission.CreatePermissionDTO{Name: "A", Code: "user:create"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, permission.CreatePermissionDTO{Name: "B", Code: "user:create"})
			Expect(statusOf(err)).To(Equal(http.StatusConflict))
		})

		It("rejects a duplicate name with 409", func() {
			_, err := service.Create(ctx, permission.CreatePermissionDTO{Name: "A", Code: "a:one"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, permission.CreatePermissionDTO{Name: "A", Code: "a:two"})
			Expect(statusOf(err)).To(Equal(http.StatusConflict))
		})

		It("requires name and code", func() {
			_, err := service.Create(ctx, permission.CreatePermissionDTO{})
			Expect(statusOf(err)).To(Equal(http.StatusUnprocessableEntity))
		})
	})

	Describe("Update", func() {
		var existing *permission.Permission

		BeforeEach(func() {
			var err error
			existing, err = service.Create(ctx, permission.CreatePermissionDTO{Name: "Read", Code: "item:read"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, permission.CreatePermissionDTO{Name: "Write", Code: "item:write"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("changes the code and drops cached grants", func() {
			p, err := service.Update(ctx, existing.ID, permission.UpdatePermissionDTO{Code: strPtr("item:view")})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Code).To(Equal("item:view"))
			Expect(p.Name).To(Equal("Read"))
			Expect(invalidator.calls).To(Equal(1))
		})

		It("allows keeping its own name", func() {
			_, err := service.Update(ctx, existing.ID, permission.UpdatePermissionDTO{Name: strPtr("Read")})
			Expect(err).NotTo(HaveOccurred())
			Expect(invalidator.calls).To(BeZero())
		})

		It("rejects taking another permission's code", func() {
			_, err := service.Update(ctx, existing.ID, permission.UpdatePermissionDTO{Code: strPtr("item:write")})
			Expect(statusOf(err)).To(Equal(http.StatusConflict))
		})

		It("returns 404 for an unknown id", func() {
			_, err := service.Update(ctx, uuid.NewString(), permission.UpdatePermissionDTO{Name: strPtr("x")})
			Expect(errors.Is(err, permission.ErrNotFound)).To(BeTrue())
		})
	})

	It("deletes a permission", func() {
		p, err := service.Create(ctx, permission.CreatePermissionDTO{Name: "Tmp", Code: "tmp:x"})
		Expect(err).NotTo(HaveOccurred())

		Expect(service.Delete(ctx, p.ID)).To(Succeed())
		_, err = service.Get(ctx, p.ID)
		Expect(errors.Is(err, permission.ErrNotFound)).To(BeTrue())
		Expect(invalidator.calls).To(Equal(1))
	})

	Describe("ResolveIDs", func() {
		It("returns all requested permissions", func() {
			a, _ := service.Create(ctx, permission.CreatePermissionDTO{Name: "A", Code: "a"})
			b, _ := service.Create(ctx, permission.CreatePermissionDTO{Name: "B", Code: "b"})

			perms, err := service.ResolveIDs(ctx, []string{a.ID, b.ID, a.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(HaveLen(2))
		})

		It("fails with 400 when any id is unknown", func() {
			a, _ := service.Create(ctx, permission.CreatePermissionDTO{Name: "A", Code: "a"})

			_, err := service.ResolveIDs(ctx, []string{a.ID, uuid.NewString()})
			Expect(errors.Is(err, permission.ErrInvalidIDs)).To(BeTrue())
			Expect(statusOf(err)).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for _, code := range []string{"c:1", "c:2", "c:3", "c:4", "c:5"} {
				_, err := service.Create(ctx, permission.CreatePermissionDTO{Name: "name " + code, Code: code})
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("walks pages without overlap", func() {
			params := pagination.CursorParams{Limit: 2, OrderBy: "code", Direction: pagination.Forward}

			var seen []string
			for i := 0; i < 5; i++ {
				page, err := service.List(ctx, params)
				Expect(err).NotTo(HaveOccurred())
				for _, p := range page.Items {
					seen = append(seen, p.Code)
				}
				if !page.HasNext {
					break
				}
				params.Cursor = *page.NextCursor
			}

			Expect(seen).To(Equal([]string{"c:1", "c:2", "c:3", "c:4", "c:5"}))
		})

		It("orders backward", func() {
			page, err := service.List(ctx, pagination.CursorParams{Limit: 2, OrderBy: "code", Direction: pagination.Backward})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(2))
			Expect(page.Items[0].Code).To(Equal("c:5"))
			Expect(page.HasNext).To(BeTrue())
			Expect(page.HasPrevious).To(BeFalse())
		})

		It("rejects a malformed cursor with 400", func() {
			_, err := service.List(ctx, pagination.CursorParams{Cursor: "%%%", Limit: 2})
			Expect(statusOf(err)).To(Equal(http.StatusBadRequest))
		})
	})
})
