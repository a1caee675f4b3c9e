package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal"
)

var _ = Describe("AppError", func() {
	It("matches sentinels through wrapping", func() {
		wrapped := fmt.Errorf("login: %w", internal.ErrInvalidCredentials.WithCause(errors.New("bcrypt mismatch")))

		Expect(errors.Is(wrapped, internal.ErrInvalidCredentials)).To(BeTrue())
		Expect(errors.Is(wrapped, internal.ErrNotAuthenticated)).To(BeFalse())

		appErr, ok := internal.IsAppError(wrapped)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("does not mutate the sentinel when adding a cause", func() {
		_ = internal.ErrNotAuthenticated.WithCause(errors.New("expired"))
		Expect(internal.ErrNotAuthenticated.Cause).To(BeNil())
	})

	It("renders the error envelope", func() {
		status, body := internal.NewConflictError("Role with name 'admin' already exists", internal.ErrCodeRoleExists).ToHTTPResponse()
		Expect(status).To(Equal(http.StatusConflict))

		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(MatchJSON(`{"error":{"type":"CONFLICT","code":"ROLE_EXISTS","message":"Role with name 'admin' already exists"}}`))
	})

	It("joins field messages for validation errors", func() {
		err := internal.NewValidationFieldErrors([]internal.ValidationError{
			{Field: "email", Message: "email is required"},
			{Field: "password", Message: "password is required"},
		})
		Expect(err.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(err.GetDetailedMessage()).To(Equal("email is required; password is required"))
	})

	It("keeps the cause out of the client body", func() {
		err := internal.NewInternalError("failed to load user", errors.New("connection reset"))
		Expect(err.Error()).To(ContainSubstring("connection reset"))

		raw, _ := json.Marshal(err)
		Expect(string(raw)).NotTo(ContainSubstring("connection reset"))
	})
})
