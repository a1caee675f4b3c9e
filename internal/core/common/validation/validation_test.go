package validation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/core/common/validation"
)

type signup struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Phone    *string  `json:"phone_number" validate:"omitempty,phone"`
	RoleIDs  []string `json:"role_ids" validate:"omitempty,dive,uuid"`
}

func fieldsOf(err error) map[string]string {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	out := map[string]string{}
	for _, fe := range appErr.Details.(internal.ValidationErrors).Errors {
		out[fe.Field] = fe.Message
	}
	return out
}

var _ = Describe("Struct", func() {
	It("passes a valid value", func() {
		phone := "+62 812-3456-7890"
		Expect(validation.Struct(signup{Email: "a@b.co", Password: "long-enough", Phone: &phone})).To(Succeed())
	})

	It("reports json field names with readable messages", func() {
		err := validation.Struct(signup{Email: "nope", Password: "short"})
		fields := fieldsOf(err)
		Expect(fields).To(HaveKeyWithValue("email", "email must be a valid email address"))
		Expect(fields).To(HaveKeyWithValue("password", "password must be at least 8 characters"))
	})

	It("validates phone numbers and nested ids", func() {
		phone := "12345"
		err := validation.Struct(signup{Email: "a@b.co", Password: "long-enough", Phone: &phone, RoleIDs: []string{"not-a-uuid"}})
		fields := fieldsOf(err)
		Expect(fields).To(HaveKeyWithValue("phone_number", "Phone number must be between 10 and 15 digits"))
		Expect(fields).To(HaveKey("role_ids[0]"))
	})
})

var _ = Describe("Var", func() {
	It("reports the given field", func() {
		err := validation.Var("token", "", "required")
		Expect(fieldsOf(err)).To(HaveKeyWithValue("token", "token is required"))
	})

	It("accepts a valid value", func() {
		Expect(validation.Var("token", "abc", "required,max=10")).To(Succeed())
	})
})

var _ = Describe("NormalizePhone", func() {
	DescribeTable("normalises to +digits",
		func(in, want string) {
			got, err := validation.NormalizePhone(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("formatted", "+1 (555) 010-9999", "+15550109999"),
		Entry("plain", "081234567890", "+081234567890"),
	)

	It("rejects too few or too many digits", func() {
		_, err := validation.NormalizePhone("555-0199")
		Expect(err).To(HaveOccurred())
		_, err = validation.NormalizePhone("1234567890123456")
		Expect(err).To(HaveOccurred())
	})
})
