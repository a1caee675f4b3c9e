package twofactor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	authPostgres "github.com/frahmantamala/rbac-api/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/testutil"
	"github.com/frahmantamala/rbac-api/internal/twofactor"
	twofactorPostgres "github.com/frahmantamala/rbac-api/internal/twofactor/postgres"
)

var _ auth.TwoFactorVerifier = (*twofactor.Service)(nil)

const password = "s3cret-pass"

func statusOf(err error) int {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected *internal.AppError, got %v", err)
	return appErr.StatusCode
}

func seedUser(db *gorm.DB) *auth.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	Expect(err).NotTo(HaveOccurred())

	u := userDatamodel.User{
		ID:           uuid.NewString(),
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		FirstName:    "Jane",
		LastName:     "Doe",
		IsActive:     true,
	}
	Expect(db.Create(&u).Error).To(Succeed())
	return &auth.User{ID: u.ID, Email: u.Email, IsActive: true}
}

func currentCode(secret string) string {
	code, err := totp.GenerateCode(secret, time.Now())
	Expect(err).NotTo(HaveOccurred())
	return code
}

var _ = Describe("TwoFactor Service", func() {
	var (
		service *twofactor.Service
		user    *auth.User
		ctx     context.Context
	)

	BeforeEach(func() {
		db, err := testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		service = twofactor.NewService(
			twofactorPostgres.NewTwoFactorRepository(db),
			authPostgres.NewRepository(db),
			"rbac-api-test",
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)
		user = seedUser(db)
		ctx = context.Background()
	})

	It("reports a disabled state before setup", func() {
		st, err := service.Status(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.IsEnabled).To(BeFalse())
		Expect(st.RemainingBackupCodes).To(BeZero())

		enabled, err := service.IsEnabled(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(enabled).To(BeFalse())
	})

	It("refuses to enable before setup", func() {
		err := service.Enable(ctx, user.ID, twofactor.EnableDTO{TOTPCode: "123456"})
		Expect(errors.Is(err, twofactor.ErrNotSetUp)).To(BeTrue())
		Expect(statusOf(err)).To(Equal(http.StatusBadRequest))
	})

	Describe("after setup", func() {
		var setup *twofactor.SetupResponse

		BeforeEach(func() {
			var err error
			setup, err = service.Setup(ctx, user)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns a secret, provisioning URI, QR code and ten backup codes", func() {
			Expect(setup.SecretKey).NotTo(BeEmpty())
			Expect(setup.ProvisioningURI).To(HavePrefix("otpauth://totp/"))
			Expect(setup.ProvisioningURI).To(ContainSubstring("issuer=rbac-api-test"))
			Expect(setup.QRCode).To(HavePrefix("data:image/png;base64,"))
			Expect(setup.BackupCodes).To(HaveLen(10))

			st, err := service.Status(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.IsEnabled).To(BeFalse())
			Expect(st.RemainingBackupCodes).To(Equal(10))
		})

		It("rejects a wrong code on enable", func() {
			err := service.Enable(ctx, user.ID, twofactor.EnableDTO{TOTPCode: "abcdef"})
			Expect(errors.Is(err, twofactor.ErrInvalidCode)).To(BeTrue())
		})

		It("enables with a valid code and then verifies login codes", func() {
			Expect(service.Enable(ctx, user.ID, twofactor.EnableDTO{TOTPCode: currentCode(setup.SecretKey)})).To(Succeed())

			enabled, err := service.IsEnabled(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(enabled).To(BeTrue())

			ok, err := service.VerifyCode(ctx, user.ID, currentCode(setup.SecretKey))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			st, err := service.Status(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.LastUsedAt).NotTo(BeNil())
		})

		It("refuses a second setup while enabled", func() {
			Expect(service.Enable(ctx, user.ID, twofactor.EnableDTO{TOTPCode: currentCode(setup.SecretKey)})).To(Succeed())

			_, err := service.Setup(ctx, user)
			Expect(errors.Is(err, twofactor.ErrAlreadyEnabled)).To(BeTrue())
		})

		It("consumes a backup code once", func() {
			Expect(service.Enable(ctx, user.ID, twofactor.EnableDTO{TOTPCode: currentCode(setup.SecretKey)})).To(Succeed())
			backup := setup.BackupCodes[0]

			ok, err := service.VerifyCode(ctx, user.ID, strings.ToLower(backup))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = service.VerifyCode(ctx, user.ID, backup)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			st, err := service.Status(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.RemainingBackupCodes).To(Equal(9))
		})

		Describe("Disable", func() {
			It("requires 2FA to be enabled", func() {
				err := service.Disable(ctx, user, twofactor.DisableDTO{Password: password, TOTPCode: currentCode(setup.SecretKey)})
				Expect(errors.Is(err, twofactor.ErrNotEnabled)).To(BeTrue())
			})

			Context("when enabled", func() {
				BeforeEach(func() {
					Expect(service.Enable(ctx, user.ID, twofactor.EnableDTO{TOTPCode: currentCode(setup.SecretKey)})).To(Succeed())
				})

				It("rejects a wrong password with 401", func() {
					err := service.Disable(ctx, user, twofactor.DisableDTO{Password: "wrong-pass", TOTPCode: currentCode(setup.SecretKey)})
					Expect(statusOf(err)).To(Equal(http.StatusUnauthorized))
				})

				It("rejects an unknown code", func() {
					err := service.Disable(ctx, user, twofactor.DisableDTO{Password: password, TOTPCode: "NOTACODE"})
					Expect(errors.Is(err, twofactor.ErrInvalidCode)).To(BeTrue())
				})

				It("disables with a backup code and consumes it", func() {
					Expect(service.Disable(ctx, user, twofactor.DisableDTO{Password: password, TOTPCode: setup.BackupCodes[1]})).To(Succeed())

					st, err := service.Status(ctx, user.ID)
					Expect(err).NotTo(HaveOccurred())
					Expect(st.IsEnabled).To(BeFalse())
					Expect(st.RemainingBackupCodes).To(Equal(9))
				})
			})
		})
	})
})
