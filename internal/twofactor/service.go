package twofactor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/core/common/validation"
	twofactorDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/twofactor"
)

type RepositoryAPI interface {
	// GetByUserID returns nil, nil when the user never set up two-factor auth.
	GetByUserID(ctx context.Context, userID string) (*twofactorDatamodel.TwoFactorAuth, error)
	Save(ctx context.Context, tf *twofactorDatamodel.TwoFactorAuth) error
}

type CredentialsSource interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error)
}

type Service struct {
	repo   RepositoryAPI
	creds  CredentialsSource
	issuer string
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, creds CredentialsSource, issuer string, logger *slog.Logger) *Service {
	if issuer == "" {
		issuer = "rbac-api"
	}
	return &Service{
		repo:   repo,
		creds:  creds,
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

var (
	ErrNotSetUp        = internal.NewBadRequestError("2FA not set up", internal.ErrCodeTwoFactorNotSetUp)
	ErrNotEnabled      = internal.NewBadRequestError("2FA not enabled", internal.ErrCodeTwoFactorNotEnabled)
	ErrAlreadyEnabled  = internal.NewBadRequestError("2FA already enabled", internal.ErrCodeTwoFactorEnabled)
	ErrInvalidCode     = internal.NewBadRequestError("Invalid TOTP code", internal.ErrCodeInvalidTOTP)
	ErrInvalidPassword = internal.NewUnauthorizedError("Invalid password", internal.ErrCodeInvalidPassword)
)

var validateOpts = totp.ValidateOpts{Period: 30, Skew: 1, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}

const qrCodeSize = 200

// Setup issues a fresh secret and backup codes. The record stays disabled until Enable confirms a code.
func (s *Service) Setup(ctx context.Context, user *auth.User) (*SetupResponse, error) {
	existing, err := s.repo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load two-factor settings", err)
	}
	if existing != nil && existing.IsEnabled {
		return nil, ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
		Period:      validateOpts.Period,
		Digits:      validateOpts.Digits,
		Algorithm:   validateOpts.Algorithm,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to generate TOTP secret", err)
	}

	codes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, internal.NewInternalError("failed to generate backup codes", err)
	}
	encoded, err := encodeBackupCodes(codes)
	if err != nil {
		return nil, internal.NewInternalError("failed to encode backup codes", err)
	}

	tf := existing
	if tf == nil {
		tf = &twofactorDatamodel.TwoFactorAuth{ID: uuid.NewString(), UserID: user.ID}
	}
	tf.Secret = key.Secret()
	tf.BackupCodes = encoded
	tf.IsEnabled = false

	if err := s.repo.Save(ctx, tf); err != nil {
		return nil, internal.NewInternalError("failed to save two-factor settings", err)
	}

	qr, err := qrDataURI(key)
	if err != nil {
		s.logger.Warn("failed to render QR code", "user_id", user.ID, "error", err)
	}

	s.logger.Info("two-factor setup started", "user_id", user.ID)
	return &SetupResponse{
		SecretKey:       key.Secret(),
		ProvisioningURI: key.URL(),
		QRCode:          qr,
		BackupCodes:     codes,
	}, nil
}

func (s *Service) Enable(ctx context.Context, userID string, dto EnableDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	tf, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if tf == nil {
		return ErrNotSetUp
	}
	if !s.validTOTP(tf.Secret, dto.TOTPCode) {
		return ErrInvalidCode
	}

	now := s.now()
	tf.IsEnabled = true
	tf.LastUsedAt = &now
	if err := s.repo.Save(ctx, tf); err != nil {
		return internal.NewInternalError("failed to save two-factor settings", err)
	}

	s.logger.Info("two-factor enabled", "user_id", userID)
	return nil
}

func (s *Service) Disable(ctx context.Context, user *auth.User, dto DisableDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	tf, err := s.load(ctx, user.ID)
	if err != nil {
		return err
	}
	if tf == nil || !tf.IsEnabled {
		return ErrNotEnabled
	}

	creds, err := s.creds.GetCredentialsByEmail(ctx, user.Email)
	if err != nil {
		return internal.NewInternalError("failed to load credentials", err)
	}
	if creds == nil || creds.UserID != user.ID || auth.VerifyPassword(creds.PasswordHash, dto.Password) != nil {
		return ErrInvalidPassword
	}

	ok, err := s.checkCode(tf, dto.TOTPCode)
	if err != nil {
		return internal.NewInternalError("failed to read backup codes", err)
	}
	if !ok {
		return ErrInvalidCode
	}

	now := s.now()
	tf.IsEnabled = false
	tf.LastUsedAt = &now
	if err := s.repo.Save(ctx, tf); err != nil {
		return internal.NewInternalError("failed to save two-factor settings", err)
	}

	s.logger.Info("two-factor disabled", "user_id", user.ID)
	return nil
}

func (s *Service) Status(ctx context.Context, userID string) (*StatusResponse, error) {
	tf, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := statusOf(tf)
	if err != nil {
		return nil, internal.NewInternalError("failed to read backup codes", err)
	}
	return st, nil
}

func (s *Service) IsEnabled(ctx context.Context, userID string) (bool, error) {
	tf, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return tf != nil && tf.IsEnabled, nil
}

// VerifyCode checks a login code against the TOTP secret or, failing that, the backup codes.
// A matching backup code is consumed.
func (s *Service) VerifyCode(ctx context.Context, userID, code string) (bool, error) {
	tf, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if tf == nil || !tf.IsEnabled {
		return false, nil
	}

	ok, err := s.checkCode(tf, code)
	if err != nil || !ok {
		return false, err
	}

	now := s.now()
	tf.LastUsedAt = &now
	if err := s.repo.Save(ctx, tf); err != nil {
		return false, fmt.Errorf("save two-factor settings: %w", err)
	}
	return true, nil
}

// checkCode accepts a valid TOTP code, or a backup code which it removes from tf.
func (s *Service) checkCode(tf *twofactorDatamodel.TwoFactorAuth, code string) (bool, error) {
	if s.validTOTP(tf.Secret, code) {
		return true, nil
	}

	codes, err := decodeBackupCodes(tf.BackupCodes)
	if err != nil {
		return false, err
	}
	remaining, ok := consumeBackupCode(codes, strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return false, nil
	}
	encoded, err := encodeBackupCodes(remaining)
	if err != nil {
		return false, err
	}
	tf.BackupCodes = encoded
	return true, nil
}

func (s *Service) validTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), validateOpts)
	return err == nil && ok
}

func (s *Service) load(ctx context.Context, userID string) (*twofactorDatamodel.TwoFactorAuth, error) {
	tf, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load two-factor settings", err)
	}
	return tf, nil
}

func qrDataURI(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
