package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/cache"
	"github.com/frahmantamala/rbac-api/internal/core/common/validation"
	"github.com/frahmantamala/rbac-api/internal/core/events"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*TokenResponse, error)
	Authenticate(ctx context.Context, token string) (*User, error)
	RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO) error
	ConfirmPasswordReset(ctx context.Context, dto PasswordResetConfirmDTO) error
}

type OTPStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Consume(ctx context.Context, email, code string) (bool, error)
}

// GrantCache returns a slot from Get that Set must write under, so a fill never outlives
// an invalidation that happened after the read.
type GrantCache interface {
	Get(ctx context.Context, userID string) (*cache.Grants, string, error)
	Set(ctx context.Context, slot string, g cache.Grants) error
}

// TwoFactorVerifier is satisfied by the two-factor service.
type TwoFactorVerifier interface {
	IsEnabled(ctx context.Context, userID string) (bool, error)
	VerifyCode(ctx context.Context, userID, code string) (bool, error)
}

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type Service struct {
	repo      RepositoryAPI
	tokens    TokenGeneratorAPI
	logger    *slog.Logger
	otps      OTPStore
	otpTTL    time.Duration
	mailer    Mailer
	grants    GrantCache
	twoFactor TwoFactorVerifier
	publisher events.Publisher
	cost      int
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
		otpTTL: 10 * time.Minute,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

func (s *Service) WithPasswordReset(store OTPStore, mailer Mailer, ttl time.Duration) *Service {
	s.otps = store
	s.mailer = mailer
	if ttl > 0 {
		s.otpTTL = ttl
	}
	return s
}

func (s *Service) WithGrantCache(c GrantCache) *Service {
	s.grants = c
	return s
}

func (s *Service) WithTwoFactor(v TwoFactorVerifier) *Service {
	s.twoFactor = v
	return s
}

func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithBCryptCost(cost int) *Service {
	if cost != 0 {
		s.cost = cost
	}
	return s
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*TokenResponse, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, NormalizeEmail(dto.Email))
	if err != nil {
		return nil, internal.NewInternalError("failed to load credentials", err)
	}
	if creds == nil || VerifyPassword(creds.PasswordHash, dto.Password) != nil {
		s.logger.Warn("login rejected", "email", NormalizeEmail(dto.Email))
		return nil, internal.ErrInvalidCredentials
	}
	if !creds.IsActive {
		return nil, internal.ErrUserInactive
	}

	if s.twoFactor != nil {
		enabled, err := s.twoFactor.IsEnabled(ctx, creds.UserID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check two-factor state", err)
		}
		if enabled {
			if dto.TOTPCode == "" {
				return &TokenResponse{TokenType: TokenTypeBearer, Requires2FA: true}, nil
			}
			ok, err := s.twoFactor.VerifyCode(ctx, creds.UserID, dto.TOTPCode)
			if err != nil {
				return nil, internal.NewInternalError("failed to verify two-factor code", err)
			}
			if !ok {
				return nil, internal.NewUnauthorizedError("Invalid TOTP code", internal.ErrCodeInvalidTOTP)
			}
		}
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(creds.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	if err := s.repo.UpdateLastLogin(ctx, creds.UserID, s.now()); err != nil {
		s.logger.Warn("failed to record last login", "user_id", creds.UserID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", creds.UserID)
	return &TokenResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(expiresAt.Sub(s.now()).Seconds()),
	}, nil
}

// Authenticate resolves a bearer token to an active user with roles and effective permissions.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, internal.ErrNotAuthenticated
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, internal.ErrNotAuthenticated.WithCause(err)
	}

	u, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, internal.ErrNotAuthenticated
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}

	roles, perms, err := s.loadGrants(ctx, u.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	u.Roles = roles
	u.Permissions = perms
	return u, nil
}

func (s *Service) loadGrants(ctx context.Context, userID string) ([]string, []string, error) {
	var slot string
	if s.grants != nil {
		g, sl, err := s.grants.Get(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn("permission cache read failed", "user_id", userID, "error", err)
		case g != nil:
			return g.Roles, g.Permissions, nil
		default:
			slot = sl
		}
	}

	roles, perms, err := s.repo.GetGrants(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if s.grants != nil && slot != "" {
		if err := s.grants.Set(ctx, slot, cache.Grants{Roles: roles, Permissions: perms}); err != nil {
			s.logger.Warn("permission cache write failed", "user_id", userID, "error", err)
		}
	}
	return roles, perms, nil
}

// RequestPasswordReset never reveals whether the account exists; failures after the
// lookup are only logged.
func (s *Service) RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	if s.otps == nil {
		return internal.NewInternalError("password reset is not configured", nil)
	}

	email := NormalizeEmail(dto.Email)
	creds, err := s.repo.GetCredentialsByEmail(ctx, email)
	if err != nil {
		s.logger.Error("password reset: lookup failed", "error", err)
		return nil
	}
	if creds == nil {
		s.logger.Info("password reset: unknown email")
		return nil
	}

	code, err := GenerateOTP()
	if err != nil {
		s.logger.Error("password reset: otp generation failed", "error", err)
		return nil
	}
	if err := s.otps.Save(ctx, email, code, s.otpTTL); err != nil {
		s.logger.Error("password reset: otp store failed", "user_id", creds.UserID, "error", err)
		return nil
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Your password reset OTP is: %s\nThis OTP will expire in %d minutes.", code, int(s.otpTTL.Minutes()))
		if err := s.mailer.SendEmail(ctx, email, "Password Reset OTP", body); err != nil {
			s.logger.Error("password reset: enqueue email failed", "user_id", creds.UserID, "error", err)
		}
	}
	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, dto PasswordResetConfirmDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	if s.otps == nil {
		return internal.NewInternalError("password reset is not configured", nil)
	}

	email := NormalizeEmail(dto.Email)
	ok, err := s.otps.Consume(ctx, email, dto.OTP)
	if err != nil {
		return internal.NewInternalError("failed to verify otp", err)
	}
	if !ok {
		return internal.NewBadRequestError("Invalid or expired OTP", internal.ErrCodeInvalidOTP)
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return internal.NewInternalError("failed to load user", err)
	}
	if creds == nil {
		return internal.NewBadRequestError("Invalid email", internal.ErrCodeInvalidOTP)
	}

	hash, err := HashPassword(dto.NewPassword, s.cost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, creds.UserID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	s.logger.Info("password reset completed", "user_id", creds.UserID)
	s.publish(ctx, events.NewPasswordChangedEvent(creds.UserID, "reset"))
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}

// GenerateOTP returns a zero-padded 6-digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
