package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/mailer"
)

type otpStore interface {
	Store(ctx context.Context, email, hash string, ttl time.Duration) error
	Hash(ctx context.Context, email string) (string, bool, error)
	Invalidate(ctx context.Context, email string) error
}

type otpUserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// OTPConfig defines expiry windows for one-time codes. First-time codes go to
// addresses not yet registered and get a longer window.
type OTPConfig struct {
	TTL          time.Duration
	FirstTimeTTL time.Duration
}

// OTPService issues and verifies short-lived one-time codes for email
// verification and password reset. Only a bcrypt hash of the code is stored;
// the plain code travels by email.
type OTPService struct {
	store     otpStore
	users     otpUserRepository
	mail      mailer.Mailer
	config    OTPConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOTPService constructs an OTPService.
func NewOTPService(store otpStore, users otpUserRepository, mail mailer.Mailer, config OTPConfig, validate *validator.Validate, logger *zap.Logger) *OTPService {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.FirstTimeTTL <= 0 {
		config.FirstTimeTTL = 10 * time.Minute
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{store: store, users: users, mail: mail, config: config, validator: validate, logger: logger}
}

// Send generates a fresh 4-digit code for the email and delivers it. A
// pending code for the same email is replaced.
func (s *OTPService) Send(ctx context.Context, email string) error {
	if err := s.validator.Var(email, "required,email"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "valid email required")
	}

	code, err := generateCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash code")
	}

	registered, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	ttl := s.config.TTL
	if !registered {
		ttl = s.config.FirstTimeTTL
	}

	if err := s.store.Store(ctx, email, string(hash), ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	message := mailer.Message{
		To:      email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes())),
	}
	if err := s.mail.Send(ctx, message); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send code")
	}
	s.logger.Info("otp sent", zap.String("email", email))
	return nil
}

// Verify checks the submitted code and consumes it on success.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	hash, found, err := s.store.Hash(ctx, email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "code expired or never sent")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "incorrect code")
	}
	if err := s.store.Invalidate(ctx, email); err != nil {
		s.logger.Warn("failed to invalidate otp", zap.String("email", email), zap.Error(err))
	}
	return nil
}

// ResetPassword verifies the code and replaces the account password.
func (s *OTPService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.validator.Var(newPassword, "required,min=6"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 6 characters")
	}
	registered, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if !registered {
		return appErrors.Clone(appErrors.ErrNotFound, "account not found")
	}
	if err := s.Verify(ctx, email, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, email, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	s.logger.Info("password reset", zap.String("email", email))
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
