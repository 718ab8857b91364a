package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, email, name string, registrationNumber *string) (*models.User, error)
}

// UpdateProfileRequest describes the editable profile fields. Empty fields
// keep their current value.
type UpdateProfileRequest struct {
	Name      string `json:"name"`
	ScholarID string `json:"scholarID"`
}

// UserService serves profile reads and updates for the authenticated user.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Profile returns the user owning the email.
func (s *UserService) Profile(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile edits the mutable fields of the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, email string, req UpdateProfileRequest) (*models.User, error) {
	if req.Name == "" && req.ScholarID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	var registrationNumber *string
	if req.ScholarID != "" {
		registrationNumber = &req.ScholarID
	}
	user, err := s.repo.UpdateProfile(ctx, email, req.Name, registrationNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return user, nil
}
