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

type collaborationStage interface {
	StageCollaboration(ctx context.Context, facultyEmail string, request models.CollaborationRequest) error
	ListCollaborations(ctx context.Context, facultyEmail string) ([]models.CollaborationRequest, error)
	TakeCollaboration(ctx context.Context, facultyEmail, subjectID string) (*models.CollaborationRequest, error)
}

type collaborationSubjectRepository interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
	IsFacultyAssigned(ctx context.Context, id, userID string) (bool, error)
	AddFaculty(ctx context.Context, id, userID string) error
}

type collaborationUserReader interface {
	FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

// CollaborationService manages faculty-to-faculty collaboration invites. An
// invite parks subject metadata in the target faculty's staging set; accepting
// it assigns the target to the subject.
type CollaborationService struct {
	stage     collaborationStage
	subjects  collaborationSubjectRepository
	users     collaborationUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollaborationService constructs a CollaborationService.
func NewCollaborationService(stage collaborationStage, subjects collaborationSubjectRepository, users collaborationUserReader, validate *validator.Validate, logger *zap.Logger) *CollaborationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollaborationService{stage: stage, subjects: subjects, users: users, validator: validate, logger: logger}
}

// Invite stages a collaboration invite for the target faculty. The inviter
// must be assigned to the subject and the target must not be.
func (s *CollaborationService) Invite(ctx context.Context, subjectID, inviterEmail, targetEmail string) error {
	subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	inviter, err := s.users.FindByEmailAndRole(ctx, inviterEmail, models.RoleFaculty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "inviter is not a faculty")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inviter")
	}
	assigned, err := s.subjects.IsFacultyAssigned(ctx, subject.ID, inviter.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to subject")
	}

	target, err := s.users.FindByEmailAndRole(ctx, targetEmail, models.RoleFaculty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "target faculty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target faculty")
	}
	targetAssigned, err := s.subjects.IsFacultyAssigned(ctx, subject.ID, target.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if targetAssigned {
		return appErrors.Clone(appErrors.ErrConflict, "faculty already assigned to subject")
	}

	request := models.CollaborationRequest{
		SubjectID:   subject.SubjectID,
		Email:       inviter.Email,
		Name:        inviter.Name,
		Department:  subject.Department,
		SubjectName: subject.SubjectName,
		Section:     subject.Section,
		Programme:   subject.Programme,
		Semester:    subject.Semester,
	}
	if err := s.stage.StageCollaboration(ctx, targetEmail, request); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage invite")
	}
	return nil
}

// List returns the pending invites addressed to the faculty.
func (s *CollaborationService) List(ctx context.Context, facultyEmail string) ([]models.CollaborationRequest, error) {
	requests, err := s.stage.ListCollaborations(ctx, facultyEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invites")
	}
	return requests, nil
}

// HasPending reports whether the faculty has at least one invite waiting.
func (s *CollaborationService) HasPending(ctx context.Context, facultyEmail string) (bool, error) {
	requests, err := s.stage.ListCollaborations(ctx, facultyEmail)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invites")
	}
	return len(requests) > 0, nil
}

// Respond accepts or rejects the staged invite for a subject. An invalid
// action leaves the staging set untouched; accepting assigns the responder to
// the subject.
func (s *CollaborationService) Respond(ctx context.Context, facultyEmail, subjectID string, action models.RespondAction) error {
	if !action.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "action must be accept or reject")
	}

	request, err := s.stage.TakeCollaboration(ctx, facultyEmail, subjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve invite")
	}
	if request == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no pending invite for subject")
	}
	if action == models.RespondReject {
		return nil
	}

	subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	responder, err := s.users.FindByEmailAndRole(ctx, facultyEmail, models.RoleFaculty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if err := s.subjects.AddFaculty(ctx, subject.ID, responder.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign faculty")
	}
	s.logger.Info("collaboration accepted",
		zap.String("subject_id", subjectID),
		zap.String("faculty", facultyEmail))
	return nil
}
