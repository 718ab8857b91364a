package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type enrollmentStage interface {
	StageEnrollment(ctx context.Context, subjectID string, request models.EnrollmentRequest) error
	EnrollmentExists(ctx context.Context, subjectID, email string) (bool, error)
	ListEnrollments(ctx context.Context, subjectID string) ([]models.EnrollmentRequest, error)
	RemoveEnrollment(ctx context.Context, subjectID, email string) (bool, error)
	SubjectsWithEnrollments(ctx context.Context) ([]string, error)
}

type enrollmentSubjectRepository interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
	IsFacultyAssigned(ctx context.Context, id, userID string) (bool, error)
	IsStudentEnrolled(ctx context.Context, id, userID string) (bool, error)
	AddStudent(ctx context.Context, id, userID string) error
	ListByFaculty(ctx context.Context, facultyUserID string) ([]models.Subject, error)
}

// FacultyPendingGroup bundles the pending requests of one subject for the
// faculty inbox view.
type FacultyPendingGroup struct {
	SubjectID   string                     `json:"subjectID"`
	SubjectName string                     `json:"subjectName"`
	Requests    []models.EnrollmentRequest `json:"requests"`
}

type enrollmentUserReader interface {
	FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

type entryBackfiller interface {
	AppendStudentToAll(ctx context.Context, subjectID, studentID string) error
}

// BulkResolveResult summarises a batch resolution. Requests that could not be
// resolved are skipped, not failed.
type BulkResolveResult struct {
	Resolved int      `json:"resolved"`
	Skipped  []string `json:"skipped,omitempty"`
}

// EnrollmentService manages the staged enrollment approval queue. Requests
// wait in Redis until a faculty approves or rejects them; approval moves the
// student onto the durable roster and backfills absences for classes already
// held.
type EnrollmentService struct {
	stage     enrollmentStage
	subjects  enrollmentSubjectRepository
	users     enrollmentUserReader
	ledger    entryBackfiller
	now       func() time.Time
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(stage enrollmentStage, subjects enrollmentSubjectRepository, users enrollmentUserReader, ledger entryBackfiller, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		stage:     stage,
		subjects:  subjects,
		users:     users,
		ledger:    ledger,
		now:       time.Now,
		validator: validate,
		logger:    logger,
	}
}

func (s *EnrollmentService) loadSubject(ctx context.Context, subjectID string) (*models.Subject, error) {
	subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

func (s *EnrollmentService) loadFaculty(ctx context.Context, facultyEmail string) (*models.User, error) {
	faculty, err := s.users.FindByEmailAndRole(ctx, facultyEmail, models.RoleFaculty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty account required")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// assignedSubject loads the subject and verifies the faculty is assigned to
// it. Unassigned faculty get the same answer as a missing subject so the
// queue of another faculty cannot be probed.
func (s *EnrollmentService) assignedSubject(ctx context.Context, facultyEmail, subjectID string) (*models.Subject, error) {
	faculty, err := s.loadFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.subjects.IsFacultyAssigned(ctx, subject.ID, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found or unauthorized")
	}
	return subject, nil
}

// Request stages an enrollment request from a student. Duplicate requests and
// requests from students already on the roster are rejected.
func (s *EnrollmentService) Request(ctx context.Context, subjectID, studentEmail string) error {
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return err
	}

	student, err := s.users.FindByEmailAndRole(ctx, studentEmail, models.RoleStudent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrolled, err := s.subjects.IsStudentEnrolled(ctx, subject.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "already enrolled in subject")
	}

	pending, err := s.stage.EnrollmentExists(ctx, subjectID, studentEmail)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending request")
	}
	if pending {
		return appErrors.Clone(appErrors.ErrConflict, "enrollment request already pending")
	}

	request := models.EnrollmentRequest{
		Email:     student.Email,
		Name:      student.Name,
		ScholarID: student.ScholarID(),
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.stage.StageEnrollment(ctx, subjectID, request); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage request")
	}
	return nil
}

// List returns the pending requests of a subject.
func (s *EnrollmentService) List(ctx context.Context, subjectID string) ([]models.EnrollmentRequest, error) {
	if _, err := s.loadSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	requests, err := s.stage.ListEnrollments(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// Resolve approves or rejects one staged request on behalf of a faculty
// assigned to the subject. Approval enrolls the student and backfills absent
// entries into every record already held; the staged request is consumed
// either way.
func (s *EnrollmentService) Resolve(ctx context.Context, facultyEmail, subjectID, studentEmail string, action models.ResolveAction) error {
	if !action.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}
	subject, err := s.assignedSubject(ctx, facultyEmail, subjectID)
	if err != nil {
		return err
	}
	return s.resolve(ctx, subject, studentEmail, action)
}

func (s *EnrollmentService) resolve(ctx context.Context, subject *models.Subject, studentEmail string, action models.ResolveAction) error {
	subjectID := subject.SubjectID
	removed, err := s.stage.RemoveEnrollment(ctx, subjectID, studentEmail)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve request")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "no pending request for student")
	}
	if action == models.ResolveReject {
		return nil
	}

	student, err := s.users.FindByEmailAndRole(ctx, studentEmail, models.RoleStudent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.subjects.AddStudent(ctx, subject.ID, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if err := s.ledger.AppendStudentToAll(ctx, subject.ID, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to backfill attendance")
	}
	s.logger.Info("enrollment resolved",
		zap.String("subject_id", subjectID),
		zap.String("student", studentEmail),
		zap.String("action", string(action)))
	return nil
}

// BulkResolve applies the action to every staged request of the subject.
// Requests that cannot be resolved, typically because the student account
// vanished, are skipped and reported back rather than aborting the batch.
func (s *EnrollmentService) BulkResolve(ctx context.Context, facultyEmail, subjectID string, action models.ResolveAction) (*BulkResolveResult, error) {
	if !action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}
	subject, err := s.assignedSubject(ctx, facultyEmail, subjectID)
	if err != nil {
		return nil, err
	}
	requests, err := s.stage.ListEnrollments(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	result := &BulkResolveResult{}
	for _, request := range requests {
		if err := s.resolve(ctx, subject, request.Email, action); err != nil {
			s.logger.Warn("skipping unresolvable request",
				zap.String("subject_id", subjectID),
				zap.String("student", request.Email),
				zap.Error(err))
			result.Skipped = append(result.Skipped, request.Email)
			continue
		}
		result.Resolved++
	}
	return result, nil
}

// PendingForFaculty returns the pending requests across every subject the
// faculty is assigned to, grouped per subject. Subjects with an empty queue
// are omitted.
func (s *EnrollmentService) PendingForFaculty(ctx context.Context, facultyEmail string) ([]FacultyPendingGroup, error) {
	faculty, err := s.loadFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	groups := make([]FacultyPendingGroup, 0)
	for _, subject := range subjects {
		requests, err := s.stage.ListEnrollments(ctx, subject.SubjectID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
		}
		if len(requests) == 0 {
			continue
		}
		groups = append(groups, FacultyPendingGroup{
			SubjectID:   subject.SubjectID,
			SubjectName: subject.SubjectName,
			Requests:    requests,
		})
	}
	return groups, nil
}

// HasPending reports whether any subject of the faculty has a staged request
// waiting. Used by the inbox badge, which only needs a boolean.
func (s *EnrollmentService) HasPending(ctx context.Context, facultyEmail string) (bool, error) {
	faculty, err := s.loadFaculty(ctx, facultyEmail)
	if err != nil {
		return false, err
	}
	subjects, err := s.subjects.ListByFaculty(ctx, faculty.ID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	for _, subject := range subjects {
		requests, err := s.stage.ListEnrollments(ctx, subject.SubjectID)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
		}
		if len(requests) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// PendingSubjects returns the subjects where the student has a request still
// waiting for approval.
func (s *EnrollmentService) PendingSubjects(ctx context.Context, studentEmail string) ([]models.SubjectRef, error) {
	subjectIDs, err := s.stage.SubjectsWithEnrollments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan requests")
	}

	refs := make([]models.SubjectRef, 0)
	for _, subjectID := range subjectIDs {
		pending, err := s.stage.EnrollmentExists(ctx, subjectID, studentEmail)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending request")
		}
		if !pending {
			continue
		}
		subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		refs = append(refs, models.SubjectRef{
			SubjectID:   subject.SubjectID,
			SubjectCode: subject.SubjectCode,
			SubjectName: subject.SubjectName,
		})
	}
	return refs, nil
}
