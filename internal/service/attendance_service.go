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

type attendanceLedger interface {
	LatestRecord(ctx context.Context, subjectID string) (*models.AttendanceRecord, error)
	RecordByDate(ctx context.Context, subjectID, classDate string) (*models.AttendanceRecord, error)
	ListRecordDetails(ctx context.Context, subjectID string) ([]models.AttendanceRecordDetail, error)
	Entry(ctx context.Context, recordID, studentID string) (*models.AttendanceEntry, error)
	SetPresence(ctx context.Context, recordID, studentID string, present bool) error
	UpdateEntries(ctx context.Context, recordID string, updates []models.EntryUpdate) error
	DeleteRecordByDate(ctx context.Context, subjectID, classDate string) error
	StudentCounts(ctx context.Context, subjectID, studentID string) (int, int, error)
}

type attendanceSubjectReader interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
}

type attendanceUserReader interface {
	FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

// StudentSummary is the attended/held tally for one student on a subject.
type StudentSummary struct {
	Attended int `json:"attended"`
	Held     int `json:"held"`
}

// AttendanceService operates on the durable attendance ledger. Marking
// applies to the latest record only; edits and deletions address a record by
// its class date.
type AttendanceService struct {
	ledger    attendanceLedger
	subjects  attendanceSubjectReader
	users     attendanceUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(ledger attendanceLedger, subjects attendanceSubjectReader, users attendanceUserReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{ledger: ledger, subjects: subjects, users: users, validator: validate, logger: logger}
}

func (s *AttendanceService) loadSubject(ctx context.Context, subjectID string) (*models.Subject, error) {
	subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// MarkPresent flips the student's entry on the latest record to present.
// Marking twice on the same record is a conflict.
func (s *AttendanceService) MarkPresent(ctx context.Context, subjectID, studentEmail string) error {
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

	record, err := s.ledger.LatestRecord(ctx, subject.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no attendance records for subject")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}

	entry, err := s.ledger.Entry(ctx, record.ID, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not listed on record")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	if entry.Present {
		return appErrors.Clone(appErrors.ErrConflict, "attendance already marked")
	}

	if err := s.ledger.SetPresence(ctx, record.ID, student.ID, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not listed on record")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	s.logger.Info("attendance marked",
		zap.String("subject_id", subjectID),
		zap.String("student", studentEmail),
		zap.Time("date", record.ClassDate))
	return nil
}

// History returns the full dated attendance ledger of a subject.
func (s *AttendanceService) History(ctx context.Context, subjectID string) ([]models.AttendanceRecordDetail, error) {
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	details, err := s.ledger.ListRecordDetails(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return details, nil
}

// ByDate returns the record detail of a single class date.
func (s *AttendanceService) ByDate(ctx context.Context, subjectID, classDate string) (*models.AttendanceRecordDetail, error) {
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.RecordByDate(ctx, subject.ID, classDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no record for date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	details, err := s.ledger.ListRecordDetails(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record detail")
	}
	for i := range details {
		if models.DayKey(details[i].Date) == classDate {
			return &details[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no record for date")
}

// EditRecord applies a batch of presence edits to the record of a class date.
// Edits naming students without an entry on the record are ignored.
func (s *AttendanceService) EditRecord(ctx context.Context, subjectID, classDate string, updates []models.EntryUpdate) error {
	if len(updates) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no edits given")
	}
	for _, update := range updates {
		if err := s.validator.Struct(update); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid edit payload")
		}
	}
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	record, err := s.ledger.RecordByDate(ctx, subject.ID, classDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no record for date")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if err := s.ledger.UpdateEntries(ctx, record.ID, updates); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
	return nil
}

// DeleteRecord removes the record of a class date along with its entries.
func (s *AttendanceService) DeleteRecord(ctx context.Context, subjectID, classDate string) error {
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteRecordByDate(ctx, subject.ID, classDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no record for date")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	s.logger.Info("attendance record deleted",
		zap.String("subject_id", subjectID),
		zap.String("date", classDate))
	return nil
}

// Summary returns the attended/held tally of a student on a subject.
func (s *AttendanceService) Summary(ctx context.Context, subjectID, studentEmail string) (*StudentSummary, error) {
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	student, err := s.users.FindByEmailAndRole(ctx, studentEmail, models.RoleStudent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	attended, held, err := s.ledger.StudentCounts(ctx, subject.ID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load counts")
	}
	return &StudentSummary{Attended: attended, Held: held}, nil
}
