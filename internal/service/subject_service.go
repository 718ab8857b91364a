package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type subjectRepository interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
	FindArchivedBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
	Exists(ctx context.Context, subjectID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject, facultyUserID string) error
	Delete(ctx context.Context, subjectID string) error
	SetArchived(ctx context.Context, id string, archived bool) error
	ListByFaculty(ctx context.Context, facultyUserID string) ([]models.Subject, error)
	ListArchivedByFaculty(ctx context.Context, facultyUserID string) ([]models.Subject, error)
	ListByStudent(ctx context.Context, studentUserID string) ([]models.Subject, error)
	ListActive(ctx context.Context) ([]models.Subject, error)
	Roster(ctx context.Context, id string) ([]models.RosterStudent, error)
	AssignedFaculty(ctx context.Context, id string) ([]models.RosterStudent, error)
	IsFacultyAssigned(ctx context.Context, id, userID string) (bool, error)
	IsStudentEnrolled(ctx context.Context, id, userID string) (bool, error)
	RemoveStudent(ctx context.Context, id, userID string) error
}

type subjectUserReader interface {
	FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

type subjectLedgerReader interface {
	CountRecords(ctx context.Context, subjectID string) (int, error)
	ListRecordDetails(ctx context.Context, subjectID string) ([]models.AttendanceRecordDetail, error)
	StudentCounts(ctx context.Context, subjectID, studentID string) (int, int, error)
	RemoveStudentFromAll(ctx context.Context, subjectID, studentID string) error
}

// CreateSubjectRequest describes subject creation payload. The subjectID is
// chosen by the caller and must be unique across active and archived
// subjects.
type CreateSubjectRequest struct {
	SubjectID   string `json:"subjectID" validate:"required"`
	SubjectCode string `json:"subjectCode" validate:"required"`
	SubjectName string `json:"subjectName" validate:"required"`
	Department  string `json:"department" validate:"required"`
	Section     string `json:"section" validate:"required"`
	Programme   string `json:"programme" validate:"required"`
	Semester    string `json:"semester" validate:"required"`
}

// SubjectDetail is a subject with its roster and assigned faculty expanded.
type SubjectDetail struct {
	models.Subject
	Students []models.RosterStudent `json:"Students"`
	Faculty  []models.RosterStudent `json:"Faculty"`
}

// FacultySubjectOverview is one dashboard row for a faculty: the subject with
// its roster, full attendance history and aggregate figures.
type FacultySubjectOverview struct {
	models.Subject
	StudentCount      int                             `json:"studentCount"`
	ClassesHeld       int                             `json:"classesHeld"`
	AverageAttendance float64                         `json:"averageAttendance"`
	LastClassDate     *time.Time                      `json:"lastClassDate,omitempty"`
	Students          []models.RosterStudent          `json:"students"`
	Records           []models.AttendanceRecordDetail `json:"attendanceRecords"`
}

// StudentSubjectOverview is one dashboard row for a student.
type StudentSubjectOverview struct {
	models.Subject
	Attended   int     `json:"attended"`
	Held       int     `json:"held"`
	Percentage float64 `json:"percentage"`
}

// SubjectCatalog nests active subject identifiers by programme, then
// department, then semester.
type SubjectCatalog map[string]map[string]map[string][]string

const catalogCacheKey = "subjects:catalog"

// SubjectService manages the subject catalogue, rosters, archival and the
// role dashboards built on top of them.
type SubjectService struct {
	repo      subjectRepository
	users     subjectUserReader
	ledger    subjectLedgerReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, users subjectUserReader, ledger subjectLedgerReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, users: users, ledger: ledger, cache: cache, validator: validate, logger: logger}
}

func (s *SubjectService) findFaculty(ctx context.Context, email string) (*models.User, error) {
	faculty, err := s.users.FindByEmailAndRole(ctx, email, models.RoleFaculty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty account required")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

func (s *SubjectService) requireAssigned(ctx context.Context, subjectPK, facultyEmail string) (*models.User, error) {
	faculty, err := s.findFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}
	assigned, err := s.repo.IsFacultyAssigned(ctx, subjectPK, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to subject")
	}
	return faculty, nil
}

// Create registers a new subject owned by the creating faculty.
func (s *SubjectService) Create(ctx context.Context, facultyEmail string, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	faculty, err := s.findFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.Exists(ctx, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already exists")
	}

	subject := &models.Subject{
		SubjectID:   req.SubjectID,
		SubjectCode: req.SubjectCode,
		SubjectName: req.SubjectName,
		Department:  req.Department,
		Section:     req.Section,
		Programme:   req.Programme,
		Semester:    req.Semester,
	}
	if err := s.repo.Create(ctx, subject, faculty.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.cache.Invalidate(ctx, catalogCacheKey) //nolint:errcheck
	s.logger.Info("subject created",
		zap.String("subject_id", subject.SubjectID),
		zap.String("faculty", facultyEmail))
	return subject, nil
}

// Get returns a subject with its roster and assigned faculty.
func (s *SubjectService) Get(ctx context.Context, subjectID string) (*SubjectDetail, error) {
	subject, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	roster, err := s.repo.Roster(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	faculty, err := s.repo.AssignedFaculty(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return &SubjectDetail{Subject: *subject, Students: roster, Faculty: faculty}, nil
}

// Catalog returns every active subject identifier nested by programme,
// department and semester. The nested payload is cached; writes to the
// catalogue invalidate it.
func (s *SubjectService) Catalog(ctx context.Context) (SubjectCatalog, error) {
	var cached SubjectCatalog
	if hit, err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	subjects, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	catalog := make(SubjectCatalog)
	for _, subject := range subjects {
		byDepartment := catalog[subject.Programme]
		if byDepartment == nil {
			byDepartment = make(map[string]map[string][]string)
			catalog[subject.Programme] = byDepartment
		}
		bySemester := byDepartment[subject.Department]
		if bySemester == nil {
			bySemester = make(map[string][]string)
			byDepartment[subject.Department] = bySemester
		}
		bySemester[subject.Semester] = append(bySemester[subject.Semester], subject.SubjectID)
	}
	for _, byDepartment := range catalog {
		for _, bySemester := range byDepartment {
			for semester := range bySemester {
				sort.Strings(bySemester[semester])
			}
		}
	}

	s.cache.Set(ctx, catalogCacheKey, catalog, 0) //nolint:errcheck
	return catalog, nil
}

// FacultyDashboard returns the active subjects of a faculty with roster, the
// dated attendance history and per-subject aggregates. The average attendance
// is the mean of each record's present share against the current roster.
func (s *SubjectService) FacultyDashboard(ctx context.Context, facultyEmail string) ([]FacultySubjectOverview, error) {
	faculty, err := s.findFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}
	subjects, err := s.repo.ListByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	overviews := make([]FacultySubjectOverview, 0, len(subjects))
	for _, subject := range subjects {
		roster, err := s.repo.Roster(ctx, subject.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
		}
		held, err := s.ledger.CountRecords(ctx, subject.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count records")
		}
		details, err := s.ledger.ListRecordDetails(ctx, subject.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
		}

		overview := FacultySubjectOverview{
			Subject:      subject,
			StudentCount: len(roster),
			ClassesHeld:  held,
			Students:     roster,
			Records:      details,
		}
		if len(details) > 0 {
			var sum float64
			for _, detail := range details {
				present := 0
				for _, entry := range detail.Students {
					if entry.Present {
						present++
					}
				}
				if len(roster) > 0 {
					sum += float64(present) / float64(len(roster)) * 100
				}
			}
			overview.AverageAttendance = sum / float64(len(details))
			last := details[len(details)-1].Date
			overview.LastClassDate = &last
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

// ArchivedSubjects returns the archived subjects of a faculty.
func (s *SubjectService) ArchivedSubjects(ctx context.Context, facultyEmail string) ([]models.Subject, error) {
	faculty, err := s.findFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}
	subjects, err := s.repo.ListArchivedByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archived subjects")
	}
	return subjects, nil
}

// StudentDashboard returns the enrolled subjects of a student with their
// attendance tallies.
func (s *SubjectService) StudentDashboard(ctx context.Context, studentEmail string) ([]StudentSubjectOverview, error) {
	student, err := s.users.FindByEmailAndRole(ctx, studentEmail, models.RoleStudent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student account required")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	subjects, err := s.repo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	overviews := make([]StudentSubjectOverview, 0, len(subjects))
	for _, subject := range subjects {
		attended, held, err := s.ledger.StudentCounts(ctx, subject.ID, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load counts")
		}
		overview := StudentSubjectOverview{Subject: subject, Attended: attended, Held: held}
		if held > 0 {
			overview.Percentage = float64(attended) / float64(held) * 100
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

// Archive moves an active subject into the archive. Archived subjects drop
// out of catalogues and dashboards but keep their ledger.
func (s *SubjectService) Archive(ctx context.Context, subjectID, facultyEmail string) error {
	subject, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.requireAssigned(ctx, subject.ID, facultyEmail); err != nil {
		return err
	}
	if err := s.repo.SetArchived(ctx, subject.ID, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive subject")
	}
	s.cache.Invalidate(ctx, catalogCacheKey) //nolint:errcheck
	return nil
}

// Unarchive restores an archived subject to the active catalogue.
func (s *SubjectService) Unarchive(ctx context.Context, subjectID, facultyEmail string) error {
	subject, err := s.repo.FindArchivedBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "archived subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.requireAssigned(ctx, subject.ID, facultyEmail); err != nil {
		return err
	}
	if err := s.repo.SetArchived(ctx, subject.ID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unarchive subject")
	}
	s.cache.Invalidate(ctx, catalogCacheKey) //nolint:errcheck
	return nil
}

// Delete permanently removes an archived subject together with its ledger.
// Active subjects must be archived first.
func (s *SubjectService) Delete(ctx context.Context, subjectID, facultyEmail string) error {
	subject, err := s.repo.FindArchivedBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "archived subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.requireAssigned(ctx, subject.ID, facultyEmail); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "archived subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.logger.Info("subject deleted",
		zap.String("subject_id", subjectID),
		zap.String("faculty", facultyEmail))
	return nil
}

// Unenroll lets a student withdraw from a subject, removing both the roster
// entry and their attendance entries.
func (s *SubjectService) Unenroll(ctx context.Context, subjectID, studentEmail string) error {
	subject, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	student, err := s.users.FindByEmailAndRole(ctx, studentEmail, models.RoleStudent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrolled, err := s.repo.IsStudentEnrolled(ctx, subject.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrNotFound, "not enrolled in subject")
	}
	if err := s.repo.RemoveStudent(ctx, subject.ID, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}
	if err := s.ledger.RemoveStudentFromAll(ctx, subject.ID, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prune attendance entries")
	}
	return nil
}

// RemoveStudent strikes a student from the roster and from every attendance
// record of the subject.
func (s *SubjectService) RemoveStudent(ctx context.Context, subjectID, facultyEmail, studentEmail string) error {
	subject, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.requireAssigned(ctx, subject.ID, facultyEmail); err != nil {
		return err
	}
	student, err := s.users.FindByEmailAndRole(ctx, studentEmail, models.RoleStudent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrolled, err := s.repo.IsStudentEnrolled(ctx, subject.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in subject")
	}
	if err := s.repo.RemoveStudent(ctx, subject.ID, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	if err := s.ledger.RemoveStudentFromAll(ctx, subject.ID, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prune attendance entries")
	}
	return nil
}
