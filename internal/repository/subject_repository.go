package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-api/internal/models"
)

// SubjectRepository handles persistence of subjects, rosters and faculty
// assignments. Archived subjects live in the same table behind a flag and are
// excluded from every active-path query.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, subject_id, subject_code, subject_name, department, section, programme, semester, archived, created_at`

// FindBySubjectID returns an active subject by its external identifier.
func (r *SubjectRepository) FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE subject_id = $1 AND NOT archived`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, subjectID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindArchivedBySubjectID returns an archived subject by its external identifier.
func (r *SubjectRepository) FindArchivedBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE subject_id = $1 AND archived`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, subjectID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Exists reports whether any subject, archived included, carries the
// external identifier. Used to keep identifiers unique across the archive.
func (r *SubjectRepository) Exists(ctx context.Context, subjectID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subjects WHERE subject_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, subjectID); err != nil {
		return false, fmt.Errorf("check subject exists: %w", err)
	}
	return exists, nil
}

// Create persists a new subject with its initial faculty assignment.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject, facultyUserID string) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create subject: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertSubject = `INSERT INTO subjects (id, subject_id, subject_code, subject_name, department, section, programme, semester, archived, created_at)
        VALUES (:id, :subject_id, :subject_code, :subject_name, :department, :section, :programme, :semester, :archived, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertSubject, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}

	const insertFaculty = `INSERT INTO subject_faculty (subject_id, user_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertFaculty, subject.ID, facultyUserID); err != nil {
		return fmt.Errorf("assign initial faculty: %w", err)
	}

	return tx.Commit()
}

// Delete removes an archived subject and its dependent rows.
func (r *SubjectRepository) Delete(ctx context.Context, subjectID string) error {
	const query = `DELETE FROM subjects WHERE subject_id = $1 AND archived`
	res, err := r.db.ExecContext(ctx, query, subjectID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetArchived flips the archived flag on a subject.
func (r *SubjectRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	const query = `UPDATE subjects SET archived = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, archived); err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	return nil
}

// ListByFaculty returns the active subjects a faculty is assigned to.
func (r *SubjectRepository) ListByFaculty(ctx context.Context, facultyUserID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.subject_id, s.subject_code, s.subject_name, s.department, s.section, s.programme, s.semester, s.archived, s.created_at
        FROM subjects s
        JOIN subject_faculty sf ON sf.subject_id = s.id
        WHERE sf.user_id = $1 AND NOT s.archived
        ORDER BY s.created_at`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, facultyUserID); err != nil {
		return nil, fmt.Errorf("list faculty subjects: %w", err)
	}
	return subjects, nil
}

// ListArchivedByFaculty returns the archived subjects a faculty is assigned to.
func (r *SubjectRepository) ListArchivedByFaculty(ctx context.Context, facultyUserID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.subject_id, s.subject_code, s.subject_name, s.department, s.section, s.programme, s.semester, s.archived, s.created_at
        FROM subjects s
        JOIN subject_faculty sf ON sf.subject_id = s.id
        WHERE sf.user_id = $1 AND s.archived
        ORDER BY s.created_at`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, facultyUserID); err != nil {
		return nil, fmt.Errorf("list archived subjects: %w", err)
	}
	return subjects, nil
}

// ListByStudent returns the active subjects a student is enrolled in.
func (r *SubjectRepository) ListByStudent(ctx context.Context, studentUserID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.subject_id, s.subject_code, s.subject_name, s.department, s.section, s.programme, s.semester, s.archived, s.created_at
        FROM subjects s
        JOIN subject_students ss ON ss.subject_id = s.id
        WHERE ss.user_id = $1 AND NOT s.archived
        ORDER BY s.created_at`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, studentUserID); err != nil {
		return nil, fmt.Errorf("list student subjects: %w", err)
	}
	return subjects, nil
}

// ListActive returns every active subject.
func (r *SubjectRepository) ListActive(ctx context.Context) ([]models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE NOT archived ORDER BY created_at`, subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Roster returns the enrolled students of a subject.
func (r *SubjectRepository) Roster(ctx context.Context, id string) ([]models.RosterStudent, error) {
	const query = `SELECT u.id AS user_id, u.name, u.email, u.registration_number
        FROM subject_students ss
        JOIN users u ON u.id = ss.user_id
        WHERE ss.subject_id = $1
        ORDER BY u.name`
	var roster []models.RosterStudent
	if err := r.db.SelectContext(ctx, &roster, query, id); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return roster, nil
}

// AssignedFaculty returns the faculty assigned to a subject.
func (r *SubjectRepository) AssignedFaculty(ctx context.Context, id string) ([]models.RosterStudent, error) {
	const query = `SELECT u.id AS user_id, u.name, u.email, u.registration_number
        FROM subject_faculty sf
        JOIN users u ON u.id = sf.user_id
        WHERE sf.subject_id = $1
        ORDER BY u.name`
	var faculty []models.RosterStudent
	if err := r.db.SelectContext(ctx, &faculty, query, id); err != nil {
		return nil, fmt.Errorf("load assigned faculty: %w", err)
	}
	return faculty, nil
}

// IsFacultyAssigned reports whether the user is assigned to the subject.
func (r *SubjectRepository) IsFacultyAssigned(ctx context.Context, id, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_faculty WHERE subject_id = $1 AND user_id = $2)`
	var assigned bool
	if err := r.db.GetContext(ctx, &assigned, query, id, userID); err != nil {
		return false, fmt.Errorf("check faculty assignment: %w", err)
	}
	return assigned, nil
}

// IsStudentEnrolled reports whether the student is on the subject roster.
func (r *SubjectRepository) IsStudentEnrolled(ctx context.Context, id, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_students WHERE subject_id = $1 AND user_id = $2)`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, id, userID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

// AddFaculty assigns a faculty to the subject.
func (r *SubjectRepository) AddFaculty(ctx context.Context, id, userID string) error {
	const query = `INSERT INTO subject_faculty (subject_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("add faculty: %w", err)
	}
	return nil
}

// AddStudent enrolls a student on the subject roster.
func (r *SubjectRepository) AddStudent(ctx context.Context, id, userID string) error {
	const query = `INSERT INTO subject_students (subject_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("add student: %w", err)
	}
	return nil
}

// RemoveStudent strikes a student from the subject roster.
func (r *SubjectRepository) RemoveStudent(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM subject_students WHERE subject_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("remove student: %w", err)
	}
	return nil
}
