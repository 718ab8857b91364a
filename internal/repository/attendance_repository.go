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

// AttendanceRepository handles the durable attendance ledger. A subject holds
// at most one record per class date, enforced by a unique constraint, so
// concurrent session starts for the same day collapse into a single record.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// EnsureDayRecord creates the attendance record for the given class date if it
// does not exist yet, seeding an absent entry for every enrolled student. The
// insert races safely: losers of the conflict leave the existing record and
// its entries untouched. It reports whether a new record was created.
func (r *AttendanceRepository) EnsureDayRecord(ctx context.Context, subjectID, classDate string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin day record: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRecord = `INSERT INTO attendance_records (id, subject_id, class_date, recorded_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (subject_id, class_date) DO NOTHING
        RETURNING id`
	var recordID string
	err = tx.GetContext(ctx, &recordID, insertRecord, uuid.NewString(), subjectID, classDate, time.Now().UTC())
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert day record: %w", err)
	}

	const seedEntries = `INSERT INTO attendance_entries (record_id, student_id, present)
        SELECT $1, user_id, FALSE FROM subject_students WHERE subject_id = $2`
	if _, err := tx.ExecContext(ctx, seedEntries, recordID, subjectID); err != nil {
		return false, fmt.Errorf("seed absent entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit day record: %w", err)
	}
	return true, nil
}

// LatestRecord returns the most recent attendance record of a subject.
func (r *AttendanceRepository) LatestRecord(ctx context.Context, subjectID string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, subject_id, class_date, recorded_at
        FROM attendance_records
        WHERE subject_id = $1
        ORDER BY class_date DESC
        LIMIT 1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, subjectID); err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordByDate returns the attendance record of a subject for a class date.
func (r *AttendanceRepository) RecordByDate(ctx context.Context, subjectID, classDate string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, subject_id, class_date, recorded_at
        FROM attendance_records
        WHERE subject_id = $1 AND class_date = $2`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, subjectID, classDate); err != nil {
		return nil, err
	}
	return &record, nil
}

type entryRow struct {
	ClassDate          time.Time `db:"class_date"`
	StudentID          string    `db:"student_id"`
	Name               string    `db:"name"`
	RegistrationNumber *string   `db:"registration_number"`
	Present            bool      `db:"present"`
}

// ListRecordDetails returns the full attendance history of a subject, one
// detail per class date with the per-student entries expanded.
func (r *AttendanceRepository) ListRecordDetails(ctx context.Context, subjectID string) ([]models.AttendanceRecordDetail, error) {
	const query = `SELECT ar.class_date, ae.student_id, u.name, u.registration_number, ae.present
        FROM attendance_records ar
        JOIN attendance_entries ae ON ae.record_id = ar.id
        JOIN users u ON u.id = ae.student_id
        WHERE ar.subject_id = $1
        ORDER BY ar.class_date, u.name`
	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, query, subjectID); err != nil {
		return nil, fmt.Errorf("list record details: %w", err)
	}

	details := make([]models.AttendanceRecordDetail, 0)
	for _, row := range rows {
		entry := models.AttendanceEntryDetail{
			StudentID:          row.StudentID,
			Name:               row.Name,
			RegistrationNumber: row.RegistrationNumber,
			Present:            row.Present,
		}
		if n := len(details); n > 0 && details[n-1].Date.Equal(row.ClassDate) {
			details[n-1].Students = append(details[n-1].Students, entry)
			continue
		}
		details = append(details, models.AttendanceRecordDetail{
			Date:     row.ClassDate,
			Students: []models.AttendanceEntryDetail{entry},
		})
	}
	return details, nil
}

// Entry returns a single student entry on a record.
func (r *AttendanceRepository) Entry(ctx context.Context, recordID, studentID string) (*models.AttendanceEntry, error) {
	const query = `SELECT record_id, student_id, present
        FROM attendance_entries
        WHERE record_id = $1 AND student_id = $2`
	var entry models.AttendanceEntry
	if err := r.db.GetContext(ctx, &entry, query, recordID, studentID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetPresence updates the presence flag of one entry. A missing entry
// surfaces as sql.ErrNoRows.
func (r *AttendanceRepository) SetPresence(ctx context.Context, recordID, studentID string, present bool) error {
	const query = `UPDATE attendance_entries SET present = $3
        WHERE record_id = $1 AND student_id = $2`
	res, err := r.db.ExecContext(ctx, query, recordID, studentID, present)
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set presence result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateEntries applies a batch of presence edits to one record inside a
// single transaction. Edits naming students without an entry are ignored so
// a stale roster in the payload does not abort the rest of the batch.
func (r *AttendanceRepository) UpdateEntries(ctx context.Context, recordID string, updates []models.EntryUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entry update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE attendance_entries SET present = $3
        WHERE record_id = $1 AND student_id = $2`
	for _, update := range updates {
		if _, err := tx.ExecContext(ctx, query, recordID, update.StudentID, update.Present); err != nil {
			return fmt.Errorf("update entry %s: %w", update.StudentID, err)
		}
	}
	return tx.Commit()
}

// StudentCounts returns how many classes the student attended out of the
// classes held for the subject.
func (r *AttendanceRepository) StudentCounts(ctx context.Context, subjectID, studentID string) (present int, total int, err error) {
	const query = `SELECT COUNT(*) FILTER (WHERE ae.present) AS present, COUNT(*) AS total
        FROM attendance_records ar
        JOIN attendance_entries ae ON ae.record_id = ar.id
        WHERE ar.subject_id = $1 AND ae.student_id = $2`
	row := struct {
		Present int `db:"present"`
		Total   int `db:"total"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, subjectID, studentID); err != nil {
		return 0, 0, fmt.Errorf("student counts: %w", err)
	}
	return row.Present, row.Total, nil
}

// CountRecords returns how many class dates a subject has on record.
func (r *AttendanceRepository) CountRecords(ctx context.Context, subjectID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records WHERE subject_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, subjectID); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// AppendStudentToAll backfills an absent entry for the student into every
// existing record of the subject. Used when an enrollment is approved after
// classes already took place.
func (r *AttendanceRepository) AppendStudentToAll(ctx context.Context, subjectID, studentID string) error {
	const query = `INSERT INTO attendance_entries (record_id, student_id, present)
        SELECT id, $2, FALSE FROM attendance_records WHERE subject_id = $1
        ON CONFLICT (record_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, subjectID, studentID); err != nil {
		return fmt.Errorf("backfill entries: %w", err)
	}
	return nil
}

// RemoveStudentFromAll strips the student's entries from every record of the
// subject.
func (r *AttendanceRepository) RemoveStudentFromAll(ctx context.Context, subjectID, studentID string) error {
	const query = `DELETE FROM attendance_entries
        WHERE student_id = $2
        AND record_id IN (SELECT id FROM attendance_records WHERE subject_id = $1)`
	if _, err := r.db.ExecContext(ctx, query, subjectID, studentID); err != nil {
		return fmt.Errorf("remove entries: %w", err)
	}
	return nil
}

// DeleteRecordByDate removes the record for a class date along with its
// entries.
func (r *AttendanceRepository) DeleteRecordByDate(ctx context.Context, subjectID, classDate string) error {
	const query = `DELETE FROM attendance_records WHERE subject_id = $1 AND class_date = $2`
	res, err := r.db.ExecContext(ctx, query, subjectID, classDate)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
