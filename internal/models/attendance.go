package models

import "time"

// AttendanceRecord is one dated ledger entry for a subject. At most one
// record exists per subject per calendar date, enforced by a unique
// constraint on (subject_id, class_date).
type AttendanceRecord struct {
	ID         string    `db:"id" json:"-"`
	SubjectID  string    `db:"subject_id" json:"-"`
	ClassDate  time.Time `db:"class_date" json:"date"`
	RecordedAt time.Time `db:"recorded_at" json:"-"`
}

// AttendanceEntry is one student's presence flag on a record.
type AttendanceEntry struct {
	RecordID  string `db:"record_id" json:"-"`
	StudentID string `db:"student_id" json:"_id"`
	Present   bool   `db:"present" json:"present"`
}

// AttendanceEntryDetail extends an entry with student metadata for reads.
type AttendanceEntryDetail struct {
	StudentID          string  `db:"student_id" json:"_id"`
	Name               string  `db:"name" json:"name"`
	RegistrationNumber *string `db:"registration_number" json:"scholarID"`
	Present            bool    `db:"present" json:"present"`
}

// AttendanceRecordDetail is a record with its full roster detail.
type AttendanceRecordDetail struct {
	Date     time.Time               `json:"date"`
	Students []AttendanceEntryDetail `json:"Students"`
}

// EntryUpdate is one presence edit in a bulk attendance update.
type EntryUpdate struct {
	StudentID string `json:"_id" validate:"required"`
	Present   bool   `json:"present"`
}

// DayKey normalises a timestamp to its calendar-date string. Record equality
// across the API is by day, never by instant.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
