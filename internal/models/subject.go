package models

import "time"

// Subject represents a taught subject. SubjectID is the external identifier
// used by clients and in Redis keys; ID is the internal primary key.
type Subject struct {
	ID          string    `db:"id" json:"-"`
	SubjectID   string    `db:"subject_id" json:"subjectID"`
	SubjectCode string    `db:"subject_code" json:"subjectCode"`
	SubjectName string    `db:"subject_name" json:"subjectName"`
	Department  string    `db:"department" json:"department"`
	Section     string    `db:"section" json:"section"`
	Programme   string    `db:"programme" json:"programme"`
	Semester    string    `db:"semester" json:"semester"`
	Archived    bool      `db:"archived" json:"archived,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// SubjectRef is the compact subject projection returned in listings.
type SubjectRef struct {
	SubjectID   string `db:"subject_id" json:"subjectID"`
	SubjectCode string `db:"subject_code" json:"subjectCode"`
	SubjectName string `db:"subject_name" json:"subjectName"`
}

// RosterStudent is one enrolled student on a subject roster.
type RosterStudent struct {
	UserID             string  `db:"user_id" json:"_id"`
	Name               string  `db:"name" json:"name"`
	Email              string  `db:"email" json:"email"`
	RegistrationNumber *string `db:"registration_number" json:"scholarID"`
}
