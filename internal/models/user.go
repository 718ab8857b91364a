package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleFaculty UserRole = "Faculty"
	RoleStudent UserRole = "Student"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleFaculty, RoleStudent:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	RegistrationNumber *string   `db:"registration_number" json:"registration_number,omitempty"`
	Role               UserRole  `db:"role" json:"role"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// ScholarID returns the registration number or an empty string. Mobile
// clients call this field scholarID.
func (u *User) ScholarID() string {
	if u.RegistrationNumber == nil {
		return ""
	}
	return *u.RegistrationNumber
}
