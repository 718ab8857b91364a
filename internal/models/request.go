package models

// EnrollmentRequest is the staged blob a student leaves under
// enrollment_requests:{subjectID} while waiting for faculty approval.
type EnrollmentRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	ScholarID string `json:"scholarID"`
	Timestamp int64  `json:"timestamp"`
}

// CollaborationRequest is the staged blob under faculty_request:{email}.
// It is keyed by the target faculty, not by subject, so responders match by
// the embedded SubjectID.
type CollaborationRequest struct {
	SubjectID   string `json:"subjectID"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	SubjectName string `json:"subjectName"`
	Section     string `json:"section"`
	Programme   string `json:"programme"`
	Semester    string `json:"semester"`
}

// ResolveAction is the approval verb for staged enrollment requests.
type ResolveAction string

const (
	ResolveApprove ResolveAction = "approve"
	ResolveReject  ResolveAction = "reject"
)

// Valid reports whether the action is supported.
func (a ResolveAction) Valid() bool {
	return a == ResolveApprove || a == ResolveReject
}

// RespondAction is the approval verb for staged collaboration requests.
type RespondAction string

const (
	RespondAccept RespondAction = "accept"
	RespondReject RespondAction = "reject"
)

// Valid reports whether the action is supported.
func (a RespondAction) Valid() bool {
	return a == RespondAccept || a == RespondReject
}
