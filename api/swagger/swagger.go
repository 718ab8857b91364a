package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Digital Attendance API",
        "description": "Geolocation-gated classroom attendance backend",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Accounts, tokens and one-time codes"},
        {"name": "Users", "description": "User profiles"},
        {"name": "Subjects", "description": "Catalogue, rosters, archival, dashboards"},
        {"name": "Sessions", "description": "Live attendance sessions"},
        {"name": "Attendance", "description": "Durable attendance ledger"},
        {"name": "Enrollments", "description": "Staged enrollment approvals"},
        {"name": "Collaborations", "description": "Faculty collaboration invites"},
        {"name": "Reports", "description": "Emailed attendance reports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check (Postgres and Redis)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Dependency unavailable"}
                }
            }
        },
        "/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Role-scoped login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token",
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid refresh token", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/send-otp": {
            "post": {
                "tags": ["Auth"],
                "summary": "Send a one-time code",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/verify-otp": {
            "post": {
                "tags": ["Auth"],
                "summary": "Verify a one-time code",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Code expired", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/reset-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Reset password with a one-time code",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/user/{email}": {
            "get": {
                "tags": ["Users"],
                "summary": "Fetch a user profile",
                "parameters": [{"name": "email", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update a user profile",
                "parameters": [{"name": "email", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/faculty/add-subject": {
            "post": {
                "tags": ["Subjects"],
                "summary": "Create a subject",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Subject already exists", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/faculty/start-attendance": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Start a live attendance session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session open"},
                    "404": {"description": "Subject not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/faculty/update-location": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Refresh the broadcast location",
                "responses": {
                    "200": {"description": "Updated"},
                    "404": {"description": "No active session", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/faculty/stop-attendance": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Stop broadcasting for a session",
                "responses": {"200": {"description": "Stopped"}}
            }
        },
        "/student/faculty-location/{subjectID}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Live faculty location for a subject",
                "parameters": [{"name": "subjectID", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Location"},
                    "404": {"description": "No active session", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/student/mark-attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark the calling student present",
                "responses": {
                    "200": {"description": "Marked"},
                    "409": {"description": "Already marked", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/student/enroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Request enrollment in a subject",
                "responses": {
                    "200": {"description": "Staged"},
                    "409": {"description": "Duplicate request or already enrolled", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/faculty/enroll-student": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Approve or reject one enrollment request",
                "responses": {"200": {"description": "Resolved"}}
            }
        },
        "/faculty/bulk-enroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Approve or reject every staged request of a subject",
                "responses": {"200": {"description": "Batch summary"}}
            }
        },
        "/faculty/new-requests": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Whether anything awaits the faculty's attention",
                "responses": {"200": {"description": "Badge booleans"}}
            }
        },
        "/faculty/enrollment-requests": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Pending requests across the faculty's subjects",
                "responses": {"200": {"description": "Requests grouped per subject"}}
            }
        },
        "/faculty/pending-requests": {
            "get": {
                "tags": ["Collaborations"],
                "summary": "Pending invites for the calling faculty",
                "responses": {"200": {"description": "Invites"}}
            }
        },
        "/faculty/add-faculty": {
            "post": {
                "tags": ["Collaborations"],
                "summary": "Invite another faculty to co-teach",
                "responses": {"200": {"description": "Staged"}}
            }
        },
        "/faculty/respond-request": {
            "post": {
                "tags": ["Collaborations"],
                "summary": "Accept or reject a collaboration invite",
                "responses": {"200": {"description": "Resolved"}}
            }
        },
        "/faculty/email-attendance": {
            "post": {
                "tags": ["Reports"],
                "summary": "Email the attendance report",
                "responses": {"202": {"description": "Queued"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["Faculty", "Student"]},
                "scholarID": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["Faculty", "Student"]}
            }
        },
        "SessionRequest": {
            "type": "object",
            "required": ["subjectID", "location"],
            "properties": {
                "subjectID": {"type": "string"},
                "location": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
