package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/campuskit/attendance-api/internal/models"
)

// RequestRepository stages approval requests in Redis until a faculty
// resolves them. Enrollment requests live in a hash per subject keyed by
// student email; collaboration requests live in a set per target faculty.
// Neither key carries an expiry: staged requests wait indefinitely.
type RequestRepository struct {
	client *redis.Client
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(client *redis.Client) *RequestRepository {
	return &RequestRepository{client: client}
}

const enrollmentKeyPrefix = "enrollment_requests:"

func enrollmentKey(subjectID string) string {
	return enrollmentKeyPrefix + subjectID
}

func collaborationKey(facultyEmail string) string {
	return "faculty_request:" + facultyEmail
}

// StageEnrollment stores a pending enrollment request under the subject.
func (r *RequestRepository) StageEnrollment(ctx context.Context, subjectID string, request models.EnrollmentRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal enrollment request: %w", err)
	}
	if err := r.client.HSet(ctx, enrollmentKey(subjectID), request.Email, payload).Err(); err != nil {
		return fmt.Errorf("stage enrollment request: %w", err)
	}
	return nil
}

// EnrollmentExists reports whether the student already has a pending request
// for the subject.
func (r *RequestRepository) EnrollmentExists(ctx context.Context, subjectID, email string) (bool, error) {
	exists, err := r.client.HExists(ctx, enrollmentKey(subjectID), email).Result()
	if err != nil {
		return false, fmt.Errorf("check enrollment request: %w", err)
	}
	return exists, nil
}

// ListEnrollments returns the pending enrollment requests of a subject.
func (r *RequestRepository) ListEnrollments(ctx context.Context, subjectID string) ([]models.EnrollmentRequest, error) {
	raw, err := r.client.HGetAll(ctx, enrollmentKey(subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list enrollment requests: %w", err)
	}
	requests := make([]models.EnrollmentRequest, 0, len(raw))
	for _, payload := range raw {
		var request models.EnrollmentRequest
		if err := json.Unmarshal([]byte(payload), &request); err != nil {
			return nil, fmt.Errorf("decode enrollment request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}

// RemoveEnrollment clears a staged enrollment request. It reports whether a
// request existed.
func (r *RequestRepository) RemoveEnrollment(ctx context.Context, subjectID, email string) (bool, error) {
	removed, err := r.client.HDel(ctx, enrollmentKey(subjectID), email).Result()
	if err != nil {
		return false, fmt.Errorf("remove enrollment request: %w", err)
	}
	return removed > 0, nil
}

// SubjectsWithEnrollments scans for every subject that has at least one
// pending enrollment request and returns its identifier.
func (r *RequestRepository) SubjectsWithEnrollments(ctx context.Context) ([]string, error) {
	var subjectIDs []string
	iter := r.client.Scan(ctx, 0, enrollmentKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		subjectIDs = append(subjectIDs, strings.TrimPrefix(iter.Val(), enrollmentKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan enrollment requests: %w", err)
	}
	return subjectIDs, nil
}

// StageCollaboration stores a pending collaboration invite for the target
// faculty. Identical payloads collapse into one set member.
func (r *RequestRepository) StageCollaboration(ctx context.Context, facultyEmail string, request models.CollaborationRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal collaboration request: %w", err)
	}
	if err := r.client.SAdd(ctx, collaborationKey(facultyEmail), payload).Err(); err != nil {
		return fmt.Errorf("stage collaboration request: %w", err)
	}
	return nil
}

// ListCollaborations returns the pending collaboration invites of a faculty.
func (r *RequestRepository) ListCollaborations(ctx context.Context, facultyEmail string) ([]models.CollaborationRequest, error) {
	members, err := r.client.SMembers(ctx, collaborationKey(facultyEmail)).Result()
	if err != nil {
		return nil, fmt.Errorf("list collaboration requests: %w", err)
	}
	requests := make([]models.CollaborationRequest, 0, len(members))
	for _, member := range members {
		var request models.CollaborationRequest
		if err := json.Unmarshal([]byte(member), &request); err != nil {
			return nil, fmt.Errorf("decode collaboration request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}

// TakeCollaboration finds the invite for the given subject in the faculty's
// set, removes it and returns it. It returns nil when no invite matches.
func (r *RequestRepository) TakeCollaboration(ctx context.Context, facultyEmail, subjectID string) (*models.CollaborationRequest, error) {
	key := collaborationKey(facultyEmail)
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("list collaboration requests: %w", err)
	}
	for _, member := range members {
		var request models.CollaborationRequest
		if err := json.Unmarshal([]byte(member), &request); err != nil {
			return nil, fmt.Errorf("decode collaboration request: %w", err)
		}
		if request.SubjectID != subjectID {
			continue
		}
		if err := r.client.SRem(ctx, key, member).Err(); err != nil {
			return nil, fmt.Errorf("remove collaboration request: %w", err)
		}
		return &request, nil
	}
	return nil, nil
}
