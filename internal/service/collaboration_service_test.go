package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type fakeCollaborationStage struct {
	invites map[string][]models.CollaborationRequest
}

func newFakeCollaborationStage() *fakeCollaborationStage {
	return &fakeCollaborationStage{invites: make(map[string][]models.CollaborationRequest)}
}

func (f *fakeCollaborationStage) StageCollaboration(_ context.Context, facultyEmail string, request models.CollaborationRequest) error {
	f.invites[facultyEmail] = append(f.invites[facultyEmail], request)
	return nil
}

func (f *fakeCollaborationStage) ListCollaborations(_ context.Context, facultyEmail string) ([]models.CollaborationRequest, error) {
	return f.invites[facultyEmail], nil
}

func (f *fakeCollaborationStage) TakeCollaboration(_ context.Context, facultyEmail, subjectID string) (*models.CollaborationRequest, error) {
	for i, request := range f.invites[facultyEmail] {
		if request.SubjectID == subjectID {
			f.invites[facultyEmail] = append(f.invites[facultyEmail][:i], f.invites[facultyEmail][i+1:]...)
			return &request, nil
		}
	}
	return nil, nil
}

type fakeCollaborationSubjects struct {
	subject  *models.Subject
	assigned map[string]bool
	added    []string
}

func (f *fakeCollaborationSubjects) FindBySubjectID(_ context.Context, subjectID string) (*models.Subject, error) {
	if f.subject == nil || f.subject.SubjectID != subjectID {
		return nil, sql.ErrNoRows
	}
	return f.subject, nil
}

func (f *fakeCollaborationSubjects) IsFacultyAssigned(_ context.Context, _, userID string) (bool, error) {
	return f.assigned[userID], nil
}

func (f *fakeCollaborationSubjects) AddFaculty(_ context.Context, _, userID string) error {
	f.assigned[userID] = true
	f.added = append(f.added, userID)
	return nil
}

func newCollaborationFixture() (*CollaborationService, *fakeCollaborationStage, *fakeCollaborationSubjects) {
	stage := newFakeCollaborationStage()
	subjects := &fakeCollaborationSubjects{
		subject: &models.Subject{
			ID:          "pk-1",
			SubjectID:   "sub-1",
			SubjectName: "Networks",
			Department:  "CSE",
			Section:     "A",
			Programme:   "BTech",
			Semester:    "6",
		},
		assigned: map[string]bool{"fac-1": true},
	}
	users := fakeUserReader{users: map[string]*models.User{
		"prof@example.edu":   {ID: "fac-1", Name: "Prof", Email: "prof@example.edu", Role: models.RoleFaculty},
		"guest@example.edu":  {ID: "fac-2", Name: "Guest", Email: "guest@example.edu", Role: models.RoleFaculty},
		"alice@example.edu":  {ID: "stu-1", Name: "Alice", Email: "alice@example.edu", Role: models.RoleStudent},
		"helper@example.edu": {ID: "fac-3", Name: "Helper", Email: "helper@example.edu", Role: models.RoleFaculty},
	}}
	return NewCollaborationService(stage, subjects, users, nil, nil), stage, subjects
}

func TestCollaborationInviteStagesMetadata(t *testing.T) {
	svc, stage, _ := newCollaborationFixture()
	ctx := context.Background()

	require.NoError(t, svc.Invite(ctx, "sub-1", "prof@example.edu", "guest@example.edu"))

	invites, err := svc.List(ctx, "guest@example.edu")
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, "sub-1", invites[0].SubjectID)
	assert.Equal(t, "prof@example.edu", invites[0].Email)
	assert.Equal(t, "Networks", invites[0].SubjectName)
	assert.Equal(t, "CSE", invites[0].Department)

	// The invite is keyed by the target, not the inviter.
	assert.Empty(t, stage.invites["prof@example.edu"])
}

func TestCollaborationInviteByUnassignedFaculty(t *testing.T) {
	svc, _, _ := newCollaborationFixture()
	err := svc.Invite(context.Background(), "sub-1", "guest@example.edu", "helper@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCollaborationInviteAlreadyAssignedTarget(t *testing.T) {
	svc, _, subjects := newCollaborationFixture()
	subjects.assigned["fac-2"] = true

	err := svc.Invite(context.Background(), "sub-1", "prof@example.edu", "guest@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCollaborationAcceptAssignsResponder(t *testing.T) {
	svc, stage, subjects := newCollaborationFixture()
	ctx := context.Background()

	require.NoError(t, svc.Invite(ctx, "sub-1", "prof@example.edu", "guest@example.edu"))
	require.NoError(t, svc.Respond(ctx, "guest@example.edu", "sub-1", models.RespondAccept))

	assert.Equal(t, []string{"fac-2"}, subjects.added)
	assert.Empty(t, stage.invites["guest@example.edu"])
}

func TestCollaborationRejectLeavesAssignmentsUntouched(t *testing.T) {
	svc, stage, subjects := newCollaborationFixture()
	ctx := context.Background()

	require.NoError(t, svc.Invite(ctx, "sub-1", "prof@example.edu", "guest@example.edu"))
	require.NoError(t, svc.Respond(ctx, "guest@example.edu", "sub-1", models.RespondReject))

	assert.Empty(t, subjects.added)
	assert.Empty(t, stage.invites["guest@example.edu"])
}

func TestCollaborationRespondInvalidActionKeepsInvite(t *testing.T) {
	svc, stage, _ := newCollaborationFixture()
	ctx := context.Background()

	require.NoError(t, svc.Invite(ctx, "sub-1", "prof@example.edu", "guest@example.edu"))

	err := svc.Respond(ctx, "guest@example.edu", "sub-1", models.RespondAction("maybe"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, stage.invites["guest@example.edu"], 1, "invalid action must not consume the invite")
}

func TestCollaborationHasPending(t *testing.T) {
	svc, _, _ := newCollaborationFixture()
	ctx := context.Background()

	pending, err := svc.HasPending(ctx, "guest@example.edu")
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, svc.Invite(ctx, "sub-1", "prof@example.edu", "guest@example.edu"))

	pending, err = svc.HasPending(ctx, "guest@example.edu")
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestCollaborationRespondWithoutInvite(t *testing.T) {
	svc, _, _ := newCollaborationFixture()
	err := svc.Respond(context.Background(), "guest@example.edu", "sub-1", models.RespondAccept)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
