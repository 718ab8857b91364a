package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/jobs"
	"github.com/campuskit/attendance-api/pkg/mailer"
)

type fakeReportSubjects struct {
	subject  *models.Subject
	roster   []models.RosterStudent
	assigned map[string]bool
}

func (f *fakeReportSubjects) FindBySubjectID(_ context.Context, subjectID string) (*models.Subject, error) {
	if f.subject == nil || f.subject.SubjectID != subjectID {
		return nil, sql.ErrNoRows
	}
	return f.subject, nil
}

func (f *fakeReportSubjects) Roster(_ context.Context, _ string) ([]models.RosterStudent, error) {
	return f.roster, nil
}

func (f *fakeReportSubjects) IsFacultyAssigned(_ context.Context, _, userID string) (bool, error) {
	return f.assigned[userID], nil
}

type channelMailer struct {
	messages chan mailer.Message
}

func (m *channelMailer) Send(_ context.Context, msg mailer.Message) error {
	m.messages <- msg
	return nil
}

func newReportFixture() (*ReportService, *fakeLedger, *channelMailer) {
	ledger := newFakeLedger()
	subjects := &fakeReportSubjects{
		subject: &models.Subject{ID: "pk-1", SubjectID: "sub-1", SubjectName: "Networks"},
		roster: []models.RosterStudent{
			{UserID: "stu-1", Name: "Alice", Email: "alice@example.edu", RegistrationNumber: scholarID("2112001")},
			{UserID: "stu-2", Name: "Bob", Email: "bob@example.edu"},
		},
		assigned: map[string]bool{"fac-1": true},
	}
	users := fakeUserReader{users: map[string]*models.User{
		"prof@example.edu":  {ID: "fac-1", Name: "Prof", Email: "prof@example.edu", Role: models.RoleFaculty},
		"guest@example.edu": {ID: "fac-2", Name: "Guest", Email: "guest@example.edu", Role: models.RoleFaculty},
	}}
	mail := &channelMailer{messages: make(chan mailer.Message, 1)}
	svc := NewReportService(subjects, users, ledger, mail, jobs.QueueConfig{Workers: 1}, nil)
	return svc, ledger, mail
}

func TestReportMatrixMarksAndTallies(t *testing.T) {
	svc, ledger, _ := newReportFixture()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": true, "stu-2": true})
	ledger.addRecord("rec-2", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false, "stu-2": true})

	dataset, err := svc.buildMatrix(context.Background(), "pk-1", "Networks")
	require.NoError(t, err)

	assert.Equal(t, []string{"Networks", "Classes held: 2"}, dataset.Preamble)
	assert.Equal(t, []string{"Name", "Scholar ID", "2025-03-09", "2025-03-10", "Attended", "Percent"}, dataset.Headers)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, []string{"Alice", "2112001", "P", "A", "1", "50.0"}, dataset.Rows[0])
	assert.Equal(t, []string{"Bob", "", "P", "P", "2", "100.0"}, dataset.Rows[1])
}

func TestReportMatrixWithoutClasses(t *testing.T) {
	svc, _, _ := newReportFixture()

	dataset, err := svc.buildMatrix(context.Background(), "pk-1", "Networks")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Scholar ID", "Attended", "Percent"}, dataset.Headers)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, []string{"Alice", "2112001", "0", "0.0"}, dataset.Rows[0])
}

func TestReportRequestDeliversAttachments(t *testing.T) {
	svc, ledger, mail := newReportFixture()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": true, "stu-2": false})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.Request(ctx, "sub-1", "prof@example.edu"))

	select {
	case msg := <-mail.messages:
		assert.Equal(t, "prof@example.edu", msg.To)
		require.Len(t, msg.Attachments, 2)
		assert.Equal(t, "attendance.csv", msg.Attachments[0].Filename)
		assert.Equal(t, "attendance.pdf", msg.Attachments[1].Filename)
		assert.NotEmpty(t, msg.Attachments[0].Content)
		assert.NotEmpty(t, msg.Attachments[1].Content)
	case <-time.After(5 * time.Second):
		t.Fatal("report was never delivered")
	}
}

func TestReportRequestByUnassignedFaculty(t *testing.T) {
	svc, _, _ := newReportFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	err := svc.Request(ctx, "sub-1", "guest@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
