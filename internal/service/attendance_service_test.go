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
)

type fakeLedger struct {
	records  []models.AttendanceRecord
	entries  map[string]map[string]bool
	attended int
	held     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]map[string]bool)}
}

func (f *fakeLedger) addRecord(id, subjectID string, date time.Time, entries map[string]bool) {
	f.records = append(f.records, models.AttendanceRecord{ID: id, SubjectID: subjectID, ClassDate: date})
	f.entries[id] = entries
}

func (f *fakeLedger) LatestRecord(_ context.Context, subjectID string) (*models.AttendanceRecord, error) {
	var latest *models.AttendanceRecord
	for i := range f.records {
		record := &f.records[i]
		if record.SubjectID != subjectID {
			continue
		}
		if latest == nil || record.ClassDate.After(latest.ClassDate) {
			latest = record
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (f *fakeLedger) RecordByDate(_ context.Context, subjectID, classDate string) (*models.AttendanceRecord, error) {
	for i := range f.records {
		record := &f.records[i]
		if record.SubjectID == subjectID && models.DayKey(record.ClassDate) == classDate {
			return record, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) ListRecordDetails(_ context.Context, subjectID string) ([]models.AttendanceRecordDetail, error) {
	var details []models.AttendanceRecordDetail
	for _, record := range f.records {
		if record.SubjectID != subjectID {
			continue
		}
		detail := models.AttendanceRecordDetail{Date: record.ClassDate}
		for studentID, present := range f.entries[record.ID] {
			detail.Students = append(detail.Students, models.AttendanceEntryDetail{StudentID: studentID, Present: present})
		}
		details = append(details, detail)
	}
	return details, nil
}

func (f *fakeLedger) Entry(_ context.Context, recordID, studentID string) (*models.AttendanceEntry, error) {
	present, ok := f.entries[recordID][studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AttendanceEntry{RecordID: recordID, StudentID: studentID, Present: present}, nil
}

func (f *fakeLedger) SetPresence(_ context.Context, recordID, studentID string, present bool) error {
	if _, ok := f.entries[recordID][studentID]; !ok {
		return sql.ErrNoRows
	}
	f.entries[recordID][studentID] = present
	return nil
}

func (f *fakeLedger) UpdateEntries(_ context.Context, recordID string, updates []models.EntryUpdate) error {
	for _, update := range updates {
		if _, ok := f.entries[recordID][update.StudentID]; !ok {
			continue
		}
		f.entries[recordID][update.StudentID] = update.Present
	}
	return nil
}

func (f *fakeLedger) DeleteRecordByDate(_ context.Context, subjectID, classDate string) error {
	for i, record := range f.records {
		if record.SubjectID == subjectID && models.DayKey(record.ClassDate) == classDate {
			delete(f.entries, record.ID)
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeLedger) StudentCounts(_ context.Context, _, _ string) (int, int, error) {
	return f.attended, f.held, nil
}

func newAttendanceFixture() (*AttendanceService, *fakeLedger) {
	ledger := newFakeLedger()
	subjects := sessionSubjectStub{subject: &models.Subject{ID: "pk-1", SubjectID: "sub-1", SubjectName: "Networks"}}
	users := fakeUserReader{users: map[string]*models.User{
		"alice@example.edu": {ID: "stu-1", Name: "Alice", Email: "alice@example.edu", Role: models.RoleStudent},
		"bob@example.edu":   {ID: "stu-2", Name: "Bob", Email: "bob@example.edu", Role: models.RoleStudent},
	}}
	return NewAttendanceService(ledger, subjects, users, nil, nil), ledger
}

func TestMarkPresentFlipsLatestRecord(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ctx := context.Background()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false})
	ledger.addRecord("rec-2", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false})

	require.NoError(t, svc.MarkPresent(ctx, "sub-1", "alice@example.edu"))

	assert.False(t, ledger.entries["rec-1"]["stu-1"], "earlier record must stay untouched")
	assert.True(t, ledger.entries["rec-2"]["stu-1"])
}

func TestMarkPresentTwiceConflicts(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ctx := context.Background()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false})

	require.NoError(t, svc.MarkPresent(ctx, "sub-1", "alice@example.edu"))
	err := svc.MarkPresent(ctx, "sub-1", "alice@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestMarkPresentWithoutRecords(t *testing.T) {
	svc, _ := newAttendanceFixture()
	err := svc.MarkPresent(context.Background(), "sub-1", "alice@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMarkPresentStudentNotOnRecord(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false})

	err := svc.MarkPresent(context.Background(), "sub-1", "bob@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceByDate(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ctx := context.Background()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": true})
	ledger.addRecord("rec-2", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false})

	detail, err := svc.ByDate(ctx, "sub-1", "2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", models.DayKey(detail.Date))
	require.Len(t, detail.Students, 1)
	assert.True(t, detail.Students[0].Present)

	_, err = svc.ByDate(ctx, "sub-1", "2025-03-11")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEditRecordAppliesUpdates(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ctx := context.Background()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false, "stu-2": true})

	updates := []models.EntryUpdate{
		{StudentID: "stu-1", Present: true},
		{StudentID: "stu-2", Present: false},
	}
	require.NoError(t, svc.EditRecord(ctx, "sub-1", "2025-03-10", updates))
	assert.True(t, ledger.entries["rec-1"]["stu-1"])
	assert.False(t, ledger.entries["rec-1"]["stu-2"])
}

func TestEditRecordIgnoresUnknownStudents(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ctx := context.Background()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": false})

	updates := []models.EntryUpdate{
		{StudentID: "ghost", Present: true},
		{StudentID: "stu-1", Present: true},
	}
	require.NoError(t, svc.EditRecord(ctx, "sub-1", "2025-03-10", updates))
	assert.True(t, ledger.entries["rec-1"]["stu-1"])
	_, listed := ledger.entries["rec-1"]["ghost"]
	assert.False(t, listed, "unknown students must not gain entries")
}

func TestEditRecordRejectsEmptyBatch(t *testing.T) {
	svc, _ := newAttendanceFixture()
	err := svc.EditRecord(context.Background(), "sub-1", "2025-03-10", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeleteRecordByDate(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ctx := context.Background()
	ledger.addRecord("rec-1", "pk-1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), map[string]bool{"stu-1": true})

	require.NoError(t, svc.DeleteRecord(ctx, "sub-1", "2025-03-10"))
	assert.Empty(t, ledger.records)

	err := svc.DeleteRecord(ctx, "sub-1", "2025-03-10")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentSummary(t *testing.T) {
	svc, ledger := newAttendanceFixture()
	ledger.attended = 7
	ledger.held = 10

	summary, err := svc.Summary(context.Background(), "sub-1", "alice@example.edu")
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Attended)
	assert.Equal(t, 10, summary.Held)
}
