package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

// fakeSessionStore models the Redis hash with a whole-key expiry driven by a
// movable clock, so expiry behaviour is testable without sleeping.
type fakeSessionStore struct {
	now      func() time.Time
	fields   map[string]map[string]string
	deadline map[string]time.Time
}

func newFakeSessionStore(now func() time.Time) *fakeSessionStore {
	return &fakeSessionStore{
		now:      now,
		fields:   make(map[string]map[string]string),
		deadline: make(map[string]time.Time),
	}
}

func (f *fakeSessionStore) expire(subjectID string) {
	if deadline, ok := f.deadline[subjectID]; ok && f.now().After(deadline) {
		delete(f.fields, subjectID)
		delete(f.deadline, subjectID)
	}
}

func (f *fakeSessionStore) SetLocation(_ context.Context, subjectID, email string, location []byte, ttl time.Duration) error {
	f.expire(subjectID)
	if f.fields[subjectID] == nil {
		f.fields[subjectID] = make(map[string]string)
	}
	f.fields[subjectID][email] = string(location)
	f.deadline[subjectID] = f.now().Add(ttl)
	return nil
}

func (f *fakeSessionStore) ActorExists(_ context.Context, subjectID, email string) (bool, error) {
	f.expire(subjectID)
	_, ok := f.fields[subjectID][email]
	return ok, nil
}

func (f *fakeSessionStore) RemoveActor(_ context.Context, subjectID, email string) error {
	f.expire(subjectID)
	delete(f.fields[subjectID], email)
	return nil
}

func (f *fakeSessionStore) Locations(_ context.Context, subjectID string) (map[string]string, error) {
	f.expire(subjectID)
	out := make(map[string]string, len(f.fields[subjectID]))
	for k, v := range f.fields[subjectID] {
		out[k] = v
	}
	return out, nil
}

type sessionSubjectStub struct {
	subject *models.Subject
}

func (s sessionSubjectStub) FindBySubjectID(_ context.Context, subjectID string) (*models.Subject, error) {
	if s.subject == nil || s.subject.SubjectID != subjectID {
		return nil, sql.ErrNoRows
	}
	return s.subject, nil
}

type dayRecordStub struct {
	calls []string
}

func (d *dayRecordStub) EnsureDayRecord(_ context.Context, subjectID, classDate string) (bool, error) {
	key := subjectID + "@" + classDate
	for _, existing := range d.calls {
		if existing == key {
			d.calls = append(d.calls, key)
			return false, nil
		}
	}
	d.calls = append(d.calls, key)
	return true, nil
}

func newSessionFixture(t *testing.T) (*SessionService, *fakeSessionStore, *dayRecordStub, *time.Time) {
	t.Helper()
	current := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newFakeSessionStore(func() time.Time { return current })
	ledger := &dayRecordStub{}
	subjects := sessionSubjectStub{subject: &models.Subject{ID: "pk-1", SubjectID: "sub-1"}}

	svc := NewSessionService(store, subjects, ledger, 300*time.Second, nil, nil)
	svc.now = func() time.Time { return current }
	return svc, store, ledger, &current
}

func TestSessionStartUnknownSubject(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t)
	err := svc.Start(context.Background(), "missing", "prof@example.edu", json.RawMessage(`{"latitude":1}`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionStartCreatesOneRecordPerDay(t *testing.T) {
	svc, _, ledger, now := newSessionFixture(t)
	ctx := context.Background()
	location := json.RawMessage(`{"latitude":26.61,"longitude":92.79}`)

	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", location))
	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", location))
	assert.Len(t, ledger.calls, 2)
	assert.Equal(t, ledger.calls[0], ledger.calls[1])

	*now = now.Add(24 * time.Hour)
	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", location))
	assert.Len(t, ledger.calls, 3)
	assert.NotEqual(t, ledger.calls[0], ledger.calls[2])
}

func TestSessionActiveLocationWithinWindow(t *testing.T) {
	svc, _, _, now := newSessionFixture(t)
	ctx := context.Background()
	location := json.RawMessage(`{"latitude":26.61,"longitude":92.79}`)

	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", location))

	*now = now.Add(200 * time.Second)
	got, err := svc.ActiveLocation(ctx, "sub-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(location), string(got))
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	svc, _, _, now := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", json.RawMessage(`{"latitude":1}`)))

	*now = now.Add(301 * time.Second)
	_, err := svc.ActiveLocation(ctx, "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.UpdateLocation(ctx, "sub-1", "prof@example.edu", json.RawMessage(`{"latitude":2}`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionUpdateExtendsWindow(t *testing.T) {
	svc, _, _, now := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", json.RawMessage(`{"latitude":1}`)))

	*now = now.Add(250 * time.Second)
	require.NoError(t, svc.UpdateLocation(ctx, "sub-1", "prof@example.edu", json.RawMessage(`{"latitude":2}`)))

	*now = now.Add(250 * time.Second)
	got, err := svc.ActiveLocation(ctx, "sub-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"latitude":2}`, string(got))
}

func TestSessionStopRemovesSingleActor(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "sub-1", "prof@example.edu", json.RawMessage(`{"latitude":1}`)))
	require.NoError(t, svc.Start(ctx, "sub-1", "coprof@example.edu", json.RawMessage(`{"latitude":9}`)))

	require.NoError(t, svc.Stop(ctx, "sub-1", "prof@example.edu"))

	got, err := svc.ActiveLocation(ctx, "sub-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"latitude":9}`, string(got))

	require.NoError(t, svc.Stop(ctx, "sub-1", "coprof@example.edu"))
	_, err = svc.ActiveLocation(ctx, "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Stopping an already-ended session stays quiet.
	require.NoError(t, svc.Stop(ctx, "sub-1", "prof@example.edu"))
}
