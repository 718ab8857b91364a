package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type sessionStore interface {
	SetLocation(ctx context.Context, subjectID, email string, location []byte, ttl time.Duration) error
	ActorExists(ctx context.Context, subjectID, email string) (bool, error)
	RemoveActor(ctx context.Context, subjectID, email string) error
	Locations(ctx context.Context, subjectID string) (map[string]string, error)
}

type sessionSubjectReader interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
}

type dayRecordWriter interface {
	EnsureDayRecord(ctx context.Context, subjectID, classDate string) (bool, error)
}

// SessionService runs the live attendance session lifecycle. Sessions are
// ephemeral Redis state with a rolling expiry; starting one also pins the
// day's record into the durable ledger so absences exist even if nobody ever
// marks themselves present.
type SessionService struct {
	store     sessionStore
	subjects  sessionSubjectReader
	ledger    dayRecordWriter
	ttl       time.Duration
	now       func() time.Time
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(store sessionStore, subjects sessionSubjectReader, ledger dayRecordWriter, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:     store,
		subjects:  subjects,
		ledger:    ledger,
		ttl:       ttl,
		now:       time.Now,
		validator: validate,
		logger:    logger,
	}
}

// Start opens (or rejoins) the session for a subject and broadcasts the
// actor's first location. The day's ledger record is created exactly once per
// calendar date; repeated starts on the same day reuse it.
func (s *SessionService) Start(ctx context.Context, subjectID, email string, location json.RawMessage) error {
	if len(location) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "location payload is required")
	}
	subject, err := s.subjects.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := s.store.SetLocation(ctx, subjectID, email, location, s.ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open session")
	}

	created, err := s.ledger.EnsureDayRecord(ctx, subject.ID, models.DayKey(s.now()))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record class date")
	}
	if created {
		s.logger.Info("attendance record opened",
			zap.String("subject_id", subjectID),
			zap.String("date", models.DayKey(s.now())))
	}
	return nil
}

// UpdateLocation refreshes the actor's broadcast location. It only applies to
// an actor already inside a live session; a lapsed session is not revived.
func (s *SessionService) UpdateLocation(ctx context.Context, subjectID, email string, location json.RawMessage) error {
	if len(location) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "location payload is required")
	}
	active, err := s.store.ActorExists(ctx, subjectID, email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session")
	}
	if !active {
		return appErrors.Clone(appErrors.ErrNotFound, "no active attendance session")
	}
	if err := s.store.SetLocation(ctx, subjectID, email, location, s.ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return nil
}

// Stop withdraws the actor from the session. Other faculty sharing the
// session keep broadcasting; stopping an already-ended session is a no-op.
func (s *SessionService) Stop(ctx context.Context, subjectID, email string) error {
	if err := s.store.RemoveActor(ctx, subjectID, email); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stop session")
	}
	return nil
}

// ActiveLocation returns one live broadcast location for the subject. When
// several faculty broadcast at once any one of them may be returned.
func (s *SessionService) ActiveLocation(ctx context.Context, subjectID string) (models.RawLocation, error) {
	locations, err := s.store.Locations(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read session")
	}
	if len(locations) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active attendance session")
	}
	for _, location := range locations {
		return models.RawLocation(location), nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no active attendance session")
}
