package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/mailer"
)

type fakeOTPStore struct {
	hashes map[string]string
	ttls   map[string]time.Duration
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{hashes: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeOTPStore) Store(_ context.Context, email, hash string, ttl time.Duration) error {
	f.hashes[email] = hash
	f.ttls[email] = ttl
	return nil
}

func (f *fakeOTPStore) Hash(_ context.Context, email string) (string, bool, error) {
	hash, ok := f.hashes[email]
	return hash, ok, nil
}

func (f *fakeOTPStore) Invalidate(_ context.Context, email string) error {
	delete(f.hashes, email)
	return nil
}

type fakeOTPUsers struct {
	registered map[string]bool
	passwords  map[string]string
}

func (f *fakeOTPUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return f.registered[email], nil
}

func (f *fakeOTPUsers) UpdatePassword(_ context.Context, email, passwordHash string) error {
	f.passwords[email] = passwordHash
	return nil
}

type capturingMailer struct {
	sent []mailer.Message
}

func (m *capturingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

var otpCodePattern = regexp.MustCompile(`\b(\d{4})\b`)

func sentCode(t *testing.T, mail *capturingMailer) string {
	t.Helper()
	require.NotEmpty(t, mail.sent)
	match := otpCodePattern.FindStringSubmatch(mail.sent[len(mail.sent)-1].Body)
	require.NotNil(t, match, "mail body must carry the code")
	return match[1]
}

func newOTPFixture() (*OTPService, *fakeOTPStore, *fakeOTPUsers, *capturingMailer) {
	store := newFakeOTPStore()
	users := &fakeOTPUsers{
		registered: map[string]bool{"alice@example.edu": true},
		passwords:  make(map[string]string),
	}
	mail := &capturingMailer{}
	cfg := OTPConfig{TTL: 5 * time.Minute, FirstTimeTTL: 10 * time.Minute}
	return NewOTPService(store, users, mail, cfg, nil, nil), store, users, mail
}

func TestOTPSendAndVerify(t *testing.T) {
	svc, store, _, mail := newOTPFixture()
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "alice@example.edu"))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.edu", mail.sent[0].To)
	assert.Equal(t, 5*time.Minute, store.ttls["alice@example.edu"])

	code := sentCode(t, mail)
	require.NoError(t, svc.Verify(ctx, "alice@example.edu", code))

	// Codes are single use.
	err := svc.Verify(ctx, "alice@example.edu", code)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOTPFirstTimeGetsLongerWindow(t *testing.T) {
	svc, store, _, _ := newOTPFixture()

	require.NoError(t, svc.Send(context.Background(), "newcomer@example.edu"))
	assert.Equal(t, 10*time.Minute, store.ttls["newcomer@example.edu"])
}

func TestOTPVerifyWrongCode(t *testing.T) {
	svc, store, _, _ := newOTPFixture()
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "alice@example.edu"))

	// Five digits can never match a generated four-digit code.
	err := svc.Verify(ctx, "alice@example.edu", "00000")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// A failed attempt must not consume the code.
	_, found, storeErr := store.Hash(ctx, "alice@example.edu")
	require.NoError(t, storeErr)
	assert.True(t, found)
}

func TestOTPVerifyWithoutSend(t *testing.T) {
	svc, _, _, _ := newOTPFixture()
	err := svc.Verify(context.Background(), "alice@example.edu", "1234")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOTPResetPassword(t *testing.T) {
	svc, _, users, mail := newOTPFixture()
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "alice@example.edu"))
	code := sentCode(t, mail)

	require.NoError(t, svc.ResetPassword(ctx, "alice@example.edu", code, "brand-new"))
	hash := users.passwords["alice@example.edu"]
	require.NotEmpty(t, hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("brand-new")))
}

func TestOTPResetPasswordUnknownAccount(t *testing.T) {
	svc, _, users, _ := newOTPFixture()
	err := svc.ResetPassword(context.Background(), "ghost@example.edu", "1234", "brand-new")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.passwords)
}

func TestOTPResetPasswordTooShort(t *testing.T) {
	svc, _, _, _ := newOTPFixture()
	err := svc.ResetPassword(context.Background(), "alice@example.edu", "1234", "abc")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
