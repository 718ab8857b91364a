package service

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type fakeAuthRepo struct {
	users map[string]*models.User
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: make(map[string]*models.User)}
}

func (f *fakeAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeAuthRepo) FindByEmailAndRole(_ context.Context, email string, role models.UserRole) (*models.User, error) {
	user, ok := f.users[email]
	if !ok || user.Role != role {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeAuthRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.users[email]
	return ok, nil
}

func (f *fakeAuthRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + strconv.Itoa(len(f.users)+1)
	}
	f.users[user.Email] = user
	return nil
}

func newAuthFixture() (*AuthService, *fakeAuthRepo) {
	repo := newFakeAuthRepo()
	cfg := AuthConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "attendance-api",
	}
	return NewAuthService(repo, cfg, nil, nil), repo
}

func TestAuthRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Name:      "Alice",
		Email:     "alice@example.edu",
		Password:  "secret1",
		Role:      models.RoleStudent,
		ScholarID: "2112001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	pair, err := svc.Login(ctx, LoginRequest{Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	require.NotNil(t, pair.User)
	assert.Equal(t, "alice@example.edu", pair.User.Email)

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.edu", claims.Email)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthRegisterStudentRequiresRegistrationNumber(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.users)

	// Faculty accounts have no registration number.
	_, err = svc.Register(ctx, RegisterRequest{Name: "Prof", Email: "prof@example.edu", Password: "secret1", Role: models.RoleFaculty})
	require.NoError(t, err)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	req := RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.edu", Password: "wrong", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginWrongRole(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.edu", Password: "secret1", Role: models.RoleFaculty})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"})
	require.NoError(t, err)
	repo.users["alice@example.edu"].Active = false

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshIssuesNewPair(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"})
	require.NoError(t, err)

	pair, err := svc.Login(ctx, LoginRequest{Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)

	renewed, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, renewed.AccessToken)

	claims, err := svc.ParseAccessToken(renewed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.edu", claims.Email)
}

func TestAuthRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"})
	require.NoError(t, err)

	pair, err := svc.Login(ctx, LoginRequest{Email: "alice@example.edu", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)

	// An access token must not pass as a refresh token and vice versa.
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.AccessToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.ParseAccessToken(pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthParseRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthFixture()
	other := NewAuthService(newFakeAuthRepo(), AuthConfig{
		Secret:            "different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	}, nil, nil)

	ctx := context.Background()
	_, err := other.Register(ctx, RegisterRequest{Name: "Mallory", Email: "mallory@example.edu", Password: "secret1", Role: models.RoleStudent, ScholarID: "2112001"})
	require.NoError(t, err)
	pair, err := other.Login(ctx, LoginRequest{Email: "mallory@example.edu", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
