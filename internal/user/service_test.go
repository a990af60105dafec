package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"task_list/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "user-service-test-secret"

// MockUserRepository is a mock implementation of UserRepositoryInterface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *User) (*User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, username, hashedPassword string) error {
	args := m.Called(ctx, username, hashedPassword)
	return args.Error(0)
}

func newTestService(t *testing.T, repo UserRepositoryInterface) UserServiceInterface {
	t.Helper()
	tokens, err := auth.NewJWTManager(testSecret)
	require.NoError(t, err)
	return NewUserService(repo, tokens, nil)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.GeneratePasswordHash(password)
	require.NoError(t, err)
	return h
}

func TestRegister_Success(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
		return u.Username == "ann" &&
			u.Password != "pw1" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("pw1")) == nil
	})).Return(&User{ID: 1, Username: "ann"}, nil)

	user, err := svc.Register(ctx, "ann", "pw1")

	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "ann", user.Username)
	repo.AssertExpectations(t)
}

func TestRegister_Duplicate(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*user.User")).Return(nil, ErrDuplicateUsername)

	user, err := svc.Register(ctx, "ann", "pw1")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_Validation(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "pw"},
		{name: "blank username", username: "   ", password: "pw"},
		{name: "empty password", username: "ann", password: ""},
		{name: "password over 72 bytes", username: "ann", password: strings.Repeat("é", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	repo.AssertNotCalled(t, "Create")
}

func TestLogin_Success(t *testing.T) {
	repo := new(MockUserRepository)
	tokens, err := auth.NewJWTManager(testSecret)
	require.NoError(t, err)
	svc := NewUserService(repo, tokens, nil)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ann").Return(&User{ID: 7, Username: "ann", Password: hashed(t, "pw1")}, nil)

	issued, err := svc.Login(ctx, "ann", "pw1")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, int64(3600), issued.ExpiresIn)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ann").Return(&User{ID: 7, Username: "ann", Password: hashed(t, "pw1")}, nil)

	issued, err := svc.Login(ctx, "ann", "nope")

	assert.Nil(t, issued)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ghost").Return(nil, ErrUserNotFound)

	issued, err := svc.Login(ctx, "ghost", "pw1")

	assert.Nil(t, issued)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_StoreError(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	storeErr := errors.New("connection refused")
	repo.On("GetByUsername", ctx, "ann").Return(nil, storeErr)

	_, err := svc.Login(ctx, "ann", "pw1")

	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword_Success(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ann").Return(&User{ID: 7, Username: "ann", Password: hashed(t, "pw1")}, nil)
	repo.On("UpdatePassword", ctx, "ann", mock.MatchedBy(func(h string) bool {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte("pw2")) == nil
	})).Return(nil)

	err := svc.ChangePassword(ctx, "ann", "pw1", "pw2")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ann").Return(&User{ID: 7, Username: "ann", Password: hashed(t, "pw1")}, nil)

	err := svc.ChangePassword(ctx, "ann", "wrong", "pw2")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ghost").Return(nil, ErrUserNotFound)

	err := svc.ChangePassword(ctx, "ghost", "pw1", "pw2")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword_UserVanishedBeforeUpdate(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "ann").Return(&User{ID: 7, Username: "ann", Password: hashed(t, "pw1")}, nil)
	repo.On("UpdatePassword", ctx, "ann", mock.AnythingOfType("string")).Return(ErrUserNotFound)

	err := svc.ChangePassword(ctx, "ann", "pw1", "pw2")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword_EmptyNewPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)

	err := svc.ChangePassword(context.Background(), "ann", "pw1", "")

	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestRegister_PasswordAtByteLimit(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	password := strings.Repeat("é", auth.MaxPasswordBytes/2)
	repo.On("Create", ctx, mock.AnythingOfType("*user.User")).Return(&User{ID: 1, Username: "ann"}, nil)

	_, err := svc.Register(ctx, "ann", password)

	require.NoError(t, err)
}

func TestChangePassword_NewPasswordTooLong(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)

	err := svc.ChangePassword(context.Background(), "ann", "pw1", strings.Repeat("é", 40))

	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownUserStillComparesHash(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	stored := hashed(t, "pw1")
	repo.On("GetByUsername", ctx, "ann").Return(&User{ID: 7, Username: "ann", Password: stored}, nil)
	repo.On("GetByUsername", ctx, "ghost").Return(nil, ErrUserNotFound)

	// warm the lazily built placeholder hash
	_, _ = svc.Login(ctx, "ghost", "pw")

	start := time.Now()
	_, err := svc.Login(ctx, "ann", "wrong")
	wrongPassword := time.Since(start)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	start = time.Now()
	_, err = svc.Login(ctx, "ghost", "wrong")
	unknownUser := time.Since(start)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Greater(t, unknownUser, wrongPassword/4,
		"unknown user rejected in %s, wrong password in %s", unknownUser, wrongPassword)
}

func TestExists(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestService(t, repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, 1).Return(&User{ID: 1}, nil)
	repo.On("GetByID", ctx, 2).Return(nil, ErrUserNotFound)
	repo.On("GetByID", ctx, 3).Return(nil, errors.New("db down"))

	ok, err := svc.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Exists(ctx, 3)
	assert.Error(t, err)
}
