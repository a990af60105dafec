package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"task_list/internal/auth"
	"task_list/internal/observability"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	repo    UserRepositoryInterface
	tokens  *auth.JWTManager
	metrics *observability.Metrics
}

type UserServiceInterface interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) (*auth.IssuedToken, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, id int) (*User, error)
	Exists(ctx context.Context, id int) (bool, error)
}

func NewUserService(repo UserRepositoryInterface, tokens *auth.JWTManager, metrics *observability.Metrics) UserServiceInterface {
	return &UserService{
		repo:    repo,
		tokens:  tokens,
		metrics: metrics,
	}
}

// Register creates a user with a hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if err := checkPasswordLength(password); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.GeneratePasswordHash(password)
	if err != nil {
		s.metrics.AuthAttempt("register", "error")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{
		Username: username,
		Password: hashedPassword,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			s.metrics.AuthAttempt("register", "duplicate")
		} else {
			s.metrics.AuthAttempt("register", "error")
		}
		return nil, err
	}

	s.metrics.AuthAttempt("register", "success")
	return user, nil
}

// Login validates username and password and issues a bearer token.
func (s *UserService) Login(ctx context.Context, username, password string) (*auth.IssuedToken, error) {
	user, err := s.verifyCredentials(ctx, username, password)
	if err != nil {
		s.metrics.AuthAttempt("login", resultOf(err))
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		s.metrics.AuthAttempt("login", "error")
		return nil, err
	}

	s.metrics.AuthAttempt("login", "success")
	logrus.WithField("user_id", user.ID).Info("User logged in")
	return token, nil
}

// ChangePassword authenticates with the old password instead of a bearer
// token, so it also works for a user without an active session.
func (s *UserService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}

	if _, err := s.verifyCredentials(ctx, username, oldPassword); err != nil {
		s.metrics.AuthAttempt("change_password", resultOf(err))
		return err
	}

	hashedPassword, err := auth.GeneratePasswordHash(newPassword)
	if err != nil {
		s.metrics.AuthAttempt("change_password", "error")
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, username, hashedPassword); err != nil {
		s.metrics.AuthAttempt("change_password", "error")
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	s.metrics.AuthAttempt("change_password", "success")
	return nil
}

// GetUserByID retrieves user by ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether a token's user is still registered.
func (s *UserService) Exists(ctx context.Context, id int) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) verifyCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			auth.CompareDummyHash(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.ComparePasswordHash([]byte(user.Password), password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			logrus.WithError(err).WithField("user_id", user.ID).Error("Stored password hash is unreadable")
		}
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func checkPasswordLength(password string) error {
	if len(password) > auth.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, auth.MaxPasswordBytes)
	}
	return nil
}

func resultOf(err error) string {
	if errors.Is(err, ErrInvalidCredentials) {
		return "invalid_credentials"
	}
	return "error"
}
