package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *sql.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, username, hashedPassword string) error
}

func NewUserRepository(db *sql.DB) UserRepositoryInterface {
	return &UserRepository{db: db}
}

// Create inserts a user. The unique constraint on username is the only
// duplicate check, so concurrent registrations cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, user *User) (*User, error) {
	query := `
		INSERT INTO users (
			username, password_hash, created_at
		)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Password,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		logrus.WithError(err).Error("Failed to create user")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User created successfully")

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`

	return r.scanOne(ctx, query, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`

	return r.scanOne(ctx, query, username)
}

// UpdatePassword replaces the stored hash for username.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, hashedPassword string) error {
	query := `
		UPDATE users
		SET password_hash = $1
		WHERE username = $2
	`

	result, err := r.db.ExecContext(ctx, query, hashedPassword, username)
	if err != nil {
		logrus.WithError(err).Error("Failed to update password")
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	logrus.WithField("username", username).Info("Password updated successfully")
	return nil
}

func (r *UserRepository) scanOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	user := &User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
