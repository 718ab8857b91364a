package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-api/internal/models"
)

// UserRepository handles persistence of users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, name, email, password_hash, registration_number, role, active, created_at
        FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmailAndRole returns a user by email constrained to a role.
func (r *UserRepository) FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	const query = `SELECT id, name, email, password_hash, registration_number, role, active, created_at
        FROM users WHERE email = $1 AND role = $2`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email, role); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail reports whether any user holds the email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users (id, name, email, password_hash, registration_number, role, active, created_at)
        VALUES (:id, :name, :email, :password_hash, :registration_number, :role, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, email, name string, registrationNumber *string) (*models.User, error) {
	const query = `UPDATE users SET name = COALESCE(NULLIF($2, ''), name),
        registration_number = COALESCE($3, registration_number)
        WHERE email = $1
        RETURNING id, name, email, password_hash, registration_number, role, active, created_at`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email, name, registrationNumber); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE email = $1`
	if _, err := r.db.ExecContext(ctx, query, email, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
