package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/entity"
)

const userColumns = `id, email, password_hash, first_name, last_name, verified, active, role, created_at, updated_at`

type userRepository struct {
	q Querier
}

func NewUserRepository(q Querier) UserRepository {
	return &userRepository{q: q}
}

func scanUser(row interface{ Scan(...any) error }) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Verified, &user.Active, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, err
}

// GetUserByEmail relies on the case-insensitive collation of users.email.
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(r.q.QueryRowContext(ctx, query, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, err
}

func (r *userRepository) GetUserByEmailForUpdate(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? FOR UPDATE`
	user, err := scanUser(r.q.QueryRowContext(ctx, query, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lock user by email: %w", err)
	}
	return user, err
}

func (r *userRepository) CreateUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `INSERT INTO users (email, password_hash, first_name, last_name, verified, active, role) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, query, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Verified, user.Active, user.Role)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	user.ID = id
	return user, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *entity.User) error {
	query := `UPDATE users SET password_hash = ?, first_name = ?, last_name = ?, verified = ?, active = ?, role = ? WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query, user.PasswordHash, user.FirstName, user.LastName, user.Verified, user.Active, user.Role, user.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
