package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/dbx"
	"github.com/stapos/stapos/internal/server/models"
)

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	StampLastLogin(ctx context.Context, id string, at time.Time) error
}

type PostgresUserRepository struct {
	db dbx.DBTX
}

func NewPostgresUserRepository(db dbx.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	q := `INSERT INTO users (id, email, password_hash, created_at)
	      VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, user.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT id, email, password_hash, created_at, last_login FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, q, email))
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	q := `SELECT id, email, password_hash, created_at, last_login FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *models.User) error {
	q := `UPDATE users SET email = $2, password_hash = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	q := `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
