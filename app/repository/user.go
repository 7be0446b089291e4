package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/loop-hq/loop-api/app/entity"
)

const userSelectColumns = `id, email, username, mobile, password_hash, is_admin, is_verified, profile_url, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, username, mobile, password_hash, is_admin, is_verified, profile_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Username,
		user.Mobile,
		user.PasswordHash,
		user.IsAdmin,
		user.IsVerified,
		user.ProfileURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE email = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE username = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) FindByMobile(ctx context.Context, mobile string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE mobile = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, mobile))
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			email = ?,
			username = ?,
			mobile = ?,
			password_hash = ?,
			is_admin = ?,
			is_verified = ?,
			profile_url = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Username,
		user.Mobile,
		user.PasswordHash,
		user.IsAdmin,
		user.IsVerified,
		user.ProfileURL,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	query := `DELETE FROM users WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) scanOne(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Mobile,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.IsVerified,
		&user.ProfileURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
