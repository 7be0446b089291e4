package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/loop-hq/loop-api/app/entity"
)

type VerificationTokenRepository struct {
	db DBTX
}

func NewVerificationTokenRepository(db DBTX) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

func (r *VerificationTokenRepository) Create(ctx context.Context, token *entity.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	token.ID = uint64(id)
	return nil
}

func (r *VerificationTokenRepository) FindByToken(ctx context.Context, token string) (*entity.VerificationToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, created_at
		FROM verification_tokens WHERE token = ?
	`
	vt := &entity.VerificationToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&vt.ID,
		&vt.UserID,
		&vt.Token,
		&vt.ExpiresAt,
		&vt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vt, nil
}

// DeleteByToken reports the number of rows removed so callers can detect a
// token consumed by a concurrent request.
func (r *VerificationTokenRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	query := `DELETE FROM verification_tokens WHERE token = ?`
	result, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *VerificationTokenRepository) DeleteByUserID(ctx context.Context, userID uint64) error {
	query := `DELETE FROM verification_tokens WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *VerificationTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM verification_tokens WHERE expires_at < ?`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
