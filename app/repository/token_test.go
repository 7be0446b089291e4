package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/loop-hq/loop-api/app/entity"
	"github.com/loop-hq/loop-api/app/repository"
)

const (
	insertVerificationTokenQuery = `(?s)INSERT INTO verification_tokens \(user_id, token, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	findVerificationTokenQuery   = `(?s)SELECT id, user_id, token, expires_at, created_at\s+FROM verification_tokens WHERE token = \?`
	deleteVerificationTokenQuery = `DELETE FROM verification_tokens WHERE token = \?`
	sweepVerificationTokensQuery = `DELETE FROM verification_tokens WHERE expires_at < \?`
	insertRefreshTokenQuery      = `(?s)INSERT INTO refresh_tokens \(user_id, token, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	deleteRefreshTokenQuery      = `DELETE FROM refresh_tokens WHERE token = \?`
)

var tokenColumns = []string{
	"id",
	"user_id",
	"token",
	"expires_at",
	"created_at",
}

func TestVerificationTokenRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewVerificationTokenRepository(db)
	now := time.Now()
	token := &entity.VerificationToken{
		UserID:    1,
		Token:     "token-1",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}

	mock.ExpectExec(insertVerificationTokenQuery).
		WithArgs(token.UserID, token.Token, token.ExpiresAt, token.CreatedAt).
		WillReturnResult(sqlmock.NewResult(7, 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.ID != 7 {
		t.Fatalf("expected id 7, got %d", token.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerificationTokenRepository_FindByToken_NoRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewVerificationTokenRepository(db)

	mock.ExpectQuery(findVerificationTokenQuery).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(tokenColumns))

	token, err := repo.FindByToken(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != nil {
		t.Fatalf("expected nil token, got %+v", token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerificationTokenRepository_DeleteByToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewVerificationTokenRepository(db)

	mock.ExpectExec(deleteVerificationTokenQuery).WithArgs("token-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.DeleteByToken(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row deleted, got %d", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerificationTokenRepository_DeleteExpired(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewVerificationTokenRepository(db)
	now := time.Now()

	mock.ExpectExec(sweepVerificationTokensQuery).WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	rows, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 rows deleted, got %d", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepository_CreateAndDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewRefreshTokenRepository(db)
	now := time.Now()
	token := &entity.RefreshToken{
		UserID:    1,
		Token:     "refresh-1",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}

	mock.ExpectExec(insertRefreshTokenQuery).
		WithArgs(token.UserID, token.Token, token.ExpiresAt, token.CreatedAt).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(deleteRefreshTokenQuery).WithArgs("refresh-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := repo.DeleteByToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row deleted, got %d", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
