package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/loop-hq/loop-api/app/apperror"
	"github.com/loop-hq/loop-api/app/repository"
	"github.com/loop-hq/loop-api/app/service"
	"github.com/loop-hq/loop-api/app/types"
)

const (
	findUserByMobileQuery          = `(?s)SELECT id, email, username, mobile, password_hash, is_admin, is_verified, profile_url, created_at, updated_at\s+FROM users WHERE mobile = \?`
	deleteUserQuery                = `DELETE FROM users WHERE id = \?`
	deleteVerificationByUserQuery  = `DELETE FROM verification_tokens WHERE user_id = \?`
	deleteRefreshTokensByUserQuery = `DELETE FROM refresh_tokens WHERE user_id = \?`
)

func strPtr(s string) *string { return &s }

func newUserService(t *testing.T) (service.UserService, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	svc := service.NewUserService(
		db,
		repository.NewUserRepository(db),
		repository.NewVerificationTokenRepository(db),
		repository.NewRefreshTokenRepository(db),
	)

	return svc, mock, func() { _ = db.Close() }
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := svc.GetUserByID(context.Background(), 99)
	assertErrorKind(t, err, apperror.NotFound, "User not found with id: 99")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserByID_Success(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", "+4411223344", "hash", false, true, "https://example.com/me.png", now, now))

	profile, err := svc.GetUserByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != 1 || profile.Email != "user@example.com" || profile.Username != "user_1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.Mobile == nil || *profile.Mobile != "+4411223344" {
		t.Fatalf("unexpected mobile: %v", profile.Mobile)
	}
	if profile.ProfileURL == nil || *profile.ProfileURL != "https://example.com/me.png" {
		t.Fatalf("unexpected profile url: %v", profile.ProfileURL)
	}
	if profile.Admin {
		t.Fatal("expected non-admin profile")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserByID_NullFieldsOmitted(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", nil, "hash", false, true, nil, now, now))

	profile, err := svc.GetUserByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Mobile != nil {
		t.Fatalf("expected nil mobile, got %q", *profile.Mobile)
	}
	if profile.ProfileURL != nil {
		t.Fatalf("expected nil profile url, got %q", *profile.ProfileURL)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserProfile_NotFound(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := svc.UpdateUserProfile(context.Background(), 12, &types.UpdateUserProfileRequest{})
	assertErrorKind(t, err, apperror.NotFound, "User not found with id: 12")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserProfile_AggregatesAllFieldErrors(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", nil, "hash", false, true, nil, now, now))

	_, err := svc.UpdateUserProfile(context.Background(), 1, &types.UpdateUserProfileRequest{
		Email:      strPtr("not-an-email"),
		Username:   strPtr("bad name!"),
		Mobile:     strPtr("abc"),
		ProfileURL: strPtr("not a url"),
	})
	assertErrorKind(t, err, apperror.Validation, "Validation failed")

	appErr := err.(*apperror.Error)
	expected := map[string]string{
		"email":      "Email format is invalid",
		"username":   "Username can only contain letters, numbers and underscores",
		"mobile":     "Mobile number is not valid",
		"profileUrl": "Profile URL must be a valid URL",
	}
	if len(appErr.Fields) != len(expected) {
		t.Fatalf("expected %d field errors, got %v", len(expected), appErr.Fields)
	}
	for field, message := range expected {
		if appErr.Fields[field] != message {
			t.Fatalf("field %q: expected %q, got %q", field, message, appErr.Fields[field])
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserProfile_EmailConflict(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", nil, "hash", false, true, nil, now, now))
	mock.ExpectQuery(findUserByEmailQuery).WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "taken@example.com", "other", nil, "hash", false, true, nil, now, now))

	_, err := svc.UpdateUserProfile(context.Background(), 1, &types.UpdateUserProfileRequest{
		Email: strPtr("taken@example.com"),
	})
	assertErrorKind(t, err, apperror.Conflict, "User with email 'taken@example.com' already exists.")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserProfile_PartialUpdate(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", nil, "hash", false, true, nil, now, now))
	mock.ExpectQuery(findUserByMobileQuery).WithArgs("+4411223344").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectExec(updateUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile, err := svc.UpdateUserProfile(context.Background(), 1, &types.UpdateUserProfileRequest{
		Mobile: strPtr("+4411223344"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Mobile == nil || *profile.Mobile != "+4411223344" {
		t.Fatalf("unexpected mobile: %v", profile.Mobile)
	}
	// untouched fields keep their stored values
	if profile.Email != "user@example.com" || profile.Username != "user_1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserProfile_SameEmailSkipsUniquenessCheck(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", nil, "hash", false, true, nil, now, now))
	mock.ExpectExec(updateUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.UpdateUserProfile(context.Background(), 1, &types.UpdateUserProfileRequest{
		Email: strPtr("user@example.com"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	err := svc.DeleteUser(context.Background(), 5)
	assertErrorKind(t, err, apperror.NotFound, "User not found with id: 5")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUser_RemovesTokensInSameTransaction(t *testing.T) {
	svc, mock, cleanup := newUserService(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "user@example.com", "user_1", nil, "hash", false, true, nil, now, now))
	mock.ExpectBegin()
	mock.ExpectExec(deleteVerificationByUserQuery).WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteRefreshTokensByUserQuery).WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(deleteUserQuery).WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.DeleteUser(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
