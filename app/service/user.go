package service

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/loop-hq/loop-api/app/apperror"
	"github.com/loop-hq/loop-api/app/entity"
	"github.com/loop-hq/loop-api/app/repository"
	"github.com/loop-hq/loop-api/app/types"
)

type UserService interface {
	GetUserByID(ctx context.Context, id uint64) (*types.UserResponse, error)
	UpdateUserProfile(ctx context.Context, id uint64, req *types.UpdateUserProfileRequest) (*types.UserResponse, error)
	DeleteUser(ctx context.Context, id uint64) error
}

type userService struct {
	db               *sql.DB
	userRepo         *repository.UserRepository
	verificationRepo *repository.VerificationTokenRepository
	refreshTokenRepo *repository.RefreshTokenRepository
}

func NewUserService(
	db *sql.DB,
	userRepo *repository.UserRepository,
	verificationRepo *repository.VerificationTokenRepository,
	refreshTokenRepo *repository.RefreshTokenRepository,
) UserService {
	return &userService{
		db:               db,
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

func (s *userService) GetUserByID(ctx context.Context, id uint64) (*types.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Newf(apperror.NotFound, "User not found with id: %d", id)
	}

	return profileView(user), nil
}

func (s *userService) UpdateUserProfile(ctx context.Context, id uint64, req *types.UpdateUserProfileRequest) (*types.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Newf(apperror.NotFound, "User not found with id: %d", id)
	}

	if err = req.Validate(); err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		other, err := s.userRepo.FindByEmail(ctx, *req.Email)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, apperror.Newf(apperror.Conflict, "User with email '%s' already exists.", *req.Email)
		}
		user.Email = *req.Email
	}

	if req.Username != nil && *req.Username != user.Username {
		other, err := s.userRepo.FindByUsername(ctx, *req.Username)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, apperror.Newf(apperror.Conflict, "User with username '%s' already exists.", *req.Username)
		}
		user.Username = *req.Username
	}

	if req.Mobile != nil && (!user.Mobile.Valid || *req.Mobile != user.Mobile.String) {
		other, err := s.userRepo.FindByMobile(ctx, *req.Mobile)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, apperror.Newf(apperror.Conflict, "User with mobile '%s' already exists.", *req.Mobile)
		}
		user.Mobile = sql.NullString{String: *req.Mobile, Valid: true}
	}

	if req.ProfileURL != nil {
		user.ProfileURL = sql.NullString{String: *req.ProfileURL, Valid: true}
	}

	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithField("user_id", user.ID).Info("User profile updated")
	return profileView(user), nil
}

// DeleteUser removes the user together with its verification and refresh
// tokens in one transaction; cascading is explicit rather than left to the
// storage layer.
func (s *userService) DeleteUser(ctx context.Context, id uint64) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.Newf(apperror.NotFound, "User not found with id: %d", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = repository.NewVerificationTokenRepository(tx).DeleteByUserID(ctx, id); err != nil {
		return err
	}
	if err = repository.NewRefreshTokenRepository(tx).DeleteByUserID(ctx, id); err != nil {
		return err
	}
	if _, err = repository.NewUserRepository(tx).Delete(ctx, id); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	logrus.WithField("user_id", id).Info("User deleted")
	return nil
}

func profileView(user *entity.User) *types.UserResponse {
	view := &types.UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Admin:    user.IsAdmin,
	}
	if user.Mobile.Valid {
		view.Mobile = &user.Mobile.String
	}
	if user.ProfileURL.Valid {
		view.ProfileURL = &user.ProfileURL.String
	}
	return view
}
