package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/loop-hq/loop-api/app/apperror"
	"github.com/loop-hq/loop-api/app/entity"
	"github.com/loop-hq/loop-api/app/repository"
	"github.com/loop-hq/loop-api/app/types"
	"github.com/loop-hq/loop-api/config"
)

// Principal is the authenticated identity attached to a request once its
// access token has been validated.
type Principal struct {
	UserID uint64
	Email  string
}

type Claims struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (string, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error)
	IsEmailRegistered(ctx context.Context, email string) (bool, error)
	VerifyEmail(ctx context.Context, token string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*types.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(tokenString string) (*Principal, error)
}

type authService struct {
	db               *sql.DB
	userRepo         *repository.UserRepository
	verificationRepo *repository.VerificationTokenRepository
	refreshTokenRepo *repository.RefreshTokenRepository
	mailer           Mailer
	cfg              *config.Config
}

func NewAuthService(
	db *sql.DB,
	userRepo *repository.UserRepository,
	verificationRepo *repository.VerificationTokenRepository,
	refreshTokenRepo *repository.RefreshTokenRepository,
	mailer Mailer,
	cfg *config.Config,
) AuthService {
	return &authService{
		db:               db,
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		refreshTokenRepo: refreshTokenRepo,
		mailer:           mailer,
		cfg:              cfg,
	}
}

func (s *authService) Register(ctx context.Context, req *types.RegisterRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", apperror.Newf(apperror.Conflict, "User with email '%s' already exists.", req.Email)
	}

	existing, err = s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", apperror.Newf(apperror.Conflict, "User with username '%s' already exists.", req.Username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	now := time.Now()
	user := &entity.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		IsAdmin:      false,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	verificationToken := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	txUserRepo := repository.NewUserRepository(tx)
	if err = txUserRepo.Create(ctx, user); err != nil {
		return "", err
	}

	txVerificationRepo := repository.NewVerificationTokenRepository(tx)
	if err = txVerificationRepo.Create(ctx, &entity.VerificationToken{
		UserID:    user.ID,
		Token:     verificationToken,
		ExpiresAt: now.Add(s.cfg.VerificationTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}

	if err = s.mailer.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		return "", fmt.Errorf("failed to send verification email: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return "User registered successfully", nil
}

func (s *authService) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	// unknown email and wrong password collapse into one outcome so the
	// response never reveals which check failed
	if user == nil {
		return nil, apperror.New(apperror.InvalidCredentials, "Invalid email or password")
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.New(apperror.InvalidCredentials, "Invalid email or password")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, s.refreshTokenRepo, user)
	if err != nil {
		return nil, err
	}

	return &types.LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		Email:        user.Email,
	}, nil
}

func (s *authService) IsEmailRegistered(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// VerifyEmail consumes a verification token: the expiry check, the verified
// flag update and the token delete run in one transaction so two concurrent
// attempts with the same token cannot both succeed.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txVerificationRepo := repository.NewVerificationTokenRepository(tx)
	vt, err := txVerificationRepo.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if vt == nil {
		return apperror.New(apperror.InvalidToken, "Invalid token")
	}

	if vt.ExpiresAt.Before(time.Now()) {
		return apperror.New(apperror.InvalidToken, "Verification token has expired")
	}

	txUserRepo := repository.NewUserRepository(tx)
	user, err := txUserRepo.FindByID(ctx, vt.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.New(apperror.InvalidToken, "Invalid token")
	}

	user.IsVerified = true
	if err = txUserRepo.Update(ctx, user); err != nil {
		return err
	}

	rowsDeleted, err := txVerificationRepo.DeleteByToken(ctx, token)
	if err != nil {
		return err
	}
	if rowsDeleted == 0 {
		return apperror.New(apperror.InvalidToken, "Invalid token")
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	logrus.WithField("user_id", user.ID).Info("User verified")
	return nil
}

// RefreshAccessToken rotates the refresh token: the presented token is
// deleted and a new pair is issued inside one transaction.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*types.LoginResponse, error) {
	if refreshToken == "" {
		return nil, apperror.New(apperror.InvalidToken, "Refresh token is missing")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txRefreshRepo := repository.NewRefreshTokenRepository(tx)

	token, err := txRefreshRepo.FindByTokenForUpdate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, apperror.New(apperror.InvalidToken, "Invalid refresh token")
	}

	if token.ExpiresAt.Before(time.Now()) {
		return nil, apperror.New(apperror.InvalidToken, "Refresh token has expired")
	}

	txUserRepo := repository.NewUserRepository(tx)
	user, err := txUserRepo.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.New(apperror.InvalidToken, "Invalid refresh token")
	}

	rowsDeleted, err := txRefreshRepo.DeleteByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if rowsDeleted == 0 {
		return nil, apperror.New(apperror.InvalidToken, "Invalid refresh token")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := s.generateRefreshToken(ctx, txRefreshRepo, user)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &types.LoginResponse{
		Token:        accessToken,
		RefreshToken: newRefreshToken,
		Email:        user.Email,
	}, nil
}

// Logout fails fast on a missing token before touching the store.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperror.New(apperror.InvalidToken, "Refresh token is missing or malformed")
	}

	rowsDeleted, err := s.refreshTokenRepo.DeleteByToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if rowsDeleted == 0 {
		return apperror.New(apperror.InvalidToken, "Invalid refresh token")
	}

	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, apperror.New(apperror.InvalidToken, "Invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperror.New(apperror.InvalidToken, "Invalid or expired token")
	}

	return &Principal{UserID: claims.UserID, Email: claims.Email}, nil
}

func (s *authService) generateAccessToken(user *entity.User) (string, error) {
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.JWTAccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *authService) generateRefreshToken(ctx context.Context, repo *repository.RefreshTokenRepository, user *entity.User) (string, error) {
	tokenString := uuid.New().String()
	now := time.Now()

	refreshToken := &entity.RefreshToken{
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}

	if err := repo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}
