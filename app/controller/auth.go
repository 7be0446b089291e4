package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/loop-hq/loop-api/app/apperror"
	"github.com/loop-hq/loop-api/app/dto"
	"github.com/loop-hq/loop-api/app/service"
	"github.com/loop-hq/loop-api/app/types"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) CheckEmail(ctx echo.Context) error {
	email := ctx.QueryParam("email")
	if strings.TrimSpace(email) == "" {
		return respondError(ctx, apperror.New(apperror.Validation, "Email must not be empty"))
	}

	registered, err := c.authService.IsEmailRegistered(ctx.Request().Context(), email)
	if err != nil {
		return respondError(ctx, err)
	}

	if registered {
		return ctx.JSON(http.StatusConflict, dto.Error(http.StatusConflict,
			"This email is already registered. Would you like to login instead?"))
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "Email is available", nil))
}

func (c *AuthController) Signup(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind signup request")
		return respondError(ctx, apperror.New(apperror.Validation, "Invalid request body"))
	}

	logrus.WithField("email", req.Email).Info("Signup request received")
	result, err := c.authService.Register(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, dto.Success(http.StatusCreated, "User registered", result))
}

func (c *AuthController) VerifyEmail(ctx echo.Context) error {
	token := ctx.QueryParam("token")

	logrus.Info("Verify email request received")
	if err := c.authService.VerifyEmail(ctx.Request().Context(), token); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, dto.Success(http.StatusCreated, "User verified", nil))
}

func (c *AuthController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return respondError(ctx, apperror.New(apperror.Validation, "Invalid request body"))
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	result, err := c.authService.Login(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "Login successful", result))
}

func (c *AuthController) RefreshToken(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh token request")
		return respondError(ctx, apperror.New(apperror.InvalidToken, "Refresh token is missing"))
	}

	logrus.Info("Refresh token request received")
	result, err := c.authService.RefreshAccessToken(ctx.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "Token refreshed", result))
}

// Logout invalidates the refresh token presented as a bearer credential.
// A malformed header fails before any store access.
func (c *AuthController) Logout(ctx echo.Context) error {
	authHeader := ctx.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return respondError(ctx, apperror.New(apperror.InvalidToken, "Refresh token is missing or malformed"))
	}
	refreshToken := strings.TrimPrefix(authHeader, "Bearer ")

	logrus.Info("Logout request received")
	if err := c.authService.Logout(ctx.Request().Context(), refreshToken); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "Logged out successfully", "Refresh token invalidated"))
}
