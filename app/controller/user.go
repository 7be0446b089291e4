package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/loop-hq/loop-api/app/apperror"
	"github.com/loop-hq/loop-api/app/dto"
	"github.com/loop-hq/loop-api/app/middleware"
	"github.com/loop-hq/loop-api/app/service"
	"github.com/loop-hq/loop-api/app/types"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

func (c *UserController) GetUserByID(ctx echo.Context) error {
	id, ok := c.authorizedUserID(ctx)
	if !ok {
		return nil
	}

	user, err := c.userService.GetUserByID(ctx.Request().Context(), id)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "User profile fetched", user))
}

func (c *UserController) UpdateUserProfile(ctx echo.Context) error {
	id, ok := c.authorizedUserID(ctx)
	if !ok {
		return nil
	}

	req, err := types.NewUpdateUserProfileRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind profile update request")
		return respondError(ctx, apperror.New(apperror.Validation, "Invalid request body"))
	}

	logrus.WithField("user_id", id).Info("Profile update request received")
	user, err := c.userService.UpdateUserProfile(ctx.Request().Context(), id, req)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "User profile updated", user))
}

func (c *UserController) DeleteUser(ctx echo.Context) error {
	id, ok := c.authorizedUserID(ctx)
	if !ok {
		return nil
	}

	logrus.WithField("user_id", id).Info("Account deletion request received")
	if err := c.userService.DeleteUser(ctx.Request().Context(), id); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.Success(http.StatusOK, "User deleted successfully", nil))
}

// authorizedUserID parses the path id and enforces the self-only rule
// against the authenticated principal. When it reports false the response
// has already been written.
func (c *UserController) authorizedUserID(ctx echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		_ = respondError(ctx, apperror.New(apperror.Validation, "Invalid user id"))
		return 0, false
	}

	principal := middleware.PrincipalFromContext(ctx)
	if principal == nil {
		_ = ctx.JSON(http.StatusUnauthorized, dto.Error(http.StatusUnauthorized, "Unauthorized"))
		return 0, false
	}
	if principal.UserID != id {
		logrus.WithFields(logrus.Fields{
			"user_id":   principal.UserID,
			"target_id": id,
		}).Warn("Self-only access violation")
		_ = ctx.JSON(http.StatusForbidden, dto.Error(http.StatusForbidden,
			"Forbidden: You do not have permission."))
		return 0, false
	}

	return id, true
}
