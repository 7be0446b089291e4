package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/loop-hq/loop-api/app/apperror"
	"github.com/loop-hq/loop-api/app/dto"
)

// kindStatus is the single place error kinds become HTTP status codes.
var kindStatus = map[apperror.Kind]int{
	apperror.Validation:         http.StatusBadRequest,
	apperror.Conflict:           http.StatusConflict,
	apperror.NotFound:           http.StatusNotFound,
	apperror.InvalidCredentials: http.StatusUnauthorized,
	apperror.InvalidToken:       http.StatusUnauthorized,
	apperror.Unexpected:         http.StatusInternalServerError,
}

const unexpectedMessage = "An unexpected error occurred"

func respondError(ctx echo.Context, err error) error {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		logrus.WithError(err).Error("Unexpected error")
		return ctx.JSON(http.StatusInternalServerError,
			dto.Error(http.StatusInternalServerError, unexpectedMessage))
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if appErr.Kind == apperror.Unexpected {
		// internals are logged, never echoed to the client
		logrus.WithError(err).Error("Unexpected error")
		return ctx.JSON(status, dto.Error(status, unexpectedMessage))
	}

	if appErr.Fields != nil {
		return ctx.JSON(status, dto.ErrorWithData(status, appErr.Message, appErr.Fields))
	}

	return ctx.JSON(status, dto.Error(status, appErr.Message))
}
