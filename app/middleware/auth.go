package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/loop-hq/loop-api/app/dto"
	"github.com/loop-hq/loop-api/app/service"
)

const principalContextKey = "principal"

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*service.Principal, error)
}

type AuthMiddleware struct {
	authService accessTokenValidator
}

func NewAuthMiddleware(authService accessTokenValidator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth validates the bearer access token and attaches the resulting
// principal to the request context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized,
				dto.Error(http.StatusUnauthorized, "Missing authorization header"))
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized,
				dto.Error(http.StatusUnauthorized, "Invalid authorization header format"))
		}

		principal, err := m.authService.ValidateAccessToken(parts[1])
		if err != nil {
			logrus.Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized,
				dto.Error(http.StatusUnauthorized, "Invalid or expired token"))
		}

		c.Set(principalContextKey, principal)
		return next(c)
	}
}

// PrincipalFromContext returns the authenticated principal, or nil outside
// of RequireAuth.
func PrincipalFromContext(c echo.Context) *service.Principal {
	principal, _ := c.Get(principalContextKey).(*service.Principal)
	return principal
}
