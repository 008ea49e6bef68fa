package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/service"
)

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

// RequireLogin resolves the bearer access token to an active user and stores it on the context.
func RequireLogin(authz Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "require_login")

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
				return unauthorized(c, "Not authenticated")
			}

			user, err := authz.Authorize(ctx, token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrForbidden):
					l.Warn("auth_failed", "status", 403, "reason", "inactive user")
					return echo.NewHTTPError(http.StatusForbidden, "Inactive user")
				case errors.Is(err, service.ErrUnauthorized):
					l.Warn("auth_failed", "status", 401, "reason", "invalid token")
					return unauthorized(c, "Could not validate credentials")
				default:
					l.Error("auth_failed", "status", 500, "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
				}
			}

			setUser(c, user)
			l = l.With("user_id", user.ID)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))
			return next(c)
		}
	}
}
