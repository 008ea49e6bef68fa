package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
)

// AdminOnly must run after RequireLogin.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := UserFromContext(c)
		if user == nil {
			return unauthorized(c, "Not authenticated")
		}
		if !user.IsAdmin() {
			logging.FromContext(c.Request().Context()).Warn("admin_required", "status", 403, "user_id", user.ID)
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}
		return next(c)
	}
}
