package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/models"
)

const userKey = "user"

type Authorizer interface {
	Authorize(ctx context.Context, bearer string) (*models.User, error)
}

// UserFromContext returns the principal stored by RequireLogin, or nil.
func UserFromContext(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func setUser(c echo.Context, u *models.User) {
	c.Set(userKey, u)
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
