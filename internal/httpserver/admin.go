package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/service"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/transport"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/util"
)

type SubmissionSearcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []intake.Submission, error)
}

type AdminHTTP struct {
	Svc *service.AuthService
	// Search is nil when no search backend is configured.
	Search SubmissionSearcher
}

func (h *AdminHTTP) SetActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_set_active")

	id, err := userID(c)
	if err != nil {
		l.Warn("set_active_error", "status", 400, "error", err)
		return err
	}
	var req transport.SetActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("set_active_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.SetUserActive(ctx, id, *req.IsActive)
	if err != nil {
		return fail(c, l, "set_active_failed", err)
	}

	l.Info("set_active_success", "target_id", id, "is_active", *req.IsActive)
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *AdminHTTP) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_set_role")

	id, err := userID(c)
	if err != nil {
		l.Warn("set_role_error", "status", 400, "error", err)
		return err
	}
	var req transport.SetRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("set_role_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.SetUserRole(ctx, id, req.Role)
	if err != nil {
		return fail(c, l, "set_role_failed", err)
	}

	l.Info("set_role_success", "target_id", id, "role", req.Role)
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *AdminHTTP) Submissions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_submissions")

	if h.Search == nil {
		l.Warn("submissions_error", "status", 503, "reason", "search not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search is not configured")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Search.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(c, l, "submissions_failed", err)
	}

	l.Info("submissions_success", "total", total)
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, limit, offset, total),
	})
}

func userID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid").SetInternal(err)
	}
	return id.String(), nil
}
