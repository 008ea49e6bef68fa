package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
)

type HealthHTTP struct {
	// Ping checks the database; nil means always ready.
	Ping    func(ctx context.Context) error
	Version string
}

func (h *HealthHTTP) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "ChiefAI Insights API",
		"version": h.Version,
	})
}

func (h *HealthHTTP) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *HealthHTTP) Test(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Legacy API routes operational"})
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *HealthHTTP) Ready(c echo.Context) error {
	if h.Ping == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "status", 503, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
