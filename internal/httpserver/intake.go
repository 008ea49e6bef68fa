package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/transport"
)

type IntakeHTTP struct {
	Svc *intake.Service
}

func (h *IntakeHTTP) Contact(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "intake_contact")

	var req intake.ContactForm
	if err := c.Bind(&req); err != nil {
		l.Warn("contact_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	sub, err := h.Svc.SubmitContact(ctx, req)
	if err != nil {
		return fail(c, l, "contact_failed", err)
	}

	l.Info("contact_accepted", "status", 202, "submission_id", sub.ID)
	return c.JSON(http.StatusAccepted, transport.MessageResponse{Message: "Thanks for reaching out! We'll get back to you soon.", Success: true})
}

func (h *IntakeHTTP) JoinBeta(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "intake_join_beta")

	var req intake.JoinBetaForm
	if err := c.Bind(&req); err != nil {
		l.Warn("join_beta_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	sub, err := h.Svc.SubmitJoinBeta(ctx, req)
	if err != nil {
		return fail(c, l, "join_beta_failed", err)
	}

	l.Info("join_beta_accepted", "status", 202, "submission_id", sub.ID)
	return c.JSON(http.StatusAccepted, transport.MessageResponse{Message: "Thanks for joining the beta! Check your inbox.", Success: true})
}
