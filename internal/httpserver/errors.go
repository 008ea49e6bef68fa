package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/service"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/service/search"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/transport"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/validation"
)

const internalError = "Internal server error"

type errorMapping struct {
	target error
	status int
	detail string
}

var errorTable = []errorMapping{
	{service.ErrValidation, http.StatusBadRequest, ""},
	{intake.ErrInvalidForm, http.StatusBadRequest, ""},
	{service.ErrDuplicateEmail, http.StatusBadRequest, "Email already registered"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Incorrect email or password"},
	{service.ErrAccountInactive, http.StatusForbidden, "Account is inactive"},
	{service.ErrInvalidOrExpiredToken, http.StatusUnauthorized, "Invalid or expired refresh token"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "Could not validate credentials"},
	{service.ErrForbidden, http.StatusForbidden, "Not enough permissions"},
	{service.ErrNotFound, http.StatusNotFound, "User not found"},
	{search.ErrBackend, http.StatusBadGateway, "Search backend unavailable"},
}

// httpError builds the client-facing error; unknown errors are 500 and never leak their cause.
func httpError(err error) *echo.HTTPError {
	for _, m := range errorTable {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.detail != "" {
			return echo.NewHTTPError(m.status, m.detail).SetInternal(err)
		}
		return echo.NewHTTPError(m.status, validationDetail(err)).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, internalError).SetInternal(err)
}

// fail logs err at a level matching its status and returns the HTTP error for it.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	he := httpError(err)
	switch {
	case he.Code >= 500:
		l.Error(event, "status", he.Code, "error", err)
	default:
		l.Warn(event, "status", he.Code, "error", err)
	}
	if he.Code == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return he
}

type fieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func validationDetail(err error) any {
	var fe validation.FieldErrors
	if !errors.As(err, &fe) {
		return err.Error()
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	issues := make([]fieldIssue, 0, len(fields))
	for _, f := range fields {
		issues = append(issues, fieldIssue{Loc: []string{"body", f}, Msg: fe[f], Type: "value_error"})
	}
	return issues
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationDetail(err)).SetInternal(err)
	}
	return nil
}

// ErrorHandler renders every error as {"detail": ...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = httpError(err)
	}

	detail := he.Message
	if e, ok := detail.(error); ok {
		detail = e.Error()
	}
	if he.Code >= 500 && he.Code != http.StatusBadGateway && he.Code != http.StatusServiceUnavailable {
		detail = internalError
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, transport.ErrorResponse{Detail: detail})
}
