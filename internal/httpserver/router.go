package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	authmw "github.com/NeuraClarityTech/ChiefAIInsights-API/internal/middleware/auth"
	loggingmw "github.com/NeuraClarityTech/ChiefAIInsights-API/internal/middleware/logging"
)

type Options struct {
	Logger      *slog.Logger
	Validator   echo.Validator
	CORSOrigins []string
	BodyLimit   string
}

// New builds the echo instance with the error handler and middleware stack every route shares.
func New(o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = o.Validator

	if o.BodyLimit == "" {
		o.BodyLimit = "1M"
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     o.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(o.BodyLimit))
	return e
}

type Deps struct {
	AuthHandler   *AuthHTTP
	AdminHandler  *AdminHTTP
	IntakeHandler *IntakeHTTP
	HealthHandler *HealthHTTP
	Authorizer    authmw.Authorizer
	// LoginRatePerMinute limits login attempts per client IP; 0 disables the limit.
	LoginRatePerMinute int
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", d.HealthHandler.Root)
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)

	api := e.Group("/api")
	api.GET("/health", d.HealthHandler.Health)
	api.GET("/test", d.HealthHandler.Test)

	requireLogin := authmw.RequireLogin(d.Authorizer)

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	if d.LoginRatePerMinute > 0 {
		auth.POST("/login", d.AuthHandler.Login, loginLimiter(d.LoginRatePerMinute))
	} else {
		auth.POST("/login", d.AuthHandler.Login)
	}
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, requireLogin)
	auth.GET("/verify-token", d.AuthHandler.VerifyToken, requireLogin)

	if d.IntakeHandler != nil {
		api.POST("/contact", d.IntakeHandler.Contact)
		api.POST("/join-beta", d.IntakeHandler.JoinBeta)
	}

	admin := api.Group("/admin", requireLogin, authmw.AdminOnly)
	admin.PATCH("/users/:id/active", d.AdminHandler.SetActive)
	admin.PATCH("/users/:id/role", d.AdminHandler.SetRole)
	admin.GET("/submissions", d.AdminHandler.Submissions)
}

func loginLimiter(perMinute int) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts, try again later").SetInternal(err)
		},
	})
}
