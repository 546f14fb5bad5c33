package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Biasolis/sso/internal/metrics"
	authmw "github.com/Biasolis/sso/internal/middleware/auth"
	loggingmw "github.com/Biasolis/sso/internal/middleware/logging"
	"github.com/Biasolis/sso/internal/middleware/ratelimit"
	"github.com/Biasolis/sso/pkg/db"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	OAuthHandler *OAuthHTTP
	Session      *authmw.SessionAuth
	LoginLimiter *ratelimit.Limiter
	Metrics      *metrics.Metrics
	DB           *gorm.DB
	Logger       *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger))
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware)
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "error", "database": "disconnected"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "connected"})
	})

	authGroup := e.Group("/auth")
	throttled := []echo.MiddlewareFunc{}
	if d.LoginLimiter != nil {
		throttled = append(throttled, d.LoginLimiter.Middleware)
	}
	authGroup.POST("/login", d.AuthHandler.Login, throttled...)
	authGroup.POST("/signup", d.AuthHandler.Signup, throttled...)
	authGroup.GET("/me", d.AuthHandler.Me, d.Session.RequireSession)
	authGroup.POST("/logout", d.AuthHandler.LogOut, d.Session.RequireSession)

	oauth := e.Group("/oauth")
	oauth.GET("/authorize", d.OAuthHandler.Authorize)
	oauth.POST("/approve", d.OAuthHandler.Approve)
	oauth.POST("/token", d.OAuthHandler.Token)
	oauth.GET("/userinfo", d.OAuthHandler.UserInfo)
}
