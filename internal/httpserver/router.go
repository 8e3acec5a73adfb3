package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/fawrybook/auth-service/internal/middleware"
)

type Deps struct {
	AuthHandler   *AuthHTTP
	Gate          *middleware.AuthGate
	AllowedOrigin string
	Logger        *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.Pre(ecM.RemoveTrailingSlash())
	e.Use(ecM.Recover(), ecM.RequestID())
	if d.Logger != nil {
		e.Use(middleware.RequestLogger(d.Logger))
	}
	e.Use(ecM.CORSWithConfig(ecM.CORSConfig{
		AllowOrigins:     []string{d.AllowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderAccept},
		ExposeHeaders:    []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/api/v1/auth")

	// Fixed allowlist: these routes never pass through the gate.
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.LogOut)

	private := auth.Group("")
	private.Use(d.Gate.RequireAuth)

	private.POST("/check-token", d.AuthHandler.CheckToken)
	private.POST("/check-user", d.AuthHandler.CheckUser)
}
