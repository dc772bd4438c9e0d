package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/messagely/internal/handler"
	"github.com/iliyamo/messagely/internal/middleware"
)

// RegisterRoutes registers the unauthenticated probes.  db may be nil, in
// which case /readyz is not mounted.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth mounts login and registration at the root and under /auth,
// and the protected /me profile endpoint.  extra runs before the auth
// handlers (rate limiting).
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.TokenVerifier, extra ...echo.MiddlewareFunc) {
	e.POST("/login", a.Login, extra...)
	e.POST("/register", a.Register, extra...)

	g := e.Group("/auth", extra...)
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)

	e.GET("/me", a.Me, append([]echo.MiddlewareFunc{middleware.JWTAuth(tokens)}, extra...)...)
}

// RegisterMessages mounts the message endpoints behind JWTAuth.  extra runs
// after authentication so it can key on the username.
func RegisterMessages(e *echo.Echo, h *handler.MessageHandler, tokens middleware.TokenVerifier, extra ...echo.MiddlewareFunc) {
	g := e.Group("/messages", middleware.JWTAuth(tokens))
	g.Use(extra...)
	g.GET("/:id", h.GetMessage)
	g.POST("", h.CreateMessage)
	g.POST("/:id/read", h.MarkRead)
}
