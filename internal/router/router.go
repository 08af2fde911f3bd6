package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/cafeteria-dispatch-board/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/cafeteria-dispatch-board/internal/middleware" // import middleware for session resolution and role enforcement
)

// RegisterRoutes registers routes that do not belong to any feature area.
// Currently it exposes only a health check, used by load balancers and
// monitoring to verify that the service is running.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBoard registers the box state endpoints. Reads and the event
// stream are public: the cafeteria board hangs on a wall and anyone may
// watch it. Writes resolve the caller's session first so the handler can
// honor (or refuse) the admin actor label, and go through the rate
// limiter; reset is hard-gated to admin sessions.
func RegisterBoard(e *echo.Echo, b *handler.BoxHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	// Full-state snapshot for page load and post-reconnect reconciliation.
	e.GET("/v1/boxes", b.GetBoxes)
	// Long-lived SSE subscription carrying box-updated / all-reset events.
	e.GET("/v1/events", b.StreamEvents)
	// Single-box status write from either the public page or the admin page.
	e.POST("/v1/boxes", b.UpdateBox, middleware.SessionAuth(jwtSecret), limiter)
	// Destructive whole-board reset, admin only.
	e.DELETE("/v1/boxes", b.ResetBoxes, middleware.SessionAuth(jwtSecret), middleware.RequireAdmin(), limiter)
}

// RegisterAuth registers the admin session endpoints under /v1/auth.
// Login, refresh and logout are unauthenticated operations that work on
// the credentials in their bodies; session resolves the current cookie or
// bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/session", a.Session, middleware.SessionAuth(jwtSecret))
}
