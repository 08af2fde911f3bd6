package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireAdmin aborts the request with 403 Forbidden unless a previous
// SessionAuth middleware resolved an admin session. It guards the
// destructive board operations (reset) and the admin session endpoints.
func RequireAdmin() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || role != "admin" {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

// IsAdmin reports whether the current request carries an admin session.
// Handlers use it when admin status changes behavior instead of gating it.
func IsAdmin(c echo.Context) bool {
    role, ok := c.Get("role").(string)
    return ok && role == "admin"
}
