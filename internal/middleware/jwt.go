package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "fmt"                   // formatting for context values
    "strings"               // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// adminCookieName is the HttpOnly cookie carrying the admin session token.
// The admin page authenticates with this cookie; API clients may use a
// Bearer header instead.
const adminCookieName = "admin_token"

// SessionAuth returns an Echo middleware that resolves the caller's admin
// session, if any. Unlike a hard auth gate it never rejects a request: the
// public board is readable and writable (as the "user" actor) without any
// credentials. When a valid token is found the middleware stores "role"
// and "admin_id" in the request context for downstream checks.
func SessionAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearerOrCookie(c)
            if raw == "" {
                return next(c)
            }

            // Parse the token using the HS256 signing method and our
            // secret. A token signed with any other method is rejected.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                // Invalid or expired session: fall through as anonymous
                // rather than failing the request.
                return next(c)
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return next(c)
            }

            if role, ok := claims["role"].(string); ok {
                c.Set("role", role)
            }
            if sub, ok := claims["sub"]; ok {
                c.Set("admin_id", fmt.Sprint(sub))
            }
            return next(c)
        }
    }
}

// bearerOrCookie extracts the raw session token from the Authorization
// header, falling back to the admin_token cookie.
func bearerOrCookie(c echo.Context) string {
    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimPrefix(auth, "Bearer ")
    }
    if ck, err := c.Cookie(adminCookieName); err == nil && ck.Value != "" {
        return ck.Value
    }
    return ""
}
