package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/config"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/middleware"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/repository"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/utils"
)

// adminStore and tokenStore are what the session endpoints need from the
// MySQL repositories, kept as interfaces so tests can stand in for them.
type adminStore interface {
	GetByEmail(ctx context.Context, email string) (repository.Admin, error)
	GetByID(ctx context.Context, id uint64) (repository.Admin, error)
}

type tokenStore interface {
	StoreRefresh(ctx context.Context, adminID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForAdmin(ctx context.Context, adminID uint64) error
}

// AuthHandler bundles dependencies for the admin session endpoints. The
// stores are nil when the service runs without MySQL; login then checks
// the bootstrap password hash from config and no refresh tokens are
// issued.
type AuthHandler struct {
	Cfg    config.Config
	Admins adminStore
	Tokens tokenStore
}

func NewAuthHandler(cfg config.Config, a *repository.AdminRepo, t *repository.TokenRepo) *AuthHandler {
	h := &AuthHandler{Cfg: cfg}
	// A typed nil pointer must stay a nil interface, or the storeless
	// checks below stop firing.
	if a != nil {
		h.Admins = a
	}
	if t != nil {
		h.Tokens = t
	}
	return h
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"` // revoke every session of the owning admin
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	Success bool       `json:"success"`
	Access  tokenPart  `json:"access"`
	Refresh *tokenPart `json:"refresh,omitempty"`
}

// Login verifies admin credentials and issues a session. The access token
// is returned in the body for API clients and also set as an HttpOnly
// cookie so the admin page stays logged in across reloads.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "password required"})
	}

	if h.Admins == nil {
		// Storeless mode: single shared admin password.
		if !utils.VerifyPassword(h.Cfg.AdminPassHash, req.Password) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
		}
		access, err := utils.NewAccessToken(h.Cfg.JWTSecret, 0, h.Cfg.AccessTTLMin)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "issue access failed"})
		}
		h.setSessionCookie(c, access)
		return c.JSON(http.StatusOK, authResp{Success: true, Access: tokenPart{Token: access.Token, Expires: access.Exp}})
	}

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "query failed"})
	}
	if !a.IsActive || !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, a.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "save refresh failed"})
	}

	h.setSessionCookie(c, access)
	return c.JSON(http.StatusOK, authResp{
		Success: true,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: &tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Refresh validates a refresh token by hash, revokes it, and issues a new
// access/refresh pair. The owning account must still be active: revoking
// an admin takes effect the next time their access token needs renewing.
func (h *AuthHandler) Refresh(c echo.Context) error {
	if h.Tokens == nil || h.Admins == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "refresh disabled"})
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "refresh_token required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	adminID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid refresh"})
	}
	a, err := h.Admins.GetByID(ctx, adminID)
	if err != nil || !a.IsActive {
		_ = h.Tokens.RevokeAllForAdmin(ctx, adminID)
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, adminID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "issue access failed"})
	}
	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, adminID, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "save refresh failed"})
	}

	h.setSessionCookie(c, access)
	return c.JSON(http.StatusOK, authResp{
		Success: true,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: &tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// Session reports whether the caller holds a live admin session. The
// admin page polls this on load instead of decoding the cookie itself.
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"authenticated": middleware.IsAdmin(c)})
}

// Logout clears the session cookie and, when a refresh token is supplied,
// revokes it. With "all" set the token is used to identify its owning
// admin and every one of their sessions is revoked (the panic button for
// a leaked credential). Always succeeds from the client's perspective.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	if err := c.Bind(&req); err == nil && h.Tokens != nil {
		if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			hash := utils.HashRefreshRaw(raw)
			if req.All {
				if adminID, err := h.Tokens.ValidateRefresh(ctx, hash); err == nil {
					_ = h.Tokens.RevokeAllForAdmin(ctx, adminID)
				}
			}
			_ = h.Tokens.RevokeByHash(ctx, hash)
		}
	}
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, access utils.AccessToken) {
	c.SetCookie(&http.Cookie{
		Name:     "admin_token",
		Value:    access.Token,
		Path:     "/",
		Expires:  access.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     "admin_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
