package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/config"
	mw "github.com/iliyamo/cafeteria-dispatch-board/internal/middleware"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/utils"
)

const testSecret = "test-secret"

func newStorelessAuth(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := utils.HashPassword("lunchtime", 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := config.Config{
		Env:           "test",
		JWTSecret:     testSecret,
		AccessTTLMin:  60,
		DBDisabled:    true,
		AdminPassHash: hash,
	}
	return NewAuthHandler(cfg, nil, nil)
}

func postLogin(t *testing.T, a *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := a.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("login handler error: %v", err)
	}
	return rec
}

func TestLoginStorelessSuccess(t *testing.T) {
	a := newStorelessAuth(t)

	rec := postLogin(t, a, `{"password":"lunchtime"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Access  struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Access.Token == "" {
		t.Fatalf("success=%v token=%q, want session issued", body.Success, body.Access.Token)
	}

	cookieSet := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "admin_token" && ck.Value != "" && ck.HttpOnly {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("admin_token HttpOnly cookie was not set")
	}
}

func TestLoginStorelessWrongPassword(t *testing.T) {
	a := newStorelessAuth(t)

	rec := postLogin(t, a, `{"password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// A token from login must satisfy the session middleware and unlock the
// admin actor label on the write endpoint.
func TestLoginTokenAuthorizesAdminWrite(t *testing.T) {
	a := newStorelessAuth(t)
	rec := postLogin(t, a, `{"password":"lunchtime"}`)

	var body struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	h := newTestHandler()
	e := echo.New()
	e.POST("/v1/boxes", h.UpdateBox, mw.SessionAuth(testSecret))
	srv := httptest.NewServer(e)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/boxes",
		strings.NewReader(`{"id":"1-3","status":"finished","actor":"admin"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+body.Access.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("write request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin write with session token: status = %d, want 200", resp.StatusCode)
	}
}

func TestSessionEndpoint(t *testing.T) {
	a := newStorelessAuth(t)
	e := echo.New()
	e.GET("/v1/auth/session", a.Session, mw.SessionAuth(testSecret))
	srv := httptest.NewServer(e)
	defer srv.Close()

	// Anonymous: not authenticated.
	resp, err := http.Get(srv.URL + "/v1/auth/session")
	if err != nil {
		t.Fatalf("session request: %v", err)
	}
	var out map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	resp.Body.Close()
	if out["authenticated"] {
		t.Error("anonymous caller reported authenticated")
	}

	// With a fresh token: authenticated.
	access, err := utils.NewAccessToken(testSecret, 1, 60)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("session request: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if !out["authenticated"] {
		t.Error("bearer session not recognized")
	}
}
