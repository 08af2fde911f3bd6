package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/config"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/repository"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/utils"
)

// In-memory stand-ins for the MySQL repositories, so the account-backed
// session flows run in tests without a database.

type fakeAdmins struct{ byID map[uint64]repository.Admin }

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (repository.Admin, error) {
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return repository.Admin{}, sql.ErrNoRows
}

func (f *fakeAdmins) GetByID(_ context.Context, id uint64) (repository.Admin, error) {
	a, ok := f.byID[id]
	if !ok {
		return repository.Admin{}, sql.ErrNoRows
	}
	return a, nil
}

type storedToken struct {
	adminID uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct{ rows map[string]*storedToken }

func (f *fakeTokens) StoreRefresh(_ context.Context, adminID uint64, tokenHash string, exp time.Time) error {
	f.rows[tokenHash] = &storedToken{adminID: adminID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	row, ok := f.rows[tokenHash]
	if !ok || row.revoked || time.Now().After(row.exp) {
		return 0, sql.ErrNoRows
	}
	return row.adminID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	if row, ok := f.rows[tokenHash]; ok {
		row.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForAdmin(_ context.Context, adminID uint64) error {
	for _, row := range f.rows {
		if row.adminID == adminID {
			row.revoked = true
		}
	}
	return nil
}

func (f *fakeTokens) activeCountFor(adminID uint64) int {
	n := 0
	for _, row := range f.rows {
		if row.adminID == adminID && !row.revoked {
			n++
		}
	}
	return n
}

func newAccountAuth(t *testing.T) (*AuthHandler, *fakeAdmins, *fakeTokens) {
	t.Helper()
	hash, err := utils.HashPassword("lunchtime", 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	admins := &fakeAdmins{byID: map[uint64]repository.Admin{
		7: {ID: 7, Email: "ops@school.example", PasswordHash: hash, IsActive: true},
	}}
	tokens := &fakeTokens{rows: map[string]*storedToken{}}
	cfg := config.Config{
		Env:            "test",
		JWTSecret:      testSecret,
		AccessTTLMin:   60,
		RefreshTTLDays: 7,
	}
	return &AuthHandler{Cfg: cfg, Admins: admins, Tokens: tokens}, admins, tokens
}

func callAuth(t *testing.T, fn echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func seedToken(tokens *fakeTokens, adminID uint64, raw string) {
	tokens.rows[utils.HashRefreshRaw(raw)] = &storedToken{
		adminID: adminID,
		exp:     time.Now().Add(time.Hour),
	}
}

func TestLoginWithAccountStore(t *testing.T) {
	a, _, tokens := newAccountAuth(t)

	rec := callAuth(t, a.Login, `{"email":"ops@school.example","password":"lunchtime"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Access.Token == "" {
		t.Error("no access token issued")
	}
	if body.Refresh == nil || body.Refresh.Token == "" {
		t.Fatal("account-backed login must issue a refresh token")
	}
	if got := tokens.activeCountFor(7); got != 1 {
		t.Errorf("stored refresh tokens = %d, want 1", got)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	a, _, tokens := newAccountAuth(t)
	seedToken(tokens, 7, "raw-refresh-1")

	rec := callAuth(t, a.Refresh, `{"refresh_token":"raw-refresh-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if row := tokens.rows[utils.HashRefreshRaw("raw-refresh-1")]; !row.revoked {
		t.Error("used refresh token was not revoked")
	}
	if got := tokens.activeCountFor(7); got != 1 {
		t.Errorf("active tokens after rotation = %d, want exactly the new one", got)
	}
}

func TestRefreshRejectsDeactivatedAdmin(t *testing.T) {
	a, admins, tokens := newAccountAuth(t)
	acct := admins.byID[7]
	acct.IsActive = false
	admins.byID[7] = acct
	seedToken(tokens, 7, "raw-refresh-1")
	seedToken(tokens, 7, "raw-refresh-2")

	rec := callAuth(t, a.Refresh, `{"refresh_token":"raw-refresh-1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for a deactivated account", rec.Code)
	}
	if got := tokens.activeCountFor(7); got != 0 {
		t.Errorf("active tokens = %d, want all revoked once the account is inactive", got)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	a, _, tokens := newAccountAuth(t)
	seedToken(tokens, 7, "raw-refresh-1")
	seedToken(tokens, 7, "raw-refresh-2")
	seedToken(tokens, 8, "other-admins-token")

	rec := callAuth(t, a.Logout, `{"refresh_token":"raw-refresh-1","all":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := tokens.activeCountFor(7); got != 0 {
		t.Errorf("active tokens for admin 7 = %d, want 0", got)
	}
	if got := tokens.activeCountFor(8); got != 1 {
		t.Errorf("active tokens for admin 8 = %d, want 1 untouched", got)
	}
}

func TestLogoutSingleSessionOnly(t *testing.T) {
	a, _, tokens := newAccountAuth(t)
	seedToken(tokens, 7, "raw-refresh-1")
	seedToken(tokens, 7, "raw-refresh-2")

	rec := callAuth(t, a.Logout, `{"refresh_token":"raw-refresh-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := tokens.activeCountFor(7); got != 1 {
		t.Errorf("active tokens = %d, want only the presented one revoked", got)
	}
}
