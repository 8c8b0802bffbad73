package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
)

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	require.NoError(t, err)

	token, err := m.GenerateJWT(&models.User{ID: 42, Email: "a@example.com", Roles: []string{models.RoleAppUser}})
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, []string{models.RoleAppUser}, claims.Roles)

	other, err := NewJWTManager("another-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.ParseToken(token)
	assert.Error(t, err)

	expired, err := NewJWTManager("secret", -time.Minute)
	require.NoError(t, err)
	stale, err := expired.GenerateJWT(&models.User{ID: 42})
	require.NoError(t, err)
	_, err = m.ParseToken(stale)
	assert.Error(t, err)

	_, err = NewJWTManager("", time.Hour)
	assert.Error(t, err)
}

type usersByID map[int64]*models.User

func (u usersByID) GetUser(_ context.Context, id int64) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, models.ErrNoRecord
}

func TestLoadPrincipal(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	require.NoError(t, err)
	users := usersByID{
		1: {ID: 1, Roles: []string{models.RoleAdministrator}, IsActive: true},
		2: {ID: 2, Roles: []string{models.RoleAppUser}, IsActive: false},
	}

	e := echo.New()
	var seen security.Principal
	e.Use(OptionalJWT(m), LoadPrincipal(users))
	e.GET("/who", func(c echo.Context) error {
		seen = GetPrincipal(c)
		return c.NoContent(http.StatusNoContent)
	})

	call := func(userID int64) security.Principal {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if userID != 0 {
			token, err := m.GenerateJWT(&models.User{ID: userID})
			require.NoError(t, err)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		seen = security.Principal{UserID: -1}
		e.ServeHTTP(httptest.NewRecorder(), req)
		return seen
	}

	assert.True(t, call(1).IsAdmin())
	assert.True(t, call(2).IsGuest(), "inactive accounts are guests")
	assert.True(t, call(3).IsGuest(), "unknown subjects are guests")
	assert.True(t, call(0).IsGuest())
}

func TestRequireJWT(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	require.NoError(t, err)
	e := echo.New()
	e.GET("/private", okHandler, RequireJWT(m))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := m.GenerateJWT(&models.User{ID: 9})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	e := echo.New()
	e.GET("/settings", okHandler, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.QueryParam("as") == "admin" {
				c.Set(principalKey, security.Principal{UserID: 1, Roles: []string{models.RoleAdministrator}})
			}
			return next(c)
		}
	}, RequirePermission(security.PermManageSettings))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	assert.NotEqual(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings?as=admin", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders_InlineScriptsOnlyForAppShell(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeadersWithConfig(SecurityConfig{
		AllowedDomains:       []string{"https://admin.example.com", "*"},
		InlineScriptPrefixes: []string{"/apps/"},
	}))
	e.GET("/apps/:uuid/", okHandler)
	e.GET("/api/nonce", okHandler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/abc/", nil))
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline'")
	assert.Contains(t, csp, "connect-src 'self' https://admin.example.com")
	assert.NotContains(t, csp, " *")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nonce", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self';")
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	e := echo.New()
	e.Use(limiter.RateLimit())
	e.POST("/api/auth/login", okHandler)
	e.GET("/uploads/*", okHandler)

	login := func() int {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		return rec.Code
	}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, login(), "attempt %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, login())

	// uploads are never throttled
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/apps/x/icon-192.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	now = now.Add(6 * time.Minute)
	assert.Equal(t, http.StatusOK, login())
}
