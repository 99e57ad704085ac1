package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labcommerce/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = Config{SigningKey: []byte("test-secret"), Issuer: "https://idp.example", Audience: "lab-api"}

func newRouter(cfg Config, guard ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Middleware(cfg, zerolog.Nop())}, guard...)
	handlers = append(handlers, func(c *gin.Context) {
		p := PrincipalFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"subject": p.Subject})
	})
	r.GET("/me", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	tok, err := Sign(testCfg, "patient-1", []string{domain.RolePatient}, time.Hour)
	require.NoError(t, err)

	rec := do(newRouter(testCfg), tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subject":"patient-1"}`, rec.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	expired, err := Sign(testCfg, "patient-1", nil, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := Sign(Config{SigningKey: []byte("other"), Issuer: testCfg.Issuer, Audience: testCfg.Audience}, "patient-1", nil, time.Hour)
	require.NoError(t, err)
	wrongAud, err := Sign(Config{SigningKey: testCfg.SigningKey, Issuer: testCfg.Issuer, Audience: "other"}, "patient-1", nil, time.Hour)
	require.NoError(t, err)

	r := newRouter(testCfg)
	for name, tok := range map[string]string{
		"missing":   "",
		"garbage":   "not.a.jwt",
		"expired":   expired,
		"wrong key": wrongKey,
		"wrong aud": wrongAud,
	} {
		assert.Equal(t, http.StatusUnauthorized, do(r, tok).Code, name)
	}
}

func TestDevModeWithoutHeader(t *testing.T) {
	cfg := testCfg
	cfg.Dev = true
	rec := do(newRouter(cfg), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subject":"dev-user"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newRouter(testCfg, RequireRole(domain.RoleDoctor))

	patient, _ := Sign(testCfg, "p", []string{domain.RolePatient}, time.Hour)
	doctor, _ := Sign(testCfg, "d", []string{domain.RoleDoctor}, time.Hour)
	admin, _ := Sign(testCfg, "a", []string{domain.RoleAdmin}, time.Hour)

	assert.Equal(t, http.StatusForbidden, do(r, patient).Code)
	assert.Equal(t, http.StatusOK, do(r, doctor).Code)
	assert.Equal(t, http.StatusOK, do(r, admin).Code)
}
