package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/model"
	"worksheet_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func bearer(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(id, role, "u@example.com", secret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(router *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	router := gin.New()
	router.GET("/", AuthMiddleware(cfg), RoleMiddleware(model.Teacher), func(c *gin.Context) {
		c.String(http.StatusOK, RateKey(c))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer garbage").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, bearer(t, 3, model.Student)).Code)

	w := serve(router, bearer(t, 7, model.Teacher))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user:7", w.Body.String())

	assert.Equal(t, http.StatusOK, serve(router, bearer(t, 1, model.Admin)).Code)
}

func TestTryAuthFallsBackToIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	router := gin.New()
	router.GET("/", TryAuthMiddleware(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, RateKey(c))
	})

	w := serve(router, "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ip:192.0.2.1", w.Body.String())

	w = serve(router, bearer(t, 9, model.Student))
	assert.Equal(t, "user:9", w.Body.String())
}
