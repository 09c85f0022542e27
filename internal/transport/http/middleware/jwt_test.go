package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairydesk/internal/model"
	"dairydesk/internal/pkg/jwtutil"
)

func newProtectedRouter(secret string, admin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/")
	group.Use(AuthJWT(secret))
	if admin {
		group.Use(RequireAdmin())
	}
	group.GET("/private", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetUint(ContextUserIDKey),
			"role":    c.GetString(ContextRoleKey),
		})
	})
	return router
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	router := newProtectedRouter("secret", false)

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doRequest(router, "").Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doRequest(router, "Basic abc").Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doRequest(router, "Bearer garbage").Code)
	})

	t.Run("token from another secret", func(t *testing.T) {
		token, err := jwtutil.GenerateToken("other", time.Hour, 1, model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, doRequest(router, "Bearer "+token).Code)
	})

	t.Run("valid token passes with claims in context", func(t *testing.T) {
		token, err := jwtutil.GenerateToken("secret", time.Hour, 7, model.RoleAdmin)
		require.NoError(t, err)

		w := doRequest(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":7`)
		assert.Contains(t, w.Body.String(), `"role":"admin"`)
	})
}

func TestRequireAdmin(t *testing.T) {
	router := newProtectedRouter("secret", true)

	t.Run("non-admin role is forbidden", func(t *testing.T) {
		token, err := jwtutil.GenerateToken("secret", time.Hour, 1, model.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, doRequest(router, "Bearer "+token).Code)
	})

	t.Run("admin role passes", func(t *testing.T) {
		token, err := jwtutil.GenerateToken("secret", time.Hour, 1, model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, doRequest(router, "Bearer "+token).Code)
	})
}
