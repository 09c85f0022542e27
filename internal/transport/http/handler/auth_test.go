package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairydesk/internal/app"
	"dairydesk/internal/model"
	"dairydesk/internal/transport/http/response"
)

type stubAuthService struct {
	registerUser *model.User
	registerErr  error
	loginResult  *app.AuthResult
	loginErr     error
}

func (s *stubAuthService) Register(app.RegisterInput) (*model.User, error) {
	return s.registerUser, s.registerErr
}

func (s *stubAuthService) Login(app.LoginInput) (*app.AuthResult, error) {
	return s.loginResult, s.loginErr
}

func (s *stubAuthService) Profile(uint) (*model.User, error) {
	return s.registerUser, s.registerErr
}

func newAuthRouter(t *testing.T, svc AuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewAuthHandler(svc)
	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	return router
}

func postJSON(router *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	validPayload := `{"name":"Farm Owner","email":"owner@example.com","password":"milk123","phone":"9876543210"}`

	t.Run("success returns 201 with the created user", func(t *testing.T) {
		router := newAuthRouter(t, &stubAuthService{
			registerUser: &model.User{ID: 7, Name: "Farm Owner", Email: "owner@example.com", Role: model.RoleAdmin},
		})

		w := postJSON(router, "/auth/register", validPayload)
		require.Equal(t, http.StatusCreated, w.Code)

		var body response.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, response.CodeOK, body.Code)

		data, ok := body.Data.(map[string]interface{})
		require.True(t, ok)
		user, ok := data["user"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "owner@example.com", user["email"])
		assert.Equal(t, model.RoleAdmin, user["role"])
	})

	t.Run("duplicate email maps to its error code", func(t *testing.T) {
		router := newAuthRouter(t, &stubAuthService{registerErr: app.ErrEmailExists})

		w := postJSON(router, "/auth/register", validPayload)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body response.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, response.CodeEmailExists, body.Code)
	})

	t.Run("missing fields fail binding", func(t *testing.T) {
		router := newAuthRouter(t, &stubAuthService{})

		w := postJSON(router, "/auth/register", `{"email":"owner@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	payload := `{"email":"owner@example.com","password":"milk123"}`

	t.Run("success returns the token", func(t *testing.T) {
		router := newAuthRouter(t, &stubAuthService{
			loginResult: &app.AuthResult{
				Token: "jwt-token",
				User:  &model.User{ID: 7, Email: "owner@example.com", Role: model.RoleAdmin},
			},
		})

		w := postJSON(router, "/auth/login", payload)
		require.Equal(t, http.StatusOK, w.Code)

		var body response.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		data, ok := body.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "jwt-token", data["token"])
	})

	t.Run("bad credentials return 401", func(t *testing.T) {
		router := newAuthRouter(t, &stubAuthService{loginErr: app.ErrInvalidCredential})

		w := postJSON(router, "/auth/login", payload)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body response.APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, response.CodeInvalidCredentials, body.Code)
	})

	t.Run("non-admin account returns 403", func(t *testing.T) {
		router := newAuthRouter(t, &stubAuthService{loginErr: app.ErrNotAdmin})

		w := postJSON(router, "/auth/login", payload)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
