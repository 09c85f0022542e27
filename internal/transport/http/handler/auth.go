package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dairydesk/internal/app"
	"dairydesk/internal/model"
	"dairydesk/internal/transport/http/middleware"
	"dairydesk/internal/transport/http/response"
)

// AuthService is the account surface the handler needs; *app.AuthService
// implements it.
type AuthService interface {
	Register(app.RegisterInput) (*model.User, error)
	Login(app.LoginInput) (*app.AuthResult, error)
	Profile(userID uint) (*model.User, error)
}

type AuthHandler struct {
	authService AuthService
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,max=120"`
	Password string `json:"password" binding:"required,max=128"`
	Phone    string `json:"phone" binding:"required,max=15"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=120"`
	Password string `json:"password" binding:"required,max=128"`
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.authService.Register(app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidEmail), errors.Is(err, app.ErrWeakPassword):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailExists):
			response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
		case errors.Is(err, app.ErrPhoneExists):
			response.Error(c, http.StatusBadRequest, response.CodePhoneExists, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	response.Created(c, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		case errors.Is(err, app.ErrNotAdmin), errors.Is(err, app.ErrInactiveAccount):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"token": result.Token,
		"user": gin.H{
			"id":    result.User.ID,
			"name":  result.User.Name,
			"email": result.User.Email,
			"role":  result.User.Role,
		},
	})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	user, err := h.authService.Profile(userID)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "account not found")
		return
	}

	response.OK(c, gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"phone":     user.Phone,
		"role":      user.Role,
		"is_active": user.IsActive,
	})
}
