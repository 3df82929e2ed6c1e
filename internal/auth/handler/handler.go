package handler

import (
	"errors"
	"net/http"

	"tripforms_backend/internal/auth/repository"
	"tripforms_backend/internal/auth/service"
	"tripforms_backend/internal/auth/transport"
	"tripforms_backend/platform/httpkit"
	"tripforms_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sign-in", h.SignIn)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if fieldErrs := h.val.Struct(req); fieldErrs != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, fieldErrs)
		return
	}

	result, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpkit.Error(c, http.StatusUnauthorized, "invalid email or password", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			httpkit.Error(c, http.StatusForbidden, "account is disabled", nil)
		default:
			httpkit.HandleError(c, err)
		}
		return
	}

	httpkit.OK(c, transport.SignInResponse{
		AccessToken:        result.AccessToken,
		MustChangePassword: result.MustChangePassword,
		User:               toUserResponse(result.User),
	})
}

func (h *Handler) GetMe(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	user, err := h.svc.Me(c.Request.Context(), id.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, toUserResponse(user))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if fieldErrs := h.val.Struct(req); fieldErrs != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, fieldErrs)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), id.UserID(), req.CurrentPassword, req.NewPassword); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"message": "password updated"})
}

func toUserResponse(user repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:                 user.ID.String(),
		Email:              user.Email,
		FullName:           user.FullName,
		Role:               user.Role,
		IsActive:           user.IsActive,
		MustChangePassword: user.MustChangePassword,
		LastLoginAt:        user.LastLoginAt,
		CreatedAt:          user.CreatedAt,
	}
}
