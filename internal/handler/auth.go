package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
)

type authService interface {
	authenticator
	Providers() []model.Provider
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	Me(ctx context.Context, id model.Identity) (*model.UserProfile, error)
}

type AuthHandler struct {
	svc authService
	log logrus.FieldLogger
}

func NewAuthHandler(svc authService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Login godoc
// @Summary Login with an OAuth2 authorization code
// @Description Exchanges the code with the provider and returns an identity token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Provider and authorization code"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Providers godoc
// @Summary List configured login providers
// @Tags auth
// @Produce json
// @Success 200 {object} model.ProvidersResponse
// @Router /api/v1/auth/providers [get]
func (h *AuthHandler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, model.ProvidersResponse{
		Success:   true,
		Providers: h.svc.Providers(),
	})
}

// Me godoc
// @Summary Get current user
// @Description Returns the live user record, including role and restrictions.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MeResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := GetIdentity(c)
	if !ok {
		unauthorized(c)
		return
	}
	profile, err := h.svc.Me(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.MeResponse{Success: true, User: *profile})
}
