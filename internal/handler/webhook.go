package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
)

// webhookService - 서비스 인터페이스
type webhookService interface {
	ListWebhookConfigs(ctx context.Context, actor model.Identity) ([]model.WebhookConfig, error)
	GetWebhookConfig(ctx context.Context, actor model.Identity, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, actor model.Identity, req model.WebhookConfigRequest) (int, error)
	UpdateWebhookConfig(ctx context.Context, actor model.Identity, id int, req model.WebhookConfigRequest) error
	DeleteWebhookConfig(ctx context.Context, actor model.Identity, id int) error
}

// WebhookSettingsHandler - 알림 웹훅 설정 핸들러 (super_admin 전용)
type WebhookSettingsHandler struct {
	svc webhookService
	log logrus.FieldLogger
}

func NewWebhookSettingsHandler(svc webhookService, log logrus.FieldLogger) *WebhookSettingsHandler {
	return &WebhookSettingsHandler{svc: svc, log: log}
}

// ListWebhookConfigs godoc
// @Summary List webhook configs
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.WebhookConfigListResponse
// @Failure 401,403,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks [get]
func (h *WebhookSettingsHandler) ListWebhookConfigs(c *gin.Context) {
	actor, _ := GetIdentity(c)
	configs, err := h.svc.ListWebhookConfigs(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigListResponse{Success: true, Webhooks: configs})
}

// GetWebhookConfig godoc
// @Summary Get a webhook config by ID
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Webhook Config ID"
// @Success 200 {object} model.WebhookConfigResponse
// @Failure 400,401,403,404,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks/{id} [get]
func (h *WebhookSettingsHandler) GetWebhookConfig(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := webhookID(c)
	if !ok {
		return
	}
	cfg, err := h.svc.GetWebhookConfig(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigResponse{Success: true, Webhook: cfg})
}

// CreateWebhookConfig godoc
// @Summary Create a webhook config
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.WebhookConfigRequest true "Webhook config"
// @Success 201 {object} model.WebhookConfigMutationResponse
// @Failure 400,401,403,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks [post]
func (h *WebhookSettingsHandler) CreateWebhookConfig(c *gin.Context) {
	actor, _ := GetIdentity(c)
	var req model.WebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	id, err := h.svc.CreateWebhookConfig(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.WebhookConfigMutationResponse{
		Success: true,
		Message: "webhook config created",
		ID:      id,
	})
}

// UpdateWebhookConfig godoc
// @Summary Update a webhook config
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Webhook Config ID"
// @Param request body model.WebhookConfigRequest true "Webhook config"
// @Success 200 {object} model.WebhookConfigMutationResponse
// @Failure 400,401,403,404,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks/{id} [put]
func (h *WebhookSettingsHandler) UpdateWebhookConfig(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := webhookID(c)
	if !ok {
		return
	}
	var req model.WebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.svc.UpdateWebhookConfig(c.Request.Context(), actor, id, req); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigMutationResponse{
		Success: true,
		Message: "webhook config updated",
		ID:      id,
	})
}

// DeleteWebhookConfig godoc
// @Summary Delete a webhook config
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Webhook Config ID"
// @Success 200 {object} model.WebhookConfigMutationResponse
// @Failure 400,401,403,404,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks/{id} [delete]
func (h *WebhookSettingsHandler) DeleteWebhookConfig(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := webhookID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteWebhookConfig(c.Request.Context(), actor, id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigMutationResponse{
		Success: true,
		Message: "webhook config deleted",
		ID:      id,
	})
}

func webhookID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
