package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/service"
)

// moderationService - 모더레이션 서비스 인터페이스
type moderationService interface {
	Apply(ctx context.Context, actor model.Identity, req model.ModerationRequest) (*model.ModerationResponse, error)
	Queue(ctx context.Context, actor model.Identity, status string, page service.Page) ([]model.QueueItem, service.Page, error)
	Actions(ctx context.Context, actor model.Identity, page service.Page) ([]model.ModerationAction, service.Page, error)
}

type ModerationHandler struct {
	svc moderationService
	log logrus.FieldLogger
}

func NewModerationHandler(svc moderationService, log logrus.FieldLogger) *ModerationHandler {
	return &ModerationHandler{svc: svc, log: log}
}

// Apply godoc
// @Summary Apply a moderation action
// @Description The token may be sent as a bearer header or in the envelope's token field.
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ModerationRequest true "Action envelope"
// @Success 200 {object} model.ModerationResponse
// @Failure 400,401,403,404,409,500 {object} model.ErrorResponse
// @Router /api/v1/moderation [post]
func (h *ModerationHandler) Apply(c *gin.Context) {
	actor, _ := GetIdentity(c)
	var req model.ModerationRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		badRequest(c, "invalid request")
		return
	}

	resp, err := h.svc.Apply(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Queue godoc
// @Summary List reported comments
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | resolved | dismissed"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} model.QueueResponse
// @Failure 400,401,403,500 {object} model.ErrorResponse
// @Router /api/v1/moderation/queue [get]
func (h *ModerationHandler) Queue(c *gin.Context) {
	actor, _ := GetIdentity(c)
	page, ok := parsePage(c)
	if !ok {
		return
	}

	items, page, err := h.svc.Queue(c.Request.Context(), actor, c.Query("status"), page)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.QueueResponse{
		Success: true,
		Items:   items,
		Page:    page.Page,
		Limit:   page.Limit,
	})
}

// Actions godoc
// @Summary List the moderation audit log
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} model.ModerationLogResponse
// @Failure 400,401,403,500 {object} model.ErrorResponse
// @Router /api/v1/moderation/actions [get]
func (h *ModerationHandler) Actions(c *gin.Context) {
	actor, _ := GetIdentity(c)
	page, ok := parsePage(c)
	if !ok {
		return
	}

	actions, page, err := h.svc.Actions(c.Request.Context(), actor, page)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.ModerationLogResponse{
		Success: true,
		Actions: actions,
		Page:    page.Page,
		Limit:   page.Limit,
	})
}
