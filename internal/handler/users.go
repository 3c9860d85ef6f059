package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
)

type userService interface {
	Stats(ctx context.Context, actor model.Identity, provider, subjectID string) (*model.UserStats, error)
}

type UserHandler struct {
	svc userService
	log logrus.FieldLogger
}

func NewUserHandler(svc userService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// Stats godoc
// @Summary Get user activity stats
// @Description Your own stats need no extra role; anyone else's require moderator.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param provider path string true "discord | google"
// @Param subject_id path string true "Provider subject ID"
// @Success 200 {object} model.UserStatsResponse
// @Failure 400,401,403,404,500 {object} model.ErrorResponse
// @Router /api/v1/users/{provider}/{subject_id}/stats [get]
func (h *UserHandler) Stats(c *gin.Context) {
	actor, _ := GetIdentity(c)
	stats, err := h.svc.Stats(c.Request.Context(), actor, c.Param("provider"), c.Param("subject_id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.UserStatsResponse{Success: true, Stats: *stats})
}
