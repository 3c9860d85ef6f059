package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/service"
)

// commentService - 댓글 서비스 인터페이스
type commentService interface {
	List(ctx context.Context, viewer model.Identity, p service.ListParams) ([]model.CommentResponse, service.Page, error)
	Create(ctx context.Context, actor model.Identity, req model.CreateCommentRequest) (*model.CommentResponse, error)
	Edit(ctx context.Context, actor model.Identity, id int64, req model.UpdateCommentRequest) (*model.CommentResponse, error)
	Delete(ctx context.Context, actor model.Identity, id int64) (*model.CommentResponse, error)
	Vote(ctx context.Context, actor model.Identity, id int64, kind string) (*model.VoteResponse, error)
	Report(ctx context.Context, actor model.Identity, id int64, req model.ReportRequest) (*model.Report, error)
}

type CommentHandler struct {
	svc commentService
	log logrus.FieldLogger
}

func NewCommentHandler(svc commentService, log logrus.FieldLogger) *CommentHandler {
	return &CommentHandler{svc: svc, log: log}
}

// ListComments godoc
// @Summary List comments for a media item
// @Description Deleted comments are never returned. Shadow-hidden comments are visible to their author and moderators.
// @Tags comments
// @Produce json
// @Param media_type query string true "Media type"
// @Param media_id query string true "Media ID"
// @Param sort query string false "new | top | old"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} model.CommentListResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	viewer, _ := GetIdentity(c)

	comments, page, err := h.svc.List(c.Request.Context(), viewer, service.ListParams{
		MediaType: c.Query("media_type"),
		MediaID:   c.Query("media_id"),
		Sort:      c.Query("sort"),
		Page:      page,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.CommentListResponse{
		Success:  true,
		Comments: comments,
		Page:     page.Page,
		Limit:    page.Limit,
	})
}

// CreateComment godoc
// @Summary Create a comment or reply
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateCommentRequest true "Comment"
// @Success 201 {object} model.CommentEnvelope
// @Failure 400,401,403,404,429,500 {object} model.ErrorResponse
// @Router /api/v1/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	actor, _ := GetIdentity(c)
	var req model.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	comment, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.CommentEnvelope{Success: true, Comment: *comment})
}

// UpdateComment godoc
// @Summary Edit your own comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body model.UpdateCommentRequest true "New content"
// @Success 200 {object} model.CommentEnvelope
// @Failure 400,401,403,404,409,500 {object} model.ErrorResponse
// @Router /api/v1/comments/{id} [patch]
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := commentID(c)
	if !ok {
		return
	}
	var req model.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	comment, err := h.svc.Edit(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.CommentEnvelope{Success: true, Comment: *comment})
}

// DeleteComment godoc
// @Summary Delete a comment
// @Description Authors delete their own comments; deleting anyone else's requires moderator.
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 400,401,403,404,500 {object} model.ErrorResponse
// @Router /api/v1/comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := commentID(c)
	if !ok {
		return
	}

	if _, err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Success: true, Message: "comment deleted"})
}

// VoteComment godoc
// @Summary Vote on a comment
// @Description Repeating the current vote removes it.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body model.VoteRequest true "upvote | downvote | remove"
// @Success 200 {object} model.VoteResponse
// @Failure 400,401,403,404,409,429,500 {object} model.ErrorResponse
// @Router /api/v1/comments/{id}/vote [post]
func (h *CommentHandler) VoteComment(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := commentID(c)
	if !ok {
		return
	}
	var req model.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	resp, err := h.svc.Vote(c.Request.Context(), actor, id, req.Kind)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReportComment godoc
// @Summary Report a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body model.ReportRequest true "Reason and details"
// @Success 201 {object} model.ReportResponse
// @Failure 400,401,403,404,409,429,500 {object} model.ErrorResponse
// @Router /api/v1/comments/{id}/report [post]
func (h *CommentHandler) ReportComment(c *gin.Context) {
	actor, _ := GetIdentity(c)
	id, ok := commentID(c)
	if !ok {
		return
	}
	var req model.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	report, err := h.svc.Report(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.ReportResponse{Success: true, Report: *report})
}

func commentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// parsePage reads page/limit query parameters. Missing values stay zero and
// take the service defaults.
func parsePage(c *gin.Context) (service.Page, bool) {
	var p service.Page
	for _, q := range []struct {
		name string
		dst  *int
	}{
		{"page", &p.Page},
		{"limit", &p.Limit},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, q.name+" must be a positive integer")
			return p, false
		}
		*q.dst = n
	}
	return p, true
}
