package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/service"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrLocked, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrRateLimited, http.StatusTooManyRequests},
}

// writeError maps service errors onto HTTP statuses. Anything unrecognized is
// logged and reported as a generic server error.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	var restriction *access.RestrictionError
	if errors.As(err, &restriction) {
		c.JSON(http.StatusForbidden, gin.H{"error": restriction.Reason})
		return
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			c.JSON(s.status, gin.H{"error": message(err, s.err)})
			return
		}
	}

	requestLogger(c, log).WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
}

// message drops the "<sentinel>: " prefix added by the service helpers.
func message(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
