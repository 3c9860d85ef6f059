package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
)

const (
	identityKey     = "identity"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// authenticator verifies bearer tokens.
type authenticator interface {
	Authenticate(raw string) (model.Identity, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			unauthorized(c)
			return
		}
		id, err := auth.Authenticate(token)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a token is sent. A token that is
// present but invalid is still rejected.
func OptionalAuth(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		token := bearerToken(c)
		if token == "" {
			unauthorized(c)
			return
		}
		id, err := auth.Authenticate(token)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// EnvelopeAuth accepts the token either as a bearer header or as the "token"
// field of the JSON body. The body is cached so the handler can bind it again.
func EnvelopeAuth(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			var envelope struct {
				Token string `json:"token"`
			}
			_ = c.ShouldBindBodyWith(&envelope, binding.JSON)
			token = strings.TrimSpace(envelope.Token)
		}
		if token == "" {
			unauthorized(c)
			return
		}
		id, err := auth.Authenticate(token)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// GetIdentity returns the authenticated caller, or the zero identity.
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	if value, ok := c.Get(identityKey); ok {
		if id, ok := value.(model.Identity); ok {
			return id, true
		}
	}
	return model.Identity{}, false
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := originMap[origin]
			if ok || allowAll {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		entry := requestLogger(c, log).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request completed")
			return
		}
		entry.Info("request completed")
	}
}

func requestLogger(c *gin.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if id := c.GetString(requestIDKey); id != "" {
		return log.WithField("request_id", id)
	}
	return log
}
