package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Auth       *AuthHandler
	Comments   *CommentHandler
	Moderation *ModerationHandler
	Users      *UserHandler
	Webhooks   *WebhookSettingsHandler
}

func NewRouter(h Handlers, auth authenticator, corsOrigins []string, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), CORSMiddleware(corsOrigins))

	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/openapi.json", OpenAPIDoc)

	requireAuth := AuthMiddleware(auth)
	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/providers", h.Auth.Providers)
	authGroup.GET("/me", requireAuth, h.Auth.Me)

	comments := api.Group("/comments")
	comments.GET("", OptionalAuth(auth), h.Comments.ListComments)
	comments.POST("", requireAuth, h.Comments.CreateComment)
	comments.PATCH("/:id", requireAuth, h.Comments.UpdateComment)
	comments.DELETE("/:id", requireAuth, h.Comments.DeleteComment)
	comments.POST("/:id/vote", requireAuth, h.Comments.VoteComment)
	comments.POST("/:id/report", requireAuth, h.Comments.ReportComment)

	moderation := api.Group("/moderation")
	moderation.POST("", EnvelopeAuth(auth), h.Moderation.Apply)
	moderation.GET("/queue", requireAuth, h.Moderation.Queue)
	moderation.GET("/actions", requireAuth, h.Moderation.Actions)

	users := api.Group("/users", requireAuth)
	users.GET("/:provider/:subject_id/stats", h.Users.Stats)

	settings := api.Group("/settings/webhooks", requireAuth)
	settings.GET("", h.Webhooks.ListWebhookConfigs)
	settings.POST("", h.Webhooks.CreateWebhookConfig)
	settings.GET("/:id", h.Webhooks.GetWebhookConfig)
	settings.PUT("/:id", h.Webhooks.UpdateWebhookConfig)
	settings.DELETE("/:id", h.Webhooks.DeleteWebhookConfig)

	return router
}
