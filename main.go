package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/client"
	"github.com/threadline/backend/internal/config"
	"github.com/threadline/backend/internal/db"
	"github.com/threadline/backend/internal/handler"
	"github.com/threadline/backend/internal/ratelimit"
	"github.com/threadline/backend/internal/service"
	"github.com/threadline/backend/internal/token"
)

// @title threadline API
// @version 1.0
// @description Comment threads, voting and moderation for media items.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity token.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	store := db.NewPostgres(pool)

	codec, err := token.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatalf("token codec: %v", err)
	}

	limiter, err := ratelimit.NewFromURL(cfg.Redis.URL, cfg.Limits.Window, logger)
	if err != nil {
		logger.Fatalf("rate limiter: %v", err)
	}

	notifier := service.NewNotifier(
		client.NewDiscordClient(cfg.Discord.WebhookURL),
		store,
		client.NewWebhookSender(),
		logger,
	)

	roles := service.NewRoleResolver(store)
	authService, err := service.NewAuthService(store, roles, codec, buildProviders(ctx, cfg, logger), cfg.Policy.WarningThreshold, logger)
	if err != nil {
		logger.Fatalf("auth service: %v", err)
	}
	if err := authService.EnsureSuperAdmins(ctx, cfg.Auth.SuperAdmins); err != nil {
		logger.Fatalf("bootstrap super admins: %v", err)
	}

	moderationService := service.NewModerationService(store, store, store, roles, notifier, cfg.Policy.WarningThreshold, logger)
	commentService := service.NewCommentService(
		store,
		store,
		roles,
		moderationService,
		service.Limits{
			Limiter:  limiter,
			Comments: cfg.Limits.Comments,
			Votes:    cfg.Limits.Votes,
			Reports:  cfg.Limits.Reports,
		},
		cfg.Policy,
		notifier,
		logger,
	)
	userService := service.NewUserService(store, roles, cfg.Policy.WarningThreshold)
	webhookService := service.NewWebhookService(store, roles)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := handler.NewRouter(handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, logger),
		Comments:   handler.NewCommentHandler(commentService, logger),
		Moderation: handler.NewModerationHandler(moderationService, logger),
		Users:      handler.NewUserHandler(userService, logger),
		Webhooks:   handler.NewWebhookSettingsHandler(webhookService, logger),
	}, authService, cfg.Server.CORSOrigins, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	notifier.Wait()

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.LogConfig) {
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// buildProviders returns the login providers that have credentials configured.
func buildProviders(ctx context.Context, cfg config.Config, logger *logrus.Logger) []client.IdentityProvider {
	var providers []client.IdentityProvider
	if cfg.Discord.ClientID != "" && cfg.Discord.ClientSecret != "" {
		providers = append(providers, client.NewDiscordProvider(cfg.Discord.ClientID, cfg.Discord.ClientSecret))
	}
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		google, err := client.NewGoogleProvider(ctx, cfg.Google.ClientID, cfg.Google.ClientSecret)
		if err != nil {
			logger.Warnf("google login disabled: %v", err)
		} else {
			providers = append(providers, google)
		}
	}
	if len(providers) == 0 {
		logger.Warn("no login providers configured")
	}
	return providers
}
