package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/model"
)

// WebhookStore - DB 인터페이스
type WebhookStore interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
	GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error
	DeleteWebhookConfig(ctx context.Context, id int) error
}

var knownEvents = map[model.EventType]bool{
	model.EventCommentCreated:     true,
	model.EventCommentDeleted:     true,
	model.EventCommentReported:    true,
	model.EventReportResolved:     true,
	model.EventUserWarned:         true,
	model.EventUserUnwarned:       true,
	model.EventUserMuted:          true,
	model.EventUserUnmuted:        true,
	model.EventUserBanned:         true,
	model.EventUserUnbanned:       true,
	model.EventUserShadowBanned:   true,
	model.EventUserUnshadowBanned: true,
	model.EventRoleChanged:        true,
	model.EventCommentPinned:      true,
	model.EventCommentUnpinned:    true,
	model.EventThreadLocked:       true,
	model.EventThreadUnlocked:     true,
}

// WebhookService - 웹훅 설정 비즈니스 로직 (manage_config 권한 필요)
type WebhookService struct {
	db    WebhookStore
	roles *RoleResolver
}

func NewWebhookService(db WebhookStore, roles *RoleResolver) *WebhookService {
	return &WebhookService{db: db, roles: roles}
}

func (s *WebhookService) authorize(ctx context.Context, actor model.Identity) error {
	role, err := s.roles.ResolveRole(ctx, actor)
	if err != nil {
		return err
	}
	return gate(role, access.ActionManageConfig)
}

// authorizeWrite additionally rejects banned actors, whatever their role.
func (s *WebhookService) authorizeWrite(ctx context.Context, actor model.Identity) error {
	user, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return err
	}
	if err := gate(user.Role, access.ActionManageConfig); err != nil {
		return err
	}
	return actorRestriction(user)
}

func (s *WebhookService) ListWebhookConfigs(ctx context.Context, actor model.Identity) ([]model.WebhookConfig, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	return s.db.GetWebhookConfigs(ctx)
}

func (s *WebhookService) GetWebhookConfig(ctx context.Context, actor model.Identity, id int) (*model.WebhookConfig, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	cfg, err := s.db.GetWebhookConfigByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "webhook config")
	}
	return cfg, nil
}

func (s *WebhookService) CreateWebhookConfig(ctx context.Context, actor model.Identity, req model.WebhookConfigRequest) (int, error) {
	cfg, err := configFromRequest(req)
	if err != nil {
		return 0, err
	}
	if err := s.authorizeWrite(ctx, actor); err != nil {
		return 0, err
	}
	return s.db.CreateWebhookConfig(ctx, cfg)
}

func (s *WebhookService) UpdateWebhookConfig(ctx context.Context, actor model.Identity, id int, req model.WebhookConfigRequest) error {
	cfg, err := configFromRequest(req)
	if err != nil {
		return err
	}
	if err := s.authorizeWrite(ctx, actor); err != nil {
		return err
	}
	if err := s.db.UpdateWebhookConfig(ctx, id, cfg); err != nil {
		return mapStoreErr(err, "webhook config")
	}
	return nil
}

func (s *WebhookService) DeleteWebhookConfig(ctx context.Context, actor model.Identity, id int) error {
	if err := s.authorizeWrite(ctx, actor); err != nil {
		return err
	}
	if err := s.db.DeleteWebhookConfig(ctx, id); err != nil {
		return mapStoreErr(err, "webhook config")
	}
	return nil
}

func configFromRequest(req model.WebhookConfigRequest) (model.WebhookConfig, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.WebhookConfig{}, invalid("url must be an absolute http(s) URL")
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return model.WebhookConfig{}, invalid("method must be POST, PUT or PATCH")
	}

	for _, ev := range req.Events {
		if !knownEvents[ev] {
			return model.WebhookConfig{}, invalid("unknown event type %q", ev)
		}
	}

	cfg := model.WebhookConfig{
		Name:    strings.TrimSpace(req.Name),
		URL:     u.String(),
		Method:  method,
		Headers: req.Headers,
		Body:    req.Body,
		Events:  req.Events,
		Enabled: true,
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if cfg.Headers == nil {
		cfg.Headers = []model.WebhookHeader{}
	}
	if cfg.Events == nil {
		cfg.Events = []model.EventType{}
	}
	for _, h := range cfg.Headers {
		if strings.TrimSpace(h.Key) == "" {
			return model.WebhookConfig{}, fmt.Errorf("%w: header key is required", ErrInvalidInput)
		}
	}
	return cfg, nil
}
