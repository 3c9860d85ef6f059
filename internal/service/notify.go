package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/model"
	tmpl "github.com/threadline/backend/internal/template"
)

const deliveryTimeout = 30 * time.Second

type eventSender interface {
	IsConfigured() bool
	SendEvent(ctx context.Context, ev model.Event) error
}

type webhookConfigReader interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
}

type webhookSender interface {
	Send(ctx context.Context, cfg model.WebhookConfig, body string) error
}

// Notifier fans domain events out to Discord and the configured webhooks.
// Notify never blocks the caller and never reports delivery failures.
type Notifier struct {
	discord eventSender
	configs webhookConfigReader
	sender  webhookSender
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

func NewNotifier(discord eventSender, configs webhookConfigReader, sender webhookSender, log logrus.FieldLogger) *Notifier {
	return &Notifier{
		discord: discord,
		configs: configs,
		sender:  sender,
		log:     log,
	}
}

func (n *Notifier) Notify(ev model.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(ev)
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ev model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	log := n.log.WithField("event", ev.Type)

	if n.discord != nil && n.discord.IsConfigured() {
		if err := n.discord.SendEvent(ctx, ev); err != nil {
			log.WithError(err).Warn("discord delivery failed")
		}
	}

	if n.configs == nil || n.sender == nil {
		return
	}
	configs, err := n.configs.GetWebhookConfigs(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to load webhook configs")
		return
	}
	for _, cfg := range configs {
		if cfg.URL == "" || !cfg.Accepts(ev.Type) {
			continue
		}
		body := cfg.Body
		if body == "" {
			raw, err := json.Marshal(ev)
			if err != nil {
				log.WithError(err).Warn("failed to marshal event")
				continue
			}
			body = string(raw)
		} else {
			body = tmpl.RenderBody(body, ev)
		}

		if err := n.sender.Send(ctx, cfg, body); err != nil {
			log.WithError(err).WithField("webhook_id", cfg.ID).Warn("webhook delivery failed")
			continue
		}
		log.WithField("webhook_id", cfg.ID).Debug("webhook delivered")
	}
}
