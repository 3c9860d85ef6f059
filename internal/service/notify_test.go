package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backend/internal/model"
)

type fakeDiscord struct {
	configured bool
	err        error
	mu         sync.Mutex
	events     []model.Event
}

func (d *fakeDiscord) IsConfigured() bool { return d.configured }

func (d *fakeDiscord) SendEvent(_ context.Context, ev model.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.err
}

type sent struct {
	id   int
	body string
}

type fakeSender struct {
	mu   sync.Mutex
	fail map[int]bool
	sent []sent
}

func (s *fakeSender) Send(_ context.Context, cfg model.WebhookConfig, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{id: cfg.ID, body: body})
	if s.fail[cfg.ID] {
		return errors.New("503 Service Unavailable")
	}
	return nil
}

func (s *fakeSender) bodies() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int]string{}
	for _, m := range s.sent {
		out[m.id] = m.body
	}
	return out
}

func TestNotifierFanOut(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	mustCreate := func(cfg model.WebhookConfig) int {
		id, err := store.CreateWebhookConfig(ctx, cfg)
		require.NoError(t, err)
		return id
	}
	templated := mustCreate(model.WebhookConfig{
		URL:     "https://hooks.example/a",
		Body:    `{"text":"{{event.type}} by {{event.actor}}"}`,
		Enabled: true,
	})
	raw := mustCreate(model.WebhookConfig{
		URL:     "https://hooks.example/b",
		Events:  []model.EventType{model.EventUserBanned},
		Enabled: true,
	})
	filtered := mustCreate(model.WebhookConfig{
		URL:     "https://hooks.example/c",
		Events:  []model.EventType{model.EventCommentCreated},
		Enabled: true,
	})
	disabled := mustCreate(model.WebhookConfig{URL: "https://hooks.example/d"})

	discord := &fakeDiscord{configured: true, err: errors.New("discord down")}
	sender := &fakeSender{fail: map[int]bool{templated: true}}
	n := NewNotifier(discord, store, sender, quietLogger())

	n.Notify(model.Event{
		Type:   model.EventUserBanned,
		Actor:  admin,
		Target: &alice,
		Reason: "abuse",
		At:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	n.Wait()

	require.Len(t, discord.events, 1)
	assert.Equal(t, model.EventUserBanned, discord.events[0].Type)

	bodies := sender.bodies()
	assert.Len(t, bodies, 2)
	assert.Equal(t, `{"text":"user_banned by google:500"}`, bodies[templated])
	assert.NotContains(t, bodies, filtered)
	assert.NotContains(t, bodies, disabled)

	var ev model.Event
	require.NoError(t, json.Unmarshal([]byte(bodies[raw]), &ev))
	assert.Equal(t, model.EventUserBanned, ev.Type)
	assert.Equal(t, "abuse", ev.Reason)
	require.NotNil(t, ev.Target)
	assert.Equal(t, alice, *ev.Target)
}

func TestNotifierSkipsUnconfiguredDiscord(t *testing.T) {
	discord := &fakeDiscord{}
	n := NewNotifier(discord, nil, nil, quietLogger())

	n.Notify(model.Event{Type: model.EventCommentCreated})
	n.Wait()

	assert.Empty(t, discord.events)
}

func TestNotifierSetsTimestamp(t *testing.T) {
	store := newMemStore()
	_, err := store.CreateWebhookConfig(context.Background(), model.WebhookConfig{URL: "https://hooks.example", Enabled: true})
	require.NoError(t, err)
	sender := &fakeSender{}
	n := NewNotifier(nil, store, sender, quietLogger())

	before := time.Now()
	n.Notify(model.Event{Type: model.EventThreadLocked})
	n.Wait()

	var ev model.Event
	require.NoError(t, json.Unmarshal([]byte(sender.bodies()[1]), &ev))
	assert.False(t, ev.At.Before(before.Truncate(time.Second)))
}
