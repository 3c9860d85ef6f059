package model

import "time"

// WebhookHeader - 헤더 키-값 쌍
type WebhookHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WebhookConfig - 이벤트 알림을 보낼 외부 웹훅 설정
// Events가 비어 있으면 모든 이벤트를 수신한다.
type WebhookConfig struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Method    string          `json:"method"`
	Headers   []WebhookHeader `json:"headers"`
	Body      string          `json:"body"`
	Events    []EventType     `json:"events"`
	Enabled   bool            `json:"enabled"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Accepts reports whether the config subscribes to t.
func (c WebhookConfig) Accepts(t EventType) bool {
	if !c.Enabled {
		return false
	}
	if len(c.Events) == 0 {
		return true
	}
	for _, e := range c.Events {
		if e == t {
			return true
		}
	}
	return false
}

// WebhookConfigRequest - 웹훅 설정 생성/수정 요청 구조체
type WebhookConfigRequest struct {
	Name    string          `json:"name"`
	URL     string          `json:"url" binding:"required"`
	Method  string          `json:"method"`
	Headers []WebhookHeader `json:"headers"`
	Body    string          `json:"body"`
	Events  []EventType     `json:"events"`
	Enabled *bool           `json:"enabled"`
}

type WebhookConfigResponse struct {
	Success bool           `json:"success"`
	Webhook *WebhookConfig `json:"webhook"`
}

type WebhookConfigListResponse struct {
	Success  bool            `json:"success"`
	Webhooks []WebhookConfig `json:"webhooks"`
}

type WebhookConfigMutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}
