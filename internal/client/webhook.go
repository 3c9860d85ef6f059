package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/threadline/backend/internal/model"
)

// WebhookSender - 사용자 설정 웹훅으로 렌더링된 body를 전송
type WebhookSender struct {
	httpClient *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send - 단일 webhook config로 HTTP 요청 전송
func (s *WebhookSender) Send(ctx context.Context, cfg model.WebhookConfig, body string) error {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
