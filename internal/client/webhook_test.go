package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backend/internal/model"
)

func TestWebhookSenderSend(t *testing.T) {
	tests := []struct {
		name        string
		headers     []model.WebhookHeader
		method      string
		wantMethod  string
		wantContent string
	}{
		{
			name:        "default content type and method",
			wantMethod:  http.MethodPost,
			wantContent: "application/json",
		},
		{
			name:        "custom headers",
			method:      http.MethodPut,
			headers:     []model.WebhookHeader{{Key: "content-type", Value: "text/plain"}, {Key: "X-Token", Value: "t"}},
			wantMethod:  http.MethodPut,
			wantContent: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody, gotMethod, gotContent string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				gotBody, gotMethod, gotContent = string(b), r.Method, r.Header.Get("Content-Type")
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			cfg := model.WebhookConfig{URL: srv.URL, Method: tt.method, Headers: tt.headers}
			require.NoError(t, NewWebhookSender().Send(context.Background(), cfg, `{"a":1}`))
			assert.Equal(t, `{"a":1}`, gotBody)
			assert.Equal(t, tt.wantMethod, gotMethod)
			assert.Equal(t, tt.wantContent, gotContent)
		})
	}
}

func TestWebhookSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookSender().Send(context.Background(), model.WebhookConfig{URL: srv.URL}, "{}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
