package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backend/internal/model"
)

func TestDiscordSendEvent(t *testing.T) {
	var got DiscordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	target := model.Identity{SubjectID: "9", Provider: model.ProviderGoogle}
	ev := model.Event{
		Type:   model.EventUserBanned,
		Actor:  model.Identity{SubjectID: "1", Provider: model.ProviderDiscord},
		Target: &target,
		Reason: "spam",
		Fields: map[string]string{"b": "2", "a": "1"},
		At:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	c := NewDiscordClient(srv.URL)
	require.NoError(t, c.SendEvent(context.Background(), ev))

	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "User Banned", embed.Title)
	assert.Equal(t, colorDanger, embed.Color)
	assert.Equal(t, "2026-03-01T12:00:00Z", embed.Timestamp)

	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Actor", "Target", "Reason", "a", "b"}, names)
	assert.Equal(t, "discord:1", embed.Fields[0].Value)
}

func TestDiscordSendEventErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewDiscordClient(srv.URL).SendEvent(context.Background(), model.Event{Type: model.EventCommentCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	assert.Error(t, NewDiscordClient("").SendEvent(context.Background(), model.Event{}))
	var nilClient *DiscordClient
	assert.False(t, nilClient.IsConfigured())
}

func TestBuildEmbedComment(t *testing.T) {
	embed := BuildEmbed(model.Event{
		Type:      model.EventCommentReported,
		CommentID: 12,
		MediaType: "movie",
		MediaID:   "550",
		Content:   "offending text",
	})
	assert.Equal(t, "Comment Reported", embed.Title)
	assert.Equal(t, colorWarning, embed.Color)
	assert.Equal(t, "offending text", embed.Description)
	assert.Empty(t, embed.Timestamp)
	assert.Contains(t, embed.Fields, DiscordEmbedField{Name: "Comment", Value: "#12", Inline: true})
	assert.Contains(t, embed.Fields, DiscordEmbedField{Name: "Media", Value: "movie/550", Inline: true})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "가나…", truncate("가나다라", 3))
}
