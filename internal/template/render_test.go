package template

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backend/internal/model"
)

func TestRenderBody(t *testing.T) {
	target := model.Identity{SubjectID: "77", Provider: model.ProviderGoogle}
	ev := model.Event{
		Type:      model.EventUserMuted,
		Actor:     model.Identity{SubjectID: "1", Provider: model.ProviderDiscord},
		Target:    &target,
		CommentID: 15,
		MediaType: "movie",
		MediaID:   "550",
		Reason:    `said "spoilers"`,
		Fields:    map[string]string{"duration_minutes": "60"},
		At:        time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "identity vars",
			body: "{{event.type}} {{event.actor}} {{event.actor_id}} {{event.actor_provider}} -> {{event.target}} {{event.target_id}} {{event.target_provider}}",
			want: "user_muted discord:1 1 discord -> google:77 77 google",
		},
		{
			name: "comment vars",
			body: "#{{event.comment_id}} {{event.media_type}}/{{event.media_id}} at {{event.timestamp}}",
			want: "#15 movie/550 at 2026-05-04T03:02:01Z",
		},
		{
			name: "fields",
			body: "{{event.fields.duration_minutes}}m {{event.fields.missing}}|",
			want: "60m |",
		},
		{
			name: "escaped",
			body: `{"reason":"{{event.reason}}"}`,
			want: `{"reason":"said \"spoilers\""}`,
		},
		{
			name: "unknown vars untouched",
			body: "{{report.id}}",
			want: "{{report.id}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderBody(tt.body, ev))
		})
	}
}

func TestRenderBodyEmptyEvent(t *testing.T) {
	got := RenderBody("[{{event.target}}][{{event.comment_id}}][{{event.timestamp}}][{{event.actor}}]", model.Event{})
	assert.Equal(t, "[][][][]", got)
}

func TestRenderBodyProducesValidJSON(t *testing.T) {
	ev := model.Event{Type: model.EventCommentCreated, Content: "line1\nline2 \"quoted\" \\ tab\t"}
	body := `{"type":"{{event.type}}","content":"{{event.content}}"}`

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(RenderBody(body, ev)), &decoded))
	assert.Equal(t, ev.Content, decoded["content"])
}
