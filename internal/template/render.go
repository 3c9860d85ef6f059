// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{event.type}}, {{event.timestamp}},
//	{{event.actor}}, {{event.actor_id}}, {{event.actor_provider}},
//	{{event.target}}, {{event.target_id}}, {{event.target_provider}},
//	{{event.comment_id}}, {{event.media_type}}, {{event.media_id}},
//	{{event.reason}}, {{event.content}}, {{event.fields.<key>}}
//
// 값은 JSON 문자열 내부에 안전하게 들어가도록 escape 된다 (따옴표 제외).
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/threadline/backend/internal/model"
)

var fieldVar = regexp.MustCompile(`\{\{event\.fields\.([A-Za-z0-9_\-]+)\}\}`)

// RenderBody - webhook body 템플릿의 변수를 이벤트 값으로 치환
//
// 이벤트에 없는 값(target, comment 등)은 빈 문자열로 치환됩니다.
func RenderBody(body string, ev model.Event) string {
	var targetKey, targetID, targetProvider string
	if ev.Target != nil {
		targetKey = ev.Target.Key()
		targetID = ev.Target.SubjectID
		targetProvider = string(ev.Target.Provider)
	}
	commentID := ""
	if ev.CommentID != 0 {
		commentID = strconv.FormatInt(ev.CommentID, 10)
	}
	timestamp := ""
	if !ev.At.IsZero() {
		timestamp = ev.At.UTC().Format(time.RFC3339)
	}
	actorKey := ""
	if !ev.Actor.IsZero() {
		actorKey = ev.Actor.Key()
	}

	pairs := []string{
		"{{event.type}}", string(ev.Type),
		"{{event.timestamp}}", timestamp,
		"{{event.actor}}", actorKey,
		"{{event.actor_id}}", ev.Actor.SubjectID,
		"{{event.actor_provider}}", string(ev.Actor.Provider),
		"{{event.target}}", targetKey,
		"{{event.target_id}}", targetID,
		"{{event.target_provider}}", targetProvider,
		"{{event.comment_id}}", commentID,
		"{{event.media_type}}", ev.MediaType,
		"{{event.media_id}}", ev.MediaID,
		"{{event.reason}}", ev.Reason,
		"{{event.content}}", ev.Content,
	}
	for i := 1; i < len(pairs); i += 2 {
		pairs[i] = escape(pairs[i])
	}

	out := fieldVar.ReplaceAllStringFunc(body, func(m string) string {
		key := fieldVar.FindStringSubmatch(m)[1]
		return escape(ev.Fields[key])
	})
	return strings.NewReplacer(pairs...).Replace(out)
}

// escape returns s encoded as the inside of a JSON string literal.
func escape(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b[1 : len(b)-1])
}
