// Discord 웹훅으로 모더레이션 알림을 보내는 클라이언트
//
// 환경변수:
//   - DISCORD_WEBHOOK_URL: https://discord.com/api/webhooks/{id}/{token}
//
// 봇이 아닌 Incoming Webhook을 사용한다 (메시지 전송만 필요).

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/threadline/backend/internal/model"
)

// Discord embed description 길이 제한
const maxEmbedDescription = 4096

// DiscordClient 구조체 정의
type DiscordClient struct {
	webhookURL string
	httpClient *http.Client
}

// DiscordMessage - 웹훅 요청 본문
type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed - 색상, 필드가 포함된 메시지 카드
type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// - 제재: 0xdc3545 (빨강)
// - 경고/신고: 0xffc107 (노랑)
// - 해제/해결: 0x36a64f (초록)
// - 기타: 0x5865f2 (blurple)
const (
	colorDanger  = 0xdc3545
	colorWarning = 0xffc107
	colorSuccess = 0x36a64f
	colorInfo    = 0x5865f2
)

func NewDiscordClient(webhookURL string) *DiscordClient {
	return &DiscordClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *DiscordClient) IsConfigured() bool {
	return c != nil && c.webhookURL != ""
}

// SendEvent posts ev as a single embed.
func (c *DiscordClient) SendEvent(ctx context.Context, ev model.Event) error {
	if !c.IsConfigured() {
		return fmt.Errorf("discord webhook url not configured")
	}
	return c.send(ctx, DiscordMessage{Embeds: []DiscordEmbed{BuildEmbed(ev)}})
}

// BuildEmbed renders an event into a Discord embed.
func BuildEmbed(ev model.Event) DiscordEmbed {
	embed := DiscordEmbed{
		Title:       eventTitle(ev.Type),
		Description: truncate(ev.Content, maxEmbedDescription),
		Color:       eventColor(ev.Type),
		Footer:      &DiscordEmbedFooter{Text: "threadline moderation"},
	}
	if !ev.At.IsZero() {
		embed.Timestamp = ev.At.UTC().Format(time.RFC3339)
	}

	embed.Fields = append(embed.Fields, DiscordEmbedField{Name: "Actor", Value: ev.Actor.String(), Inline: true})
	if ev.Target != nil {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: "Target", Value: ev.Target.String(), Inline: true})
	}
	if ev.CommentID != 0 {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: "Comment", Value: fmt.Sprintf("#%d", ev.CommentID), Inline: true})
	}
	if ev.MediaType != "" || ev.MediaID != "" {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: "Media", Value: ev.MediaType + "/" + ev.MediaID, Inline: true})
	}
	if ev.Reason != "" {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: "Reason", Value: ev.Reason})
	}
	for _, key := range slices.Sorted(maps.Keys(ev.Fields)) {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: key, Value: ev.Fields[key], Inline: true})
	}
	return embed
}

func eventTitle(t model.EventType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func eventColor(t model.EventType) int {
	switch t {
	case model.EventUserBanned, model.EventUserShadowBanned, model.EventUserMuted, model.EventCommentDeleted:
		return colorDanger
	case model.EventUserWarned, model.EventCommentReported, model.EventThreadLocked:
		return colorWarning
	case model.EventUserUnbanned, model.EventUserUnshadowBanned, model.EventUserUnmuted,
		model.EventUserUnwarned, model.EventReportResolved, model.EventThreadUnlocked:
		return colorSuccess
	default:
		return colorInfo
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Discord webhook 호출
func (c *DiscordClient) send(ctx context.Context, msg DiscordMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	// 성공 시 204 No Content
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord webhook error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
