package model

import "time"

type EventType string

const (
	EventCommentCreated     EventType = "comment_created"
	EventCommentDeleted     EventType = "comment_deleted"
	EventCommentReported    EventType = "comment_reported"
	EventReportResolved     EventType = "report_resolved"
	EventUserWarned         EventType = "user_warned"
	EventUserUnwarned       EventType = "user_unwarned"
	EventUserMuted          EventType = "user_muted"
	EventUserUnmuted        EventType = "user_unmuted"
	EventUserBanned         EventType = "user_banned"
	EventUserUnbanned       EventType = "user_unbanned"
	EventUserShadowBanned   EventType = "user_shadow_banned"
	EventUserUnshadowBanned EventType = "user_unshadow_banned"
	EventRoleChanged        EventType = "role_changed"
	EventCommentPinned      EventType = "comment_pinned"
	EventCommentUnpinned    EventType = "comment_unpinned"
	EventThreadLocked       EventType = "thread_locked"
	EventThreadUnlocked     EventType = "thread_unlocked"
)

// Event - 알림 채널(Discord, 웹훅)로 전달되는 도메인 이벤트
type Event struct {
	Type      EventType         `json:"type"`
	Actor     Identity          `json:"actor"`
	Target    *Identity         `json:"target,omitempty"`
	CommentID int64             `json:"comment_id,omitempty"`
	MediaType string            `json:"media_type,omitempty"`
	MediaID   string            `json:"media_id,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Content   string            `json:"content,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	At        time.Time         `json:"at"`
}
