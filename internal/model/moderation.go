package model

import "time"

// ModerationRequest is the inbound action envelope for /api/v1/moderation.
// Token may be supplied here instead of the Authorization header.
type ModerationRequest struct {
	Action          string `json:"action" binding:"required"`
	Token           string `json:"token,omitempty"`
	TargetUserID    string `json:"target_user_id,omitempty"`
	TargetProvider  string `json:"target_provider,omitempty"`
	CommentID       int64  `json:"comment_id,omitempty"`
	ReportID        string `json:"report_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Role            string `json:"role,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
}

// ModerationAction - moderation_actions 감사 로그 레코드
type ModerationAction struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Actor     Identity  `json:"actor"`
	Target    *Identity `json:"target,omitempty"`
	CommentID *int64    `json:"comment_id,omitempty"`
	ReportID  *string   `json:"report_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ModerationResponse struct {
	Success bool             `json:"success"`
	Action  string           `json:"action"`
	User    *UserProfile     `json:"user,omitempty"`
	Comment *CommentResponse `json:"comment,omitempty"`
	Report  *Report          `json:"report,omitempty"`
}

type ModerationLogResponse struct {
	Success bool               `json:"success"`
	Actions []ModerationAction `json:"actions"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
}

type UserStatsResponse struct {
	Success bool      `json:"success"`
	Stats   UserStats `json:"stats"`
}
