package model

import (
	"fmt"
	"strings"
	"time"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

var ReportReasons = []string{"spam", "harassment", "spoilers", "offensive", "other"}

func ParseReportReason(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, r := range ReportReasons {
		if v == r {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid report reason: %q", value)
}

// ParseResolution accepts the two terminal report states.
func ParseResolution(value string) (ReportStatus, error) {
	switch s := ReportStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case ReportResolved, ReportDismissed:
		return s, nil
	case "":
		return ReportResolved, nil
	default:
		return "", fmt.Errorf("invalid resolution: %q", value)
	}
}

type Report struct {
	ID         string       `json:"id"`
	CommentID  int64        `json:"comment_id"`
	Reporter   Identity     `json:"reporter"`
	Reason     string       `json:"reason"`
	Details    string       `json:"details,omitempty"`
	Status     ReportStatus `json:"status"`
	ResolvedBy *Identity    `json:"resolved_by,omitempty"`
	Resolution string       `json:"resolution,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

// QueueItem - 모더레이션 큐 항목 (신고 + 댓글 스냅샷)
type QueueItem struct {
	Report  Report          `json:"report"`
	Comment CommentResponse `json:"comment"`
}

type ReportRequest struct {
	Reason  string `json:"reason" binding:"required"`
	Details string `json:"details"`
}

type ReportResponse struct {
	Success bool   `json:"success"`
	Report  Report `json:"report"`
}

type QueueResponse struct {
	Success bool        `json:"success"`
	Items   []QueueItem `json:"items"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

// ReportedComment pairs a report with the comment it targets.
type ReportedComment struct {
	Report  Report
	Comment Comment
}
