package model

import (
	"time"

	"github.com/threadline/backend/internal/vote"
)

// Comment - comments 테이블 레코드 (Votes는 투표 ledger 원본)
type Comment struct {
	ID             int64
	MediaType      string
	MediaID        string
	ParentID       *int64
	Author         Identity
	AuthorUsername string
	Content        string
	Pinned         bool
	Locked         bool
	Deleted        bool
	DeletedBy      *Identity
	ShadowHidden   bool
	Edited         bool
	Votes          vote.Ledger
	Tally          vote.Tally
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CommentQuery - 목록 조회 조건
type CommentQuery struct {
	MediaType string
	MediaID   string
	Sort      string
	Limit     int
	Offset    int
	// Viewer sees their own shadow-hidden comments; IncludeHidden shows all of them.
	Viewer        Identity
	IncludeHidden bool
}

const (
	SortNew = "new"
	SortOld = "old"
	SortTop = "top"
)

type CommentAuthor struct {
	SubjectID string   `json:"subject_id"`
	Provider  Provider `json:"provider"`
	Username  string   `json:"username"`
}

type CommentResponse struct {
	ID           int64         `json:"id"`
	MediaType    string        `json:"media_type"`
	MediaID      string        `json:"media_id"`
	ParentID     *int64        `json:"parent_id"`
	Author       CommentAuthor `json:"author"`
	Content      string        `json:"content"`
	Pinned       bool          `json:"pinned"`
	Locked       bool          `json:"locked"`
	Edited       bool          `json:"edited"`
	ShadowHidden bool          `json:"shadow_hidden,omitempty"`
	Upvotes      int           `json:"upvotes"`
	Downvotes    int           `json:"downvotes"`
	Score        int           `json:"score"`
	UserVote     *string       `json:"user_vote"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewCommentResponse builds the client view of c for viewer (zero identity for anonymous).
func NewCommentResponse(c *Comment, viewer Identity) CommentResponse {
	resp := CommentResponse{
		ID:        c.ID,
		MediaType: c.MediaType,
		MediaID:   c.MediaID,
		ParentID:  c.ParentID,
		Author: CommentAuthor{
			SubjectID: c.Author.SubjectID,
			Provider:  c.Author.Provider,
			Username:  c.AuthorUsername,
		},
		Content:      c.Content,
		Pinned:       c.Pinned,
		Locked:       c.Locked,
		Edited:       c.Edited,
		ShadowHidden: c.ShadowHidden,
		Upvotes:      c.Tally.Upvotes,
		Downvotes:    c.Tally.Downvotes,
		Score:        c.Tally.Score,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if !viewer.IsZero() {
		resp.UserVote = UserVoteLabel(c.Votes.Get(viewer.Key()))
	}
	return resp
}

// UserVoteLabel returns nil when there is no vote so it serializes as null.
func UserVoteLabel(d vote.Direction) *string {
	label := d.Label()
	if label == "" {
		return nil
	}
	return &label
}

type CreateCommentRequest struct {
	MediaType string `json:"media_type" binding:"required"`
	MediaID   string `json:"media_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
	ParentID  *int64 `json:"parent_id"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentEnvelope struct {
	Success bool            `json:"success"`
	Comment CommentResponse `json:"comment"`
}

type CommentListResponse struct {
	Success  bool              `json:"success"`
	Comments []CommentResponse `json:"comments"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type VoteRequest struct {
	// upvote | downvote | remove
	Kind string `json:"kind" binding:"required"`
}

type VoteResponse struct {
	Success   bool    `json:"success"`
	CommentID int64   `json:"comment_id"`
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	Score     int     `json:"score"`
	UserVote  *string `json:"user_vote"`
}
