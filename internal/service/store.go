package service

import (
	"context"

	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/ratelimit"
)

// UserStore - users 테이블 접근 인터페이스
type UserStore interface {
	GetUser(ctx context.Context, id model.Identity) (*model.User, error)
	UpsertUserProfile(ctx context.Context, ext model.ExternalIdentity) (*model.User, error)
	EnsureRole(ctx context.Context, id model.Identity, role model.Role) (*model.User, error)
	UpdateUser(ctx context.Context, id model.Identity, fn func(*model.User) error, audit *model.ModerationAction) (*model.User, error)
	GetUserStats(ctx context.Context, id model.Identity) (model.UserStats, error)
}

// CommentStore - comments 테이블 접근 인터페이스
type CommentStore interface {
	CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error)
	GetComment(ctx context.Context, id int64) (*model.Comment, error)
	ListComments(ctx context.Context, q model.CommentQuery) ([]model.Comment, error)
	UpdateComment(ctx context.Context, id int64, fn func(*model.Comment) error, audit *model.ModerationAction) (*model.Comment, error)
	MutateVotes(ctx context.Context, commentID int64, fn func(*model.Comment) error) (*model.Comment, error)
}

// ReportStore - reports / moderation_actions 접근 인터페이스
type ReportStore interface {
	CreateReport(ctx context.Context, r *model.Report) (*model.Report, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	UpdateReport(ctx context.Context, id string, fn func(*model.Report) error, audit *model.ModerationAction) (*model.Report, error)
	ListReportQueue(ctx context.Context, status model.ReportStatus, limit, offset int) ([]model.ReportedComment, error)
	ListModerationActions(ctx context.Context, limit, offset int) ([]model.ModerationAction, error)
}

// EventNotifier receives domain events; delivery is best-effort.
type EventNotifier interface {
	Notify(ev model.Event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(model.Event) {}

// Limits binds the per-bucket limits to a limiter.
type Limits struct {
	Limiter  ratelimit.Limiter
	Comments int
	Votes    int
	Reports  int
}

func (l Limits) allow(ctx context.Context, bucket ratelimit.Bucket, actor model.Identity) error {
	if l.Limiter == nil {
		return nil
	}
	limit := 0
	switch bucket {
	case ratelimit.BucketComment:
		limit = l.Comments
	case ratelimit.BucketVote:
		limit = l.Votes
	case ratelimit.BucketReport:
		limit = l.Reports
	}
	if !l.Limiter.Allow(ctx, ratelimit.Key(bucket, actor.Key()), limit).Allowed {
		return ErrRateLimited
	}
	return nil
}

// Page converts 1-based page/limit into limit/offset. Zero values take the defaults.
type Page struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (p Page) normalize() (Page, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = defaultPageLimit
	}
	if p.Page < 1 {
		return p, invalid("page must be >= 1")
	}
	if p.Limit < 1 || p.Limit > maxPageLimit {
		return p, invalid("limit must be between 1 and %d", maxPageLimit)
	}
	return p, nil
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}
