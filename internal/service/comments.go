package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/config"
	"github.com/threadline/backend/internal/db"
	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/ratelimit"
	"github.com/threadline/backend/internal/vote"
)

const (
	maxMediaFieldLength = 200
	maxReportDetails    = 1000
)

type CommentService struct {
	comments   CommentStore
	reports    ReportStore
	roles      *RoleResolver
	moderation *ModerationService
	limits     Limits
	policy     config.PolicyConfig
	notifier   EventNotifier
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewCommentService(
	comments CommentStore,
	reports ReportStore,
	roles *RoleResolver,
	moderation *ModerationService,
	limits Limits,
	policy config.PolicyConfig,
	notifier EventNotifier,
	log logrus.FieldLogger,
) *CommentService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &CommentService{
		comments:   comments,
		reports:    reports,
		roles:      roles,
		moderation: moderation,
		limits:     limits,
		policy:     policy,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// ListParams - GET /comments 쿼리
type ListParams struct {
	MediaType string
	MediaID   string
	Sort      string
	Page      Page
}

// List returns visible comments for a media item. viewer is zero for anonymous callers.
func (s *CommentService) List(ctx context.Context, viewer model.Identity, p ListParams) ([]model.CommentResponse, Page, error) {
	mediaType, mediaID, err := validateMedia(p.MediaType, p.MediaID)
	if err != nil {
		return nil, Page{}, err
	}
	sort := strings.ToLower(strings.TrimSpace(p.Sort))
	switch sort {
	case "":
		sort = model.SortNew
	case model.SortNew, model.SortOld, model.SortTop:
	default:
		return nil, Page{}, invalid("sort must be one of new, top, old")
	}
	page, err := p.Page.normalize()
	if err != nil {
		return nil, Page{}, err
	}

	q := model.CommentQuery{
		MediaType: mediaType,
		MediaID:   mediaID,
		Sort:      sort,
		Limit:     page.Limit,
		Offset:    page.offset(),
		Viewer:    viewer,
	}
	if !viewer.IsZero() {
		role, err := s.roles.ResolveRole(ctx, viewer)
		if err != nil {
			return nil, Page{}, err
		}
		q.IncludeHidden = access.Authorize(role, model.RoleModerator)
	}

	comments, err := s.comments.ListComments(ctx, q)
	if err != nil {
		return nil, Page{}, err
	}
	out := make([]model.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, model.NewCommentResponse(&comments[i], viewer))
	}
	return out, page, nil
}

func (s *CommentService) Create(ctx context.Context, actor model.Identity, req model.CreateCommentRequest) (*model.CommentResponse, error) {
	mediaType, mediaID, err := validateMedia(req.MediaType, req.MediaID)
	if err != nil {
		return nil, err
	}
	content, err := s.validateContent(req.Content)
	if err != nil {
		return nil, err
	}
	if req.ParentID != nil && *req.ParentID <= 0 {
		return nil, invalid("parent_id must be positive")
	}

	user, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := gate(user.Role, access.ActionCreateComment); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.visibleComment(ctx, *req.ParentID, actor, user.Role)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		if parent.MediaType != mediaType || parent.MediaID != mediaID {
			return nil, invalid("parent comment belongs to another media item")
		}
		if parent.Locked {
			return nil, ErrLocked
		}
	}

	decision := access.CheckCanAct(user, access.WriteComment, s.now())
	if err := decision.Err(); err != nil {
		return nil, err
	}
	if err := s.limits.allow(ctx, ratelimit.BucketComment, actor); err != nil {
		return nil, err
	}

	created, err := s.comments.CreateComment(ctx, &model.Comment{
		MediaType:      mediaType,
		MediaID:        mediaID,
		ParentID:       req.ParentID,
		Author:         actor,
		AuthorUsername: user.Username,
		Content:        content,
		ShadowHidden:   decision.ShadowBanned,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"comment_id": created.ID,
		"author":     actor.Key(),
		"shadow":     created.ShadowHidden,
	}).Info("comment created")
	if !created.ShadowHidden {
		s.notifier.Notify(model.Event{
			Type:      model.EventCommentCreated,
			Actor:     actor,
			CommentID: created.ID,
			MediaType: created.MediaType,
			MediaID:   created.MediaID,
			Content:   created.Content,
			At:        s.now(),
		})
	}
	resp := model.NewCommentResponse(created, actor)
	return &resp, nil
}

// Edit replaces the content of the actor's own comment.
func (s *CommentService) Edit(ctx context.Context, actor model.Identity, id int64, req model.UpdateCommentRequest) (*model.CommentResponse, error) {
	content, err := s.validateContent(req.Content)
	if err != nil {
		return nil, err
	}
	user, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := gate(user.Role, access.ActionEditComment); err != nil {
		return nil, err
	}

	c, err := s.visibleComment(ctx, id, actor, user.Role)
	if err != nil {
		return nil, err
	}
	if c.Author != actor {
		return nil, forbidden("only the author can edit a comment")
	}
	if err := access.CheckCanAct(user, access.WriteEdit, s.now()).Err(); err != nil {
		return nil, err
	}
	if c.Locked {
		return nil, ErrLocked
	}

	updated, err := s.comments.UpdateComment(ctx, id, func(c *model.Comment) error {
		if c.Deleted {
			return notFound("comment")
		}
		if c.Locked {
			return ErrLocked
		}
		c.Content = content
		c.Edited = true
		return nil
	}, nil)
	if err != nil {
		return nil, mapStoreErr(err, "comment")
	}
	resp := model.NewCommentResponse(updated, actor)
	return &resp, nil
}

// Delete soft-deletes a comment. Authors delete their own comments; anyone else goes
// through the moderator_delete_comment moderation action.
func (s *CommentService) Delete(ctx context.Context, actor model.Identity, id int64) (*model.CommentResponse, error) {
	user, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	c, err := s.visibleComment(ctx, id, actor, user.Role)
	if err != nil {
		return nil, err
	}

	action := access.ForTarget(access.ActionDeleteComment, access.ActionModDeleteComment, actor, c.Author)
	if action == access.ActionModDeleteComment {
		if s.moderation == nil {
			return nil, forbidden("moderation unavailable")
		}
		resp, err := s.moderation.Apply(ctx, actor, model.ModerationRequest{
			Action:    string(access.ActionModDeleteComment),
			CommentID: id,
		})
		if err != nil {
			return nil, err
		}
		return resp.Comment, nil
	}
	if err := gate(user.Role, action); err != nil {
		return nil, err
	}
	if err := access.CheckCanAct(user, access.WriteDelete, s.now()).Err(); err != nil {
		return nil, err
	}

	deleted, err := s.comments.UpdateComment(ctx, id, func(c *model.Comment) error {
		if c.Deleted {
			return notFound("comment")
		}
		c.Deleted = true
		c.DeletedBy = &actor
		return nil
	}, nil)
	if err != nil {
		return nil, mapStoreErr(err, "comment")
	}
	resp := model.NewCommentResponse(deleted, actor)
	return &resp, nil
}

func (s *CommentService) Vote(ctx context.Context, actor model.Identity, id int64, rawKind string) (*model.VoteResponse, error) {
	kind, err := vote.ParseKind(rawKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := gate(user.Role, access.ActionVote); err != nil {
		return nil, err
	}

	c, err := s.visibleComment(ctx, id, actor, user.Role)
	if err != nil {
		return nil, err
	}
	if c.Locked {
		return nil, ErrLocked
	}
	if !s.policy.AllowSelfVote && c.Author == actor {
		return nil, forbidden("self-vote not allowed")
	}
	if err := access.CheckCanAct(user, access.WriteVote, s.now()).Err(); err != nil {
		return nil, err
	}
	if err := s.limits.allow(ctx, ratelimit.BucketVote, actor); err != nil {
		return nil, err
	}

	var result vote.Result
	updated, err := s.comments.MutateVotes(ctx, id, func(c *model.Comment) error {
		if c.Deleted {
			return notFound("comment")
		}
		if c.Locked {
			return ErrLocked
		}
		if c.Votes == nil {
			c.Votes = vote.Ledger{}
		}
		result = c.Votes.Apply(actor.Key(), kind)
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err, "comment")
	}

	s.log.WithFields(logrus.Fields{
		"comment_id": id,
		"voter":      actor.Key(),
		"previous":   result.Previous,
		"current":    result.Current,
	}).Debug("vote applied")
	return &model.VoteResponse{
		Success:   true,
		CommentID: updated.ID,
		Upvotes:   updated.Tally.Upvotes,
		Downvotes: updated.Tally.Downvotes,
		Score:     updated.Tally.Score,
		UserVote:  model.UserVoteLabel(result.Current),
	}, nil
}

func (s *CommentService) Report(ctx context.Context, actor model.Identity, id int64, req model.ReportRequest) (*model.Report, error) {
	reason, err := model.ParseReportReason(req.Reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	details := strings.TrimSpace(req.Details)
	if utf8.RuneCountInString(details) > maxReportDetails {
		return nil, invalid("details must be at most %d characters", maxReportDetails)
	}
	user, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := gate(user.Role, access.ActionReport); err != nil {
		return nil, err
	}

	c, err := s.visibleComment(ctx, id, actor, user.Role)
	if err != nil {
		return nil, err
	}
	if err := access.CheckCanAct(user, access.WriteReport, s.now()).Err(); err != nil {
		return nil, err
	}
	if err := s.limits.allow(ctx, ratelimit.BucketReport, actor); err != nil {
		return nil, err
	}

	report, err := s.reports.CreateReport(ctx, &model.Report{
		CommentID: c.ID,
		Reporter:  actor,
		Reason:    reason,
		Details:   details,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, conflict("comment already reported")
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	author := c.Author
	s.notifier.Notify(model.Event{
		Type:      model.EventCommentReported,
		Actor:     actor,
		Target:    &author,
		CommentID: c.ID,
		MediaType: c.MediaType,
		MediaID:   c.MediaID,
		Reason:    reason,
		Content:   c.Content,
		Fields:    map[string]string{"report_id": report.ID, "details": details},
		At:        s.now(),
	})
	return report, nil
}

// visibleComment loads a comment the viewer may see. Deleted comments and
// shadow-hidden comments of other users (for non-moderators) read as not found.
func (s *CommentService) visibleComment(ctx context.Context, id int64, viewer model.Identity, role model.Role) (*model.Comment, error) {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "comment")
	}
	if c.Deleted {
		return nil, notFound("comment")
	}
	if c.ShadowHidden && c.Author != viewer && !access.Authorize(role, model.RoleModerator) {
		return nil, notFound("comment")
	}
	return c, nil
}

func (s *CommentService) validateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", invalid("content is required")
	}
	if n := utf8.RuneCountInString(content); n > s.policy.MaxCommentLength {
		return "", invalid("content must be at most %d characters", s.policy.MaxCommentLength)
	}
	return content, nil
}

func validateMedia(mediaType, mediaID string) (string, string, error) {
	mediaType = strings.TrimSpace(mediaType)
	mediaID = strings.TrimSpace(mediaID)
	if mediaType == "" || mediaID == "" {
		return "", "", invalid("media_type and media_id are required")
	}
	if len(mediaType) > maxMediaFieldLength || len(mediaID) > maxMediaFieldLength {
		return "", "", invalid("media_type and media_id must be at most %d bytes", maxMediaFieldLength)
	}
	return mediaType, mediaID, nil
}

// mapStoreErr maps store errors onto service sentinels; sentinel errors pass through.
func mapStoreErr(err error, what string) error {
	switch {
	case db.IsNoRows(err):
		return notFound(what)
	case errors.Is(err, db.ErrVersionConflict):
		return conflict("concurrent update, retry")
	default:
		return err
	}
}
