package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/model"
)

// maxMuteMinutes is one year.
const maxMuteMinutes = 525600

type actionTarget int

const (
	targetUser actionTarget = iota
	targetComment
	targetReport
)

// moderationActions lists the actions accepted by the moderation envelope.
var moderationActions = map[access.Action]actionTarget{
	access.ActionPinComment:       targetComment,
	access.ActionUnpinComment:     targetComment,
	access.ActionLockThread:       targetComment,
	access.ActionUnlockThread:     targetComment,
	access.ActionModDeleteComment: targetComment,
	access.ActionWarnUser:         targetUser,
	access.ActionUnwarnUser:       targetUser,
	access.ActionMuteUser:         targetUser,
	access.ActionUnmuteUser:       targetUser,
	access.ActionBanUser:          targetUser,
	access.ActionUnbanUser:        targetUser,
	access.ActionShadowBanUser:    targetUser,
	access.ActionUnshadowBanUser:  targetUser,
	access.ActionPromoteUser:      targetUser,
	access.ActionDemoteUser:       targetUser,
	access.ActionResolveReport:    targetReport,
}

var actionEvents = map[access.Action]model.EventType{
	access.ActionPinComment:       model.EventCommentPinned,
	access.ActionUnpinComment:     model.EventCommentUnpinned,
	access.ActionLockThread:       model.EventThreadLocked,
	access.ActionUnlockThread:     model.EventThreadUnlocked,
	access.ActionModDeleteComment: model.EventCommentDeleted,
	access.ActionWarnUser:         model.EventUserWarned,
	access.ActionUnwarnUser:       model.EventUserUnwarned,
	access.ActionMuteUser:         model.EventUserMuted,
	access.ActionUnmuteUser:       model.EventUserUnmuted,
	access.ActionBanUser:          model.EventUserBanned,
	access.ActionUnbanUser:        model.EventUserUnbanned,
	access.ActionShadowBanUser:    model.EventUserShadowBanned,
	access.ActionUnshadowBanUser:  model.EventUserUnshadowBanned,
	access.ActionPromoteUser:      model.EventRoleChanged,
	access.ActionDemoteUser:       model.EventRoleChanged,
	access.ActionResolveReport:    model.EventReportResolved,
}

type ModerationService struct {
	users     UserStore
	comments  CommentStore
	reports   ReportStore
	roles     *RoleResolver
	notifier  EventNotifier
	threshold int
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewModerationService(users UserStore, comments CommentStore, reports ReportStore, roles *RoleResolver, notifier EventNotifier, warningThreshold int, log logrus.FieldLogger) *ModerationService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ModerationService{
		users:     users,
		comments:  comments,
		reports:   reports,
		roles:     roles,
		notifier:  notifier,
		threshold: warningThreshold,
		log:       log,
		now:       time.Now,
	}
}

// parsedRequest is a validated moderation envelope.
type parsedRequest struct {
	action     access.Action
	target     model.Identity
	commentID  int64
	reportID   string
	reason     string
	duration   time.Duration
	role       model.Role
	resolution model.ReportStatus
}

func parseModerationRequest(req model.ModerationRequest) (parsedRequest, error) {
	action, err := access.ParseAction(strings.TrimSpace(req.Action))
	if err != nil {
		return parsedRequest{}, invalid("unknown action %q", req.Action)
	}
	kind, ok := moderationActions[action]
	if !ok {
		return parsedRequest{}, invalid("%s is not a moderation action", action)
	}

	p := parsedRequest{action: action, reason: strings.TrimSpace(req.Reason)}
	switch kind {
	case targetUser:
		subject := strings.TrimSpace(req.TargetUserID)
		if subject == "" {
			return p, invalid("target_user_id is required")
		}
		provider, err := model.ParseProvider(req.TargetProvider)
		if err != nil {
			return p, invalid("target_provider: %v", err)
		}
		p.target = model.Identity{SubjectID: subject, Provider: provider}
	case targetComment:
		if req.CommentID <= 0 {
			return p, invalid("comment_id is required")
		}
		p.commentID = req.CommentID
	case targetReport:
		p.reportID = strings.TrimSpace(req.ReportID)
		if p.reportID == "" {
			return p, invalid("report_id is required")
		}
		p.resolution, err = model.ParseResolution(req.Resolution)
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	switch action {
	case access.ActionMuteUser:
		if req.DurationMinutes < 1 || req.DurationMinutes > maxMuteMinutes {
			return p, invalid("duration_minutes must be between 1 and %d", maxMuteMinutes)
		}
		p.duration = time.Duration(req.DurationMinutes) * time.Minute
	case access.ActionPromoteUser, access.ActionDemoteUser:
		p.role, err = model.ParseRole(req.Role)
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return p, nil
}

// Apply validates, authorizes, and performs one moderation action. The state change
// and its audit row are written in one transaction; the notification is best-effort.
func (s *ModerationService) Apply(ctx context.Context, actor model.Identity, req model.ModerationRequest) (*model.ModerationResponse, error) {
	p, err := parseModerationRequest(req)
	if err != nil {
		return nil, err
	}

	actorUser, err := s.roles.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := gate(actorUser.Role, p.action); err != nil {
		return nil, err
	}

	audit := &model.ModerationAction{
		Action: string(p.action),
		Actor:  actor,
		Reason: p.reason,
	}
	ev := model.Event{
		Type:   actionEvents[p.action],
		Actor:  actor,
		Reason: p.reason,
		At:     s.now(),
	}
	resp := &model.ModerationResponse{Success: true, Action: string(p.action)}

	switch moderationActions[p.action] {
	case targetUser:
		user, err := s.applyUser(ctx, actorUser, p, audit, &ev)
		if err != nil {
			return nil, err
		}
		profile := model.NewUserProfile(user, s.thresholdReached(user))
		resp.User = &profile
	case targetComment:
		c, err := s.applyComment(ctx, actorUser, p, audit, &ev)
		if err != nil {
			return nil, err
		}
		view := model.NewCommentResponse(c, model.Identity{})
		resp.Comment = &view
	case targetReport:
		r, err := s.applyReport(ctx, actorUser, p, audit, &ev)
		if err != nil {
			return nil, err
		}
		resp.Report = r
	}

	s.log.WithFields(logrus.Fields{
		"action":   p.action,
		"actor":    actor.Key(),
		"audit_id": audit.ID,
	}).Info("moderation action applied")
	s.notifier.Notify(ev)
	return resp, nil
}

func (s *ModerationService) applyUser(ctx context.Context, actorUser *model.User, p parsedRequest, audit *model.ModerationAction, ev *model.Event) (*model.User, error) {
	target, err := s.users.GetUser(ctx, p.target)
	if err != nil {
		return nil, mapStoreErr(err, "user")
	}
	if err := actorRestriction(actorUser); err != nil {
		return nil, err
	}
	if !access.Outranks(actorUser.Role, target.Role) {
		return nil, forbidden("actor must outrank target")
	}

	switch p.action {
	case access.ActionPromoteUser:
		if p.role.Rank() <= target.Role.Rank() {
			return nil, conflict(fmt.Sprintf("%s is not above current role %s", p.role, target.Role))
		}
		if p.role.Rank() > actorUser.Role.Rank() {
			return nil, forbidden("cannot grant a role above your own")
		}
	case access.ActionDemoteUser:
		if p.role.Rank() >= target.Role.Rank() {
			return nil, conflict(fmt.Sprintf("%s is not below current role %s", p.role, target.Role))
		}
	}

	id := target.Identity()
	audit.Target = &id
	ev.Target = &id
	now := s.now()

	updated, err := s.users.UpdateUser(ctx, id, func(u *model.User) error {
		// re-checked under the row lock
		if !access.Outranks(actorUser.Role, u.Role) {
			return forbidden("actor must outrank target")
		}
		switch p.action {
		case access.ActionWarnUser:
			u.WarningCount++
		case access.ActionUnwarnUser:
			if u.WarningCount > 0 {
				u.WarningCount--
			}
		case access.ActionMuteUser:
			until := now.Add(p.duration).UTC()
			u.MutedUntil = &until
		case access.ActionUnmuteUser:
			u.MutedUntil = nil
		case access.ActionBanUser:
			u.Banned = true
			u.BanReason = p.reason
		case access.ActionUnbanUser:
			u.Banned = false
			u.BanReason = ""
		case access.ActionShadowBanUser:
			u.ShadowBanned = true
		case access.ActionUnshadowBanUser:
			u.ShadowBanned = false
		case access.ActionPromoteUser, access.ActionDemoteUser:
			ev.Fields = map[string]string{"previous_role": string(u.Role), "role": string(p.role)}
			u.Role = p.role
		}
		return nil
	}, audit)
	if err != nil {
		return nil, mapStoreErr(err, "user")
	}

	switch p.action {
	case access.ActionWarnUser, access.ActionUnwarnUser:
		ev.Fields = map[string]string{
			"warning_count":             strconv.Itoa(updated.WarningCount),
			"warning_threshold_reached": strconv.FormatBool(s.thresholdReached(updated)),
		}
	case access.ActionMuteUser:
		ev.Fields = map[string]string{
			"duration_minutes": strconv.Itoa(int(p.duration / time.Minute)),
			"muted_until":      updated.MutedUntil.Format(time.RFC3339),
		}
	}
	return updated, nil
}

func (s *ModerationService) applyComment(ctx context.Context, actorUser *model.User, p parsedRequest, audit *model.ModerationAction, ev *model.Event) (*model.Comment, error) {
	c, err := s.comments.GetComment(ctx, p.commentID)
	if err != nil {
		return nil, mapStoreErr(err, "comment")
	}
	if c.Deleted {
		return nil, notFound("comment")
	}
	if err := actorRestriction(actorUser); err != nil {
		return nil, err
	}

	author := c.Author
	commentID := c.ID
	audit.Target = &author
	audit.CommentID = &commentID
	ev.Target = &author
	ev.CommentID = c.ID
	ev.MediaType = c.MediaType
	ev.MediaID = c.MediaID
	ev.Content = c.Content

	actor := actorUser.Identity()
	updated, err := s.comments.UpdateComment(ctx, c.ID, func(c *model.Comment) error {
		if c.Deleted {
			return notFound("comment")
		}
		switch p.action {
		case access.ActionPinComment:
			c.Pinned = true
		case access.ActionUnpinComment:
			c.Pinned = false
		case access.ActionLockThread:
			c.Locked = true
		case access.ActionUnlockThread:
			c.Locked = false
		case access.ActionModDeleteComment:
			c.Deleted = true
			c.DeletedBy = &actor
		}
		return nil
	}, audit)
	if err != nil {
		return nil, mapStoreErr(err, "comment")
	}
	return updated, nil
}

func (s *ModerationService) applyReport(ctx context.Context, actorUser *model.User, p parsedRequest, audit *model.ModerationAction, ev *model.Event) (*model.Report, error) {
	r, err := s.reports.GetReport(ctx, p.reportID)
	if err != nil {
		return nil, mapStoreErr(err, "report")
	}
	if err := actorRestriction(actorUser); err != nil {
		return nil, err
	}
	if r.Status != model.ReportPending {
		return nil, conflict("report already " + string(r.Status))
	}

	reportID := r.ID
	commentID := r.CommentID
	reporter := r.Reporter
	audit.ReportID = &reportID
	audit.CommentID = &commentID
	audit.Target = &reporter
	ev.CommentID = commentID
	ev.Target = &reporter
	ev.Fields = map[string]string{"report_id": reportID, "resolution": string(p.resolution)}

	resolver := actorUser.Identity()
	now := s.now().UTC()
	updated, err := s.reports.UpdateReport(ctx, r.ID, func(r *model.Report) error {
		if r.Status != model.ReportPending {
			return conflict("report already " + string(r.Status))
		}
		r.Status = p.resolution
		r.ResolvedBy = &resolver
		r.Resolution = p.reason
		r.ResolvedAt = &now
		return nil
	}, audit)
	if err != nil {
		return nil, mapStoreErr(err, "report")
	}
	return updated, nil
}

// Queue lists reports in status (default pending) with their comments.
func (s *ModerationService) Queue(ctx context.Context, actor model.Identity, status string, page Page) ([]model.QueueItem, Page, error) {
	st := model.ReportStatus(strings.ToLower(strings.TrimSpace(status)))
	switch st {
	case "":
		st = model.ReportPending
	case model.ReportPending, model.ReportResolved, model.ReportDismissed:
	default:
		return nil, Page{}, invalid("status must be one of pending, resolved, dismissed")
	}
	page, err := page.normalize()
	if err != nil {
		return nil, Page{}, err
	}
	if err := s.gateActor(ctx, actor, access.ActionViewQueue); err != nil {
		return nil, Page{}, err
	}

	rows, err := s.reports.ListReportQueue(ctx, st, page.Limit, page.offset())
	if err != nil {
		return nil, Page{}, err
	}
	items := make([]model.QueueItem, 0, len(rows))
	for i := range rows {
		items = append(items, model.QueueItem{
			Report:  rows[i].Report,
			Comment: model.NewCommentResponse(&rows[i].Comment, model.Identity{}),
		})
	}
	return items, page, nil
}

// Actions lists the moderation audit log, newest first.
func (s *ModerationService) Actions(ctx context.Context, actor model.Identity, page Page) ([]model.ModerationAction, Page, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, Page{}, err
	}
	if err := s.gateActor(ctx, actor, access.ActionViewQueue); err != nil {
		return nil, Page{}, err
	}
	actions, err := s.reports.ListModerationActions(ctx, page.Limit, page.offset())
	if err != nil {
		return nil, Page{}, err
	}
	return actions, page, nil
}

func (s *ModerationService) gateActor(ctx context.Context, actor model.Identity, action access.Action) error {
	role, err := s.roles.ResolveRole(ctx, actor)
	if err != nil {
		return err
	}
	return gate(role, action)
}

func (s *ModerationService) thresholdReached(u *model.User) bool {
	return access.WarningThresholdReached(u.WarningCount, s.threshold)
}

// actorRestriction blocks banned moderators from acting.
func actorRestriction(u *model.User) error {
	if u.Banned {
		return &access.RestrictionError{Reason: access.ReasonBanned}
	}
	return nil
}
