// Package access holds the authorization gate (role order, per-action minimum
// roles) and the restriction checker (ban, mute, shadow ban, warnings).
package access

import (
	"errors"
	"fmt"

	"github.com/threadline/backend/internal/model"
)

var (
	ErrForbidden     = errors.New("insufficient role")
	ErrUnknownAction = errors.New("unknown action")
)

type Action string

const (
	ActionCreateComment Action = "create_comment"
	ActionEditComment   Action = "edit_comment"
	ActionDeleteComment Action = "delete_comment"
	ActionVote          Action = "vote"
	ActionReport        Action = "report"
	ActionReadOwnStats  Action = "read_own_stats"

	ActionPinComment       Action = "pin_comment"
	ActionUnpinComment     Action = "unpin_comment"
	ActionLockThread       Action = "lock_thread"
	ActionUnlockThread     Action = "unlock_thread"
	ActionWarnUser         Action = "warn_user"
	ActionUnwarnUser       Action = "unwarn_user"
	ActionMuteUser         Action = "mute_user"
	ActionUnmuteUser       Action = "unmute_user"
	ActionModDeleteComment Action = "moderator_delete_comment"
	ActionResolveReport    Action = "resolve_report"
	ActionViewQueue        Action = "view_queue"
	ActionViewStats        Action = "view_stats"

	ActionBanUser         Action = "ban_user"
	ActionUnbanUser       Action = "unban_user"
	ActionShadowBanUser   Action = "shadow_ban_user"
	ActionUnshadowBanUser Action = "unshadow_ban_user"

	ActionPromoteUser  Action = "promote_user"
	ActionDemoteUser   Action = "demote_user"
	ActionManageConfig Action = "manage_config"
)

var minRoles = map[Action]model.Role{
	ActionCreateComment: model.RoleUser,
	ActionEditComment:   model.RoleUser,
	ActionDeleteComment: model.RoleUser,
	ActionVote:          model.RoleUser,
	ActionReport:        model.RoleUser,
	ActionReadOwnStats:  model.RoleUser,

	ActionPinComment:       model.RoleModerator,
	ActionUnpinComment:     model.RoleModerator,
	ActionLockThread:       model.RoleModerator,
	ActionUnlockThread:     model.RoleModerator,
	ActionWarnUser:         model.RoleModerator,
	ActionUnwarnUser:       model.RoleModerator,
	ActionMuteUser:         model.RoleModerator,
	ActionUnmuteUser:       model.RoleModerator,
	ActionModDeleteComment: model.RoleModerator,
	ActionResolveReport:    model.RoleModerator,
	ActionViewQueue:        model.RoleModerator,
	ActionViewStats:        model.RoleModerator,

	ActionBanUser:         model.RoleAdmin,
	ActionUnbanUser:       model.RoleAdmin,
	ActionShadowBanUser:   model.RoleAdmin,
	ActionUnshadowBanUser: model.RoleAdmin,

	ActionPromoteUser:  model.RoleSuperAdmin,
	ActionDemoteUser:   model.RoleSuperAdmin,
	ActionManageConfig: model.RoleSuperAdmin,
}

func ParseAction(value string) (Action, error) {
	a := Action(value)
	if _, ok := minRoles[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, value)
	}
	return a, nil
}

// MinRole returns the lowest role allowed to perform action.
func MinRole(action Action) (model.Role, bool) {
	r, ok := minRoles[action]
	return r, ok
}

// Authorize reports whether actor meets min. Unknown roles never pass.
func Authorize(actor, min model.Role) bool {
	if actor.Rank() < 0 || min.Rank() < 0 {
		return false
	}
	return actor.Rank() >= min.Rank()
}

// Check gates action for actor.
func Check(actor model.Role, action Action) error {
	min, ok := minRoles[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !Authorize(actor, min) {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, action, min)
	}
	return nil
}

// ForTarget selects self when the actor is acting on their own resource and
// other otherwise, so the user floor only applies to self-access.
func ForTarget(self, other Action, actor, target model.Identity) Action {
	if !actor.IsZero() && actor == target {
		return self
	}
	return other
}

// Outranks reports whether actor may act on a user holding target's role.
func Outranks(actor, target model.Role) bool {
	return actor.Rank() > target.Rank()
}
