package access

import (
	"time"

	"github.com/threadline/backend/internal/model"
)

// WriteKind is the class of write a restriction is evaluated for.
type WriteKind string

const (
	WriteComment WriteKind = "comment"
	WriteEdit    WriteKind = "edit"
	WriteDelete  WriteKind = "delete"
	WriteVote    WriteKind = "vote"
	WriteReport  WriteKind = "report"
)

const (
	ReasonBanned = "banned"
	ReasonMuted  = "muted"
)

// Decision is the outcome of CheckCanAct. ShadowBanned does not deny the
// write; the caller hides the resulting content from everyone but its author.
type Decision struct {
	Allowed      bool
	Reason       string
	ShadowBanned bool
}

// RestrictionError carries the user-facing reason for a denied write.
type RestrictionError struct {
	Reason string
}

func (e *RestrictionError) Error() string {
	return e.Reason
}

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &RestrictionError{Reason: d.Reason}
}

func CheckCanAct(user *model.User, kind WriteKind, now time.Time) Decision {
	if user == nil {
		return Decision{Allowed: true}
	}
	if user.Banned {
		return Decision{Reason: ReasonBanned}
	}
	if kind == WriteComment && IsMuted(user, now) {
		return Decision{Reason: ReasonMuted}
	}
	return Decision{Allowed: true, ShadowBanned: user.ShadowBanned}
}

func IsMuted(user *model.User, now time.Time) bool {
	return user.MutedUntil != nil && user.MutedUntil.After(now)
}

// WarningThresholdReached is informational only; nothing is enforced from it.
func WarningThresholdReached(count, threshold int) bool {
	return threshold > 0 && count >= threshold
}
