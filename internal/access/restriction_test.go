package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/backend/internal/model"
)

func TestCheckCanAct(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		user model.User
		kind WriteKind
		want Decision
	}{
		{"clean-user-comments", model.User{Role: model.RoleUser}, WriteComment, Decision{Allowed: true}},
		{"banned-comment", model.User{Banned: true}, WriteComment, Decision{Reason: ReasonBanned}},
		{"banned-super-admin-comment", model.User{Role: model.RoleSuperAdmin, Banned: true}, WriteComment, Decision{Reason: ReasonBanned}},
		{"banned-vote", model.User{Banned: true}, WriteVote, Decision{Reason: ReasonBanned}},
		{"banned-report", model.User{Banned: true}, WriteReport, Decision{Reason: ReasonBanned}},
		{"banned-edit", model.User{Banned: true}, WriteEdit, Decision{Reason: ReasonBanned}},
		{"banned-delete", model.User{Banned: true}, WriteDelete, Decision{Reason: ReasonBanned}},
		{"banned-and-muted-reports-banned", model.User{Banned: true, MutedUntil: &future}, WriteComment, Decision{Reason: ReasonBanned}},
		{"muted-comment", model.User{MutedUntil: &future}, WriteComment, Decision{Reason: ReasonMuted}},
		{"muted-vote", model.User{MutedUntil: &future}, WriteVote, Decision{Allowed: true}},
		{"muted-report", model.User{MutedUntil: &future}, WriteReport, Decision{Allowed: true}},
		{"muted-edit", model.User{MutedUntil: &future}, WriteEdit, Decision{Allowed: true}},
		{"muted-delete", model.User{MutedUntil: &future}, WriteDelete, Decision{Allowed: true}},
		{"mute-expired", model.User{MutedUntil: &past}, WriteComment, Decision{Allowed: true}},
		{"mute-ends-now", model.User{MutedUntil: &now}, WriteComment, Decision{Allowed: true}},
		{"shadow-banned", model.User{ShadowBanned: true}, WriteComment, Decision{Allowed: true, ShadowBanned: true}},
		{"warnings-do-not-block", model.User{WarningCount: 99}, WriteComment, Decision{Allowed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := tt.user
			got := CheckCanAct(&user, tt.kind, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckCanActNilUser(t *testing.T) {
	assert.True(t, CheckCanAct(nil, WriteComment, time.Now()).Allowed)
}

func TestDecisionErr(t *testing.T) {
	require.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Reason: ReasonMuted}.Err()
	var rerr *RestrictionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "muted", rerr.Reason)
	assert.Equal(t, "muted", err.Error())
}

func TestWarningThresholdReached(t *testing.T) {
	assert.False(t, WarningThresholdReached(2, 3))
	assert.True(t, WarningThresholdReached(3, 3))
	assert.False(t, WarningThresholdReached(10, 0))
}
