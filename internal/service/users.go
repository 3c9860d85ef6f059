package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadline/backend/internal/access"
	"github.com/threadline/backend/internal/model"
)

type UserService struct {
	users     UserStore
	roles     *RoleResolver
	threshold int
}

func NewUserService(users UserStore, roles *RoleResolver, warningThreshold int) *UserService {
	return &UserService{users: users, roles: roles, threshold: warningThreshold}
}

// Stats returns activity counters for target. Reading your own stats needs only the
// user floor; anyone else's needs view_stats.
func (s *UserService) Stats(ctx context.Context, actor model.Identity, providerRaw, subjectID string) (*model.UserStats, error) {
	provider, err := model.ParseProvider(providerRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, invalid("subject_id is required")
	}
	target := model.Identity{SubjectID: subjectID, Provider: provider}

	role, err := s.roles.ResolveRole(ctx, actor)
	if err != nil {
		return nil, err
	}
	action := access.ForTarget(access.ActionReadOwnStats, access.ActionViewStats, actor, target)
	if err := gate(role, action); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, target)
	if err != nil {
		return nil, mapStoreErr(err, "user")
	}
	stats, err := s.users.GetUserStats(ctx, target)
	if err != nil {
		return nil, err
	}
	stats.Identity = target
	stats.Username = user.Username
	stats.WarningCount = user.WarningCount
	stats.WarningThresholdReached = access.WarningThresholdReached(user.WarningCount, s.threshold)
	return &stats, nil
}
