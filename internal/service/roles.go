package service

import (
	"context"
	"fmt"

	"github.com/threadline/backend/internal/db"
	"github.com/threadline/backend/internal/model"
)

type userReader interface {
	GetUser(ctx context.Context, id model.Identity) (*model.User, error)
}

// RoleResolver reads the live user record on every call. Nothing is cached, so role
// and restriction changes apply to the very next request.
type RoleResolver struct {
	users userReader
}

func NewRoleResolver(users userReader) *RoleResolver {
	return &RoleResolver{users: users}
}

// ResolveRole returns RoleUser for identities without a record.
func (r *RoleResolver) ResolveRole(ctx context.Context, id model.Identity) (model.Role, error) {
	user, err := r.ResolveActor(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// ResolveActor returns the stored record, or an unrestricted default user record
// for identities that were never persisted.
func (r *RoleResolver) ResolveActor(ctx context.Context, id model.Identity) (*model.User, error) {
	user, err := r.users.GetUser(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return model.DefaultUser(id), nil
		}
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return user, nil
}
