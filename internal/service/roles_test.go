package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backend/internal/model"
)

func TestResolveRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	role, err := h.roles.ResolveRole(ctx, mod)
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, role)

	role, err = h.roles.ResolveRole(ctx, model.Identity{SubjectID: "nobody", Provider: model.ProviderGoogle})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	h.addUser(mod, model.RoleUser)
	role, err = h.roles.ResolveRole(ctx, mod)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)
}

func TestResolveActorStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.getUserErr = errors.New("connection refused")

	_, err := h.roles.ResolveActor(context.Background(), alice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = h.comments.Create(context.Background(), alice, model.CreateCommentRequest{
		MediaType: "movie", MediaID: "1", Content: "hi",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestPageNormalize(t *testing.T) {
	p, err := Page{}.normalize()
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, Limit: 20}, p)
	assert.Equal(t, 0, p.offset())

	p, err = Page{Page: 3, Limit: 100}.normalize()
	require.NoError(t, err)
	assert.Equal(t, 200, p.offset())

	_, err = Page{Limit: -1}.normalize()
	assert.ErrorIs(t, err, ErrInvalidInput)
}
