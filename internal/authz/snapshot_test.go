package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshotStore(client, time.Hour)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	actor := &Actor{
		ID:     "u1",
		Email:  "admin@example.com",
		Role:   &Role{ID: "r1", NameEn: "Admin", Permissions: NewPermissionSet("user-management:view")},
		Grants: NewPermissionSet("department-management:create"),
	}
	require.NoError(t, store.Save(ctx, actor))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, actor.Email, loaded.Email)
	assert.True(t, loaded.Grants.Has(ModuleDepartments, ActionCreate))
	assert.True(t, loaded.Role.Permissions.Has(ModuleUsers, ActionView))
}

func TestSnapshotLoadMissing(t *testing.T) {
	store := newTestStore(t)
	loaded, err := store.Load(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSnapshotInvalidateIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Actor{ID: "u1"}))
	require.NoError(t, store.Invalidate(ctx, "u1"))
	// Second and third attempts must be no-ops, not errors.
	require.NoError(t, store.Invalidate(ctx, "u1"))
	require.NoError(t, store.Invalidate(ctx, "u1"))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
