package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/revision"
	"github.com/keystone-admin/keystone/internal/shared"
)

type memoryRepo struct {
	roles   map[string]Role
	members map[string][]string
}

func newMemoryRepo(seed ...Role) *memoryRepo {
	repo := &memoryRepo{roles: make(map[string]Role), members: make(map[string][]string)}
	for _, r := range seed {
		repo.roles[r.ID] = r
	}
	return repo
}

func (m *memoryRepo) List(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) Create(ctx context.Context, role Role) (Role, error) {
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) Update(ctx context.Context, role Role) (Role, error) {
	if _, ok := m.roles[role.ID]; !ok {
		return Role{}, shared.ErrNotFound
	}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) SetActive(ctx context.Context, id string, active bool) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	r.IsActive = active
	m.roles[id] = r
	return r, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memoryRepo) MemberIDs(ctx context.Context, roleID string) ([]string, error) {
	return m.members[roleID], nil
}

type noopRevisions struct{}

func (noopRevisions) RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error) {
	return revision.Revision{}, nil
}

func (noopRevisions) RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error) {
	return revision.Revision{}, nil
}

func (noopRevisions) RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error) {
	return nil, nil
}

type memorySnapshots struct {
	invalidated []string
}

func (m *memorySnapshots) Invalidate(ctx context.Context, userID string) error {
	m.invalidated = append(m.invalidated, userID)
	return nil
}

func newTestService(repo *memoryRepo, snapshots *memorySnapshots) *Service {
	catalog := authz.NewCatalog()
	return NewService(repo, noopRevisions{}, snapshots, catalog, authz.NewEvaluator(catalog))
}

func admin() *authz.Actor {
	return &authz.Actor{ID: "admin", HasFullAccess: true}
}

func TestCreateNormalizesPermissions(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &memorySnapshots{})

	created, err := svc.Create(context.Background(), admin(), Input{
		NameEn: "Editor",
		NameAr: "محرر",
		Permissions: []string{
			"permit-management:view",
			"department-management:view",
			"department-management:view", // duplicate collapses
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"department-management:view", "permit-management:view"}, created.Permissions)
	assert.True(t, created.IsActive)
}

func TestCreateRejectsUnknownPermission(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &memorySnapshots{})

	_, err := svc.Create(context.Background(), admin(), Input{
		NameEn:      "Editor",
		NameAr:      "محرر",
		Permissions: []string{"billing:approve"},
	})
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestUpdateInvalidatesMemberSnapshots(t *testing.T) {
	repo := newMemoryRepo(Role{ID: "r1", NameEn: "Viewer", NameAr: "مشاهد", IsActive: true})
	repo.members["r1"] = []string{"u1", "u2"}
	snapshots := &memorySnapshots{}
	svc := newTestService(repo, snapshots)

	_, err := svc.Update(context.Background(), admin(), "r1", Input{
		NameEn:      "Viewer",
		NameAr:      "مشاهد",
		Permissions: []string{"department-management:view"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, snapshots.invalidated)
}

func TestDeleteInvalidatesMembersBeforeRemoval(t *testing.T) {
	repo := newMemoryRepo(Role{ID: "r1", NameEn: "Viewer", NameAr: "مشاهد"})
	repo.members["r1"] = []string{"u1"}
	snapshots := &memorySnapshots{}
	svc := newTestService(repo, snapshots)

	require.NoError(t, svc.Delete(context.Background(), admin(), "r1"))
	assert.Empty(t, repo.roles)
	assert.Equal(t, []string{"u1"}, snapshots.invalidated)
}

func TestResolvedGroupsPermissions(t *testing.T) {
	role := Role{
		ID:           "r1",
		IsSuperAdmin: false,
		Permissions:  []string{"department-management:view", "department-management:update"},
	}
	resolved := role.Resolved()
	assert.True(t, resolved.Permissions.Has(authz.ModuleDepartments, authz.ActionView))
	assert.True(t, resolved.Permissions.Has(authz.ModuleDepartments, authz.ActionUpdate))
	assert.False(t, resolved.Permissions.Has(authz.ModuleDepartments, authz.ActionDelete))
}

func TestBulkToggleDeniedWithoutPermission(t *testing.T) {
	repo := newMemoryRepo(Role{ID: "r1", IsActive: true})
	svc := newTestService(repo, &memorySnapshots{})
	viewer := &authz.Actor{ID: "v", Grants: authz.NewPermissionSet("role-management:view")}

	err := svc.BulkToggle(context.Background(), viewer, []string{"r1"}, false)
	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.True(t, repo.roles["r1"].IsActive)
}
