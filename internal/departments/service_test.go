package departments

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
	departments map[string]Department
}

func newMemoryRepo(seed ...Department) *memoryRepo {
	repo := &memoryRepo{departments: make(map[string]Department)}
	for _, d := range seed {
		repo.departments[d.ID] = d
	}
	return repo
}

func (m *memoryRepo) List(ctx context.Context) ([]Department, error) {
	var out []Department
	for _, d := range m.departments {
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return Department{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *memoryRepo) Create(ctx context.Context, d Department) (Department, error) {
	m.departments[d.ID] = d
	return d, nil
}

func (m *memoryRepo) Update(ctx context.Context, d Department) (Department, error) {
	if _, ok := m.departments[d.ID]; !ok {
		return Department{}, shared.ErrNotFound
	}
	m.departments[d.ID] = d
	return d, nil
}

func (m *memoryRepo) SetActive(ctx context.Context, id string, active bool) (Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return Department{}, shared.ErrNotFound
	}
	d.IsActive = active
	m.departments[id] = d
	return d, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.departments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.departments, id)
	return nil
}

type recordedEdit struct {
	entityID      string
	before, after map[string]any
}

type memoryRevisions struct {
	creates []string
	deletes []string
	edits   []recordedEdit
}

func (m *memoryRevisions) RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error) {
	m.creates = append(m.creates, entityID)
	return revision.Revision{EntityType: entityType, EntityID: entityID, Op: revision.OpCreate}, nil
}

func (m *memoryRevisions) RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error) {
	m.deletes = append(m.deletes, entityID)
	return revision.Revision{EntityType: entityType, EntityID: entityID, Op: revision.OpDelete}, nil
}

func (m *memoryRevisions) RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error) {
	m.edits = append(m.edits, recordedEdit{entityID: entityID, before: before, after: after})
	return nil, nil
}

func adminActor() *authz.Actor {
	return &authz.Actor{ID: "admin", HasFullAccess: true}
}

func viewerActor() *authz.Actor {
	return &authz.Actor{
		ID:     "viewer",
		Grants: authz.NewPermissionSet("department-management:view"),
	}
}

func newTestService(repo *memoryRepo, revisions *memoryRevisions) *Service {
	return NewService(repo, revisions, authz.NewEvaluator(authz.NewCatalog()))
}

func TestCreateRecordsRevision(t *testing.T) {
	repo := newMemoryRepo()
	revisions := &memoryRevisions{}
	svc := newTestService(repo, revisions)

	created, err := svc.Create(context.Background(), adminActor(), Input{NameEn: "Operations", NameAr: "العمليات"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{created.ID}, revisions.creates)
}

func TestCreateRejectsBlankNames(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &memoryRevisions{})
	_, err := svc.Create(context.Background(), adminActor(), Input{NameEn: "  ", NameAr: "العمليات"})
	assert.Error(t, err)
}

func TestUpdateRecordsFieldDiff(t *testing.T) {
	repo := newMemoryRepo(Department{ID: "d1", NameEn: "Ops", NameAr: "العمليات", IsActive: true})
	revisions := &memoryRevisions{}
	svc := newTestService(repo, revisions)

	_, err := svc.Update(context.Background(), adminActor(), "d1", Input{NameEn: "Operations", NameAr: "العمليات"})
	require.NoError(t, err)
	require.Len(t, revisions.edits, 1)
	assert.Equal(t, "Ops", revisions.edits[0].before["nameEn"])
	assert.Equal(t, "Operations", revisions.edits[0].after["nameEn"])
	// Activity is not writable through Update.
	assert.Equal(t, true, revisions.edits[0].after["isActive"])
}

func TestToggleActivityRecordsChange(t *testing.T) {
	repo := newMemoryRepo(Department{ID: "d1", NameEn: "Ops", NameAr: "العمليات", IsActive: true})
	revisions := &memoryRevisions{}
	svc := newTestService(repo, revisions)

	updated, err := svc.ToggleActivity(context.Background(), adminActor(), "d1", false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	require.Len(t, revisions.edits, 1)
	assert.Equal(t, true, revisions.edits[0].before["isActive"])
	assert.Equal(t, false, revisions.edits[0].after["isActive"])
}

func TestBulkDeleteAllOrNothing(t *testing.T) {
	seed := []Department{
		{ID: "d1"}, {ID: "d2"}, {ID: "d3"}, {ID: "d4"}, {ID: "d5"},
	}
	repo := newMemoryRepo(seed...)
	revisions := &memoryRevisions{}
	svc := newTestService(repo, revisions)
	ids := []string{"d1", "d2", "d3", "d4", "d5"}

	err := svc.BulkDelete(context.Background(), viewerActor(), ids)
	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "department-management:delete", denied.Permission.ID())
	// Nothing was deleted and nothing was recorded.
	assert.Len(t, repo.departments, 5)
	assert.Empty(t, revisions.deletes)

	require.NoError(t, svc.BulkDelete(context.Background(), adminActor(), ids))
	assert.Empty(t, repo.departments)
	assert.Len(t, revisions.deletes, 5)
}

func TestBulkToggleDeniedForViewer(t *testing.T) {
	repo := newMemoryRepo(Department{ID: "d1", IsActive: true})
	revisions := &memoryRevisions{}
	svc := newTestService(repo, revisions)

	err := svc.BulkToggle(context.Background(), viewerActor(), []string{"d1"}, false)
	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.True(t, repo.departments["d1"].IsActive)
}

func TestBulkDeniedWithoutActor(t *testing.T) {
	svc := newTestService(newMemoryRepo(Department{ID: "d1"}), &memoryRevisions{})
	err := svc.BulkDelete(context.Background(), nil, []string{"d1"})
	assert.Error(t, err)
}
