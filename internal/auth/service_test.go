package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/shared"
)

type stubRepo struct {
	users map[string]*User
	roles map[string]*authz.Role
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindRole(ctx context.Context, id string) (*authz.Role, error) {
	if r, ok := s.roles[id]; ok {
		return r, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error { return nil }

type memorySnapshots struct {
	actors map[string]*authz.Actor
	saves  int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{actors: make(map[string]*authz.Actor)}
}

func (m *memorySnapshots) Save(ctx context.Context, actor *authz.Actor) error {
	m.actors[actor.ID] = actor
	m.saves++
	return nil
}

func (m *memorySnapshots) Load(ctx context.Context, userID string) (*authz.Actor, error) {
	return m.actors[userID], nil
}

func (m *memorySnapshots) Invalidate(ctx context.Context, userID string) error {
	delete(m.actors, userID)
	return nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func testRepo(t *testing.T) *stubRepo {
	return &stubRepo{
		users: map[string]*User{
			"u1": {
				ID:           "u1",
				Email:        "admin@example.com",
				PasswordHash: hash(t, "secret"),
				IsActive:     true,
				RoleID:       "r1",
				Grants:       []string{"department-management:create"},
			},
			"u2": {
				ID:           "u2",
				Email:        "inactive@example.com",
				PasswordHash: hash(t, "secret"),
				IsActive:     false,
			},
		},
		roles: map[string]*authz.Role{
			"r1": {
				ID:          "r1",
				NameEn:      "Operators",
				IsActive:    true,
				Permissions: authz.NewPermissionSet("department-management:view"),
			},
		},
	}
}

func TestAuthenticateResolvesActor(t *testing.T) {
	snapshots := newMemorySnapshots()
	svc := NewService(testRepo(t), snapshots)

	actor, err := svc.Authenticate(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, actor.Role)
	assert.Equal(t, "Operators", actor.Role.NameEn)
	assert.True(t, actor.Grants.Has(authz.ModuleDepartments, authz.ActionCreate))
	assert.True(t, actor.Role.Permissions.Has(authz.ModuleDepartments, authz.ActionView))
	assert.Equal(t, 1, snapshots.saves)
}

func TestAuthenticateRejects(t *testing.T) {
	svc := NewService(testRepo(t), newMemorySnapshots())
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "inactive@example.com", "secret")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost@example.com", "secret")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveActorUsesSnapshot(t *testing.T) {
	repo := testRepo(t)
	snapshots := newMemorySnapshots()
	svc := NewService(repo, snapshots)
	ctx := context.Background()

	first, err := svc.ResolveActor(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, snapshots.saves)

	// Second resolve must come from the cache, not re-resolve.
	second, err := svc.ResolveActor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, snapshots.saves)
}

func TestResolveActorUnknownUser(t *testing.T) {
	svc := NewService(testRepo(t), newMemorySnapshots())
	actor, err := svc.ResolveActor(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, actor)
}

func TestRefreshActorPicksUpGrantChanges(t *testing.T) {
	repo := testRepo(t)
	snapshots := newMemorySnapshots()
	svc := NewService(repo, snapshots)
	ctx := context.Background()

	_, err := svc.ResolveActor(ctx, "u1")
	require.NoError(t, err)

	repo.users["u1"].Grants = append(repo.users["u1"].Grants, "role-management:view")

	refreshed, err := svc.RefreshActor(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, refreshed.Grants.Has(authz.ModuleRoles, authz.ActionView))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	now := time.Now()

	token, err := issuer.Issue("u1", now)
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestTokenRejectsTampered(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)

	token, err := other.Issue("u1", time.Now())
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	token, err := issuer.Issue("u1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
