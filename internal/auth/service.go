package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/shared"
)

// RepositoryPort defines the data access auth depends on.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindRole(ctx context.Context, id string) (*authz.Role, error)
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Snapshots caches resolved actors between requests.
type Snapshots interface {
	Save(ctx context.Context, actor *authz.Actor) error
	Load(ctx context.Context, userID string) (*authz.Actor, error)
	Invalidate(ctx context.Context, userID string) error
}

// Service wraps authentication business rules and actor resolution. The actor
// snapshot is refreshed on login and on explicit refresh, never pushed.
type Service struct {
	repo      RepositoryPort
	snapshots Snapshots
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, snapshots Snapshots) *Service {
	return &Service{repo: repo, snapshots: snapshots}
}

// Authenticate validates email/password credentials and returns the resolved
// actor on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*authz.Actor, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return s.refresh(ctx, user)
}

// ResolveActor returns the actor for a user id, from the snapshot cache when
// present, loading and caching otherwise. Unknown users resolve to nil.
func (s *Service) ResolveActor(ctx context.Context, userID string) (*authz.Actor, error) {
	if userID == "" {
		return nil, nil
	}
	if s.snapshots != nil {
		if actor, err := s.snapshots.Load(ctx, userID); err == nil && actor != nil {
			return actor, nil
		}
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.refresh(ctx, user)
}

// RefreshActor rebuilds the snapshot from storage, picking up permission
// changes without waiting for the cache to expire.
func (s *Service) RefreshActor(ctx context.Context, userID string) (*authz.Actor, error) {
	if s.snapshots != nil {
		_ = s.snapshots.Invalidate(ctx, userID)
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, user)
}

// Invalidate tears down the cached actor. Safe to call repeatedly; used by the
// request gate when the backend reports an expired session.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Invalidate(ctx, userID)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// refresh normalizes the stored user into an actor and caches it. The role is
// resolved here, once, so call sites never branch on a bare role id.
func (s *Service) refresh(ctx context.Context, user *User) (*authz.Actor, error) {
	actor := &authz.Actor{
		ID:            user.ID,
		Email:         user.Email,
		NameEn:        user.NameEn,
		NameAr:        user.NameAr,
		Grants:        authz.NewPermissionSet(user.Grants...),
		HasFullAccess: user.HasFullAccess,
		Locale:        user.Locale,
	}
	if user.RoleID != "" {
		role, err := s.repo.FindRole(ctx, user.RoleID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		actor.Role = role
	}
	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, actor); err != nil {
			return nil, err
		}
	}
	return actor, nil
}
