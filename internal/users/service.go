package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/revision"
)

var (
	// ErrUnknownPermission indicates a direct grant outside the catalog.
	ErrUnknownPermission = errors.New("users: unknown permission")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("users: password too short")
)

const minPasswordLength = 8

type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	SetPassword(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) (User, error)
	Delete(ctx context.Context, id string) error
}

type RevisionLog interface {
	RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error)
}

// Snapshots drops a user's cached actor snapshot so permission edits apply on
// their next request.
type Snapshots interface {
	Invalidate(ctx context.Context, userID string) error
}

type Input struct {
	Email         string   `json:"email" validate:"required,email"`
	NameEn        string   `json:"nameEn" validate:"required"`
	NameAr        string   `json:"nameAr" validate:"required"`
	Password      string   `json:"password,omitempty"`
	RoleID        string   `json:"roleId"`
	Grants        []string `json:"grants"`
	HasFullAccess bool     `json:"hasFullAccess"`
	Locale        string   `json:"locale" validate:"omitempty,oneof=en ar"`
}

type Service struct {
	repo      RepositoryPort
	revisions RevisionLog
	snapshots Snapshots
	catalog   *authz.Catalog
	eval      *authz.Evaluator
}

func NewService(repo RepositoryPort, revisions RevisionLog, snapshots Snapshots, catalog *authz.Catalog, eval *authz.Evaluator) *Service {
	return &Service{repo: repo, revisions: revisions, snapshots: snapshots, catalog: catalog, eval: eval}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor *authz.Actor, input Input) (User, error) {
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameAr = strings.TrimSpace(input.NameAr)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.NameEn == "" || input.NameAr == "" || input.Email == "" {
		return User{}, httpx.ErrValidation
	}
	if len(input.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	grants, err := s.normalizeGrants(input.Grants)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	locale := input.Locale
	if locale == "" {
		locale = "en"
	}
	created, err := s.repo.Create(ctx, User{
		ID:            uuid.NewString(),
		Email:         input.Email,
		PasswordHash:  string(hash),
		NameEn:        input.NameEn,
		NameAr:        input.NameAr,
		IsActive:      true,
		RoleID:        input.RoleID,
		Grants:        grants,
		HasFullAccess: input.HasFullAccess,
		Locale:        locale,
	})
	if err != nil {
		return User{}, err
	}
	if _, err := s.revisions.RecordCreate(ctx, EntityType, created.ID, actorID(actor)); err != nil {
		return User{}, err
	}
	return created, nil
}

// Update rewrites the account and drops its cached snapshot; a permission or
// role change must take effect on the member's next request, not at next
// login.
func (s *Service) Update(ctx context.Context, actor *authz.Actor, id string, input Input) (User, error) {
	grants, err := s.normalizeGrants(input.Grants)
	if err != nil {
		return User{}, err
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	locale := input.Locale
	if locale == "" {
		locale = before.Locale
	}
	updated, err := s.repo.Update(ctx, User{
		ID:            id,
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		NameEn:        strings.TrimSpace(input.NameEn),
		NameAr:        strings.TrimSpace(input.NameAr),
		IsActive:      before.IsActive,
		RoleID:        input.RoleID,
		Grants:        grants,
		HasFullAccess: input.HasFullAccess,
		Locale:        locale,
	})
	if err != nil {
		return User{}, err
	}
	// Re-read for the joined role name before diffing.
	updated, err = s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return User{}, err
	}
	return updated, s.snapshots.Invalidate(ctx, id)
}

// ResetPassword replaces the password hash. Not tracked in the revision
// history; credentials never appear in the audit trail.
func (s *Service) ResetPassword(ctx context.Context, id, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, string(hash)); err != nil {
		return err
	}
	return s.snapshots.Invalidate(ctx, id)
}

// ToggleActivity flips the account state. Deactivation drops the snapshot so
// the account loses access immediately.
func (s *Service) ToggleActivity(ctx context.Context, actor *authz.Actor, id string, active bool) (User, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return User{}, err
	}
	return updated, s.snapshots.Invalidate(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if _, err := s.revisions.RecordDelete(ctx, EntityType, id, actorID(actor)); err != nil {
		return err
	}
	return s.snapshots.Invalidate(ctx, id)
}

func (s *Service) BulkDelete(ctx context.Context, actor *authz.Actor, ids []string) error {
	if !s.eval.CanDelete(actor, authz.ModuleUsers) {
		return authz.Denied(http.MethodPost, "/users/bulk-delete",
			authz.Permission{Module: authz.ModuleUsers, Action: authz.ActionDelete})
	}
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) BulkToggle(ctx context.Context, actor *authz.Actor, ids []string, active bool) error {
	if !s.eval.CanToggleActivity(actor, authz.ModuleUsers) {
		return authz.Denied(http.MethodPost, "/users/bulk-toggle",
			authz.Permission{Module: authz.ModuleUsers, Action: authz.ActionToggleActivity})
	}
	for _, id := range ids {
		if _, err := s.ToggleActivity(ctx, actor, id, active); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) normalizeGrants(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		p, ok := authz.ParsePermission(id)
		if !ok || !s.catalog.Contains(p) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, id)
		}
		normalized := p.ID()
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out, nil
}

func actorID(actor *authz.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
