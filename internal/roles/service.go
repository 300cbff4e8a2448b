package roles

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/revision"
)

// ErrUnknownPermission indicates a permission id outside the catalog.
var ErrUnknownPermission = errors.New("roles: unknown permission")

type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id string) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	SetActive(ctx context.Context, id string, active bool) (Role, error)
	Delete(ctx context.Context, id string) error
	MemberIDs(ctx context.Context, roleID string) ([]string, error)
}

type RevisionLog interface {
	RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error)
}

// Snapshots invalidates cached actor snapshots so role edits take effect on
// the members' next request.
type Snapshots interface {
	Invalidate(ctx context.Context, userID string) error
}

type Input struct {
	NameEn        string   `json:"nameEn" validate:"required"`
	NameAr        string   `json:"nameAr" validate:"required"`
	DescriptionEn string   `json:"descriptionEn"`
	DescriptionAr string   `json:"descriptionAr"`
	IsSuperAdmin  bool     `json:"isSuperAdmin"`
	Permissions   []string `json:"permissions"`
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

func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Role, error) {
	return s.repo.Get(ctx, id)
}

// Catalog exposes the permission catalog for the role editor. The client
// renders assignable permissions from this list, never from a hardcoded copy.
func (s *Service) Catalog() *authz.Catalog {
	return s.catalog
}

func (s *Service) Create(ctx context.Context, actor *authz.Actor, input Input) (Role, error) {
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameAr = strings.TrimSpace(input.NameAr)
	if input.NameEn == "" || input.NameAr == "" {
		return Role{}, httpx.ErrValidation
	}
	permissions, err := s.normalizePermissions(input.Permissions)
	if err != nil {
		return Role{}, err
	}
	created, err := s.repo.Create(ctx, Role{
		ID:            uuid.NewString(),
		NameEn:        input.NameEn,
		NameAr:        input.NameAr,
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionAr: strings.TrimSpace(input.DescriptionAr),
		IsActive:      true,
		IsSuperAdmin:  input.IsSuperAdmin,
		Permissions:   permissions,
	})
	if err != nil {
		return Role{}, err
	}
	if _, err := s.revisions.RecordCreate(ctx, EntityType, created.ID, actorID(actor)); err != nil {
		return Role{}, err
	}
	return created, nil
}

// Update rewrites a role and drops the cached snapshots of its members so the
// new permission set applies on their next request.
func (s *Service) Update(ctx context.Context, actor *authz.Actor, id string, input Input) (Role, error) {
	permissions, err := s.normalizePermissions(input.Permissions)
	if err != nil {
		return Role{}, err
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	updated, err := s.repo.Update(ctx, Role{
		ID:            id,
		NameEn:        strings.TrimSpace(input.NameEn),
		NameAr:        strings.TrimSpace(input.NameAr),
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionAr: strings.TrimSpace(input.DescriptionAr),
		IsActive:      before.IsActive,
		IsSuperAdmin:  input.IsSuperAdmin,
		Permissions:   permissions,
	})
	if err != nil {
		return Role{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return Role{}, err
	}
	return updated, s.invalidateMembers(ctx, id)
}

func (s *Service) ToggleActivity(ctx context.Context, actor *authz.Actor, id string, active bool) (Role, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Role{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return Role{}, err
	}
	return updated, s.invalidateMembers(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	members, err := s.repo.MemberIDs(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if _, err := s.revisions.RecordDelete(ctx, EntityType, id, actorID(actor)); err != nil {
		return err
	}
	for _, userID := range members {
		if err := s.snapshots.Invalidate(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) BulkDelete(ctx context.Context, actor *authz.Actor, ids []string) error {
	if !s.eval.CanDelete(actor, authz.ModuleRoles) {
		return authz.Denied(http.MethodPost, "/roles/bulk-delete",
			authz.Permission{Module: authz.ModuleRoles, Action: authz.ActionDelete})
	}
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) BulkToggle(ctx context.Context, actor *authz.Actor, ids []string, active bool) error {
	if !s.eval.CanToggleActivity(actor, authz.ModuleRoles) {
		return authz.Denied(http.MethodPost, "/roles/bulk-toggle",
			authz.Permission{Module: authz.ModuleRoles, Action: authz.ActionToggleActivity})
	}
	for _, id := range ids {
		if _, err := s.ToggleActivity(ctx, actor, id, active); err != nil {
			return err
		}
	}
	return nil
}

// normalizePermissions validates every id against the catalog and returns the
// sorted, de-duplicated set. An id for an unregistered permission is rejected
// outright rather than silently dropped.
func (s *Service) normalizePermissions(ids []string) ([]string, error) {
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

func (s *Service) invalidateMembers(ctx context.Context, roleID string) error {
	members, err := s.repo.MemberIDs(ctx, roleID)
	if err != nil {
		return err
	}
	for _, userID := range members {
		if err := s.snapshots.Invalidate(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

func actorID(actor *authz.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
