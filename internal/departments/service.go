package departments

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/revision"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	List(ctx context.Context) ([]Department, error)
	Get(ctx context.Context, id string) (Department, error)
	Create(ctx context.Context, d Department) (Department, error)
	Update(ctx context.Context, d Department) (Department, error)
	SetActive(ctx context.Context, id string, active bool) (Department, error)
	Delete(ctx context.Context, id string) error
}

// RevisionLog records committed mutations in the audit history.
type RevisionLog interface {
	RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error)
}

// Input carries the writable department fields.
type Input struct {
	NameEn        string `json:"nameEn" validate:"required"`
	NameAr        string `json:"nameAr" validate:"required"`
	DescriptionEn string `json:"descriptionEn"`
	DescriptionAr string `json:"descriptionAr"`
}

// Service handles department business logic. Single-entity mutations are
// gated at the boundary; bulk operations re-apply the single-entity check here
// so a denied actor mutates nothing.
type Service struct {
	repo      RepositoryPort
	revisions RevisionLog
	eval      *authz.Evaluator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, revisions RevisionLog, eval *authz.Evaluator) *Service {
	return &Service{repo: repo, revisions: revisions, eval: eval}
}

// List returns all departments.
func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.repo.List(ctx)
}

// Get returns one department.
func (s *Service) Get(ctx context.Context, id string) (Department, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a department and records the create revision.
func (s *Service) Create(ctx context.Context, actor *authz.Actor, input Input) (Department, error) {
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameAr = strings.TrimSpace(input.NameAr)
	if input.NameEn == "" || input.NameAr == "" {
		return Department{}, httpx.ErrValidation
	}
	created, err := s.repo.Create(ctx, Department{
		ID:            uuid.NewString(),
		NameEn:        input.NameEn,
		NameAr:        input.NameAr,
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionAr: strings.TrimSpace(input.DescriptionAr),
		IsActive:      true,
	})
	if err != nil {
		return Department{}, err
	}
	if _, err := s.revisions.RecordCreate(ctx, EntityType, created.ID, actorID(actor)); err != nil {
		return Department{}, err
	}
	return created, nil
}

// Update rewrites a department and records one edit revision per changed field.
func (s *Service) Update(ctx context.Context, actor *authz.Actor, id string, input Input) (Department, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}
	updated, err := s.repo.Update(ctx, Department{
		ID:            id,
		NameEn:        strings.TrimSpace(input.NameEn),
		NameAr:        strings.TrimSpace(input.NameAr),
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionAr: strings.TrimSpace(input.DescriptionAr),
		IsActive:      before.IsActive,
	})
	if err != nil {
		return Department{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return Department{}, err
	}
	return updated, nil
}

// ToggleActivity flips the activity flag and records the change.
func (s *Service) ToggleActivity(ctx context.Context, actor *authz.Actor, id string, active bool) (Department, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Department{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return Department{}, err
	}
	return updated, nil
}

// Delete removes a department and records the delete revision.
func (s *Service) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_, err := s.revisions.RecordDelete(ctx, EntityType, id, actorID(actor))
	return err
}

// BulkDelete removes the whole selection, or nothing at all. A bulk action is
// the single-entity permission applied pairwise, not a distinct permission.
func (s *Service) BulkDelete(ctx context.Context, actor *authz.Actor, ids []string) error {
	if !s.eval.CanDelete(actor, authz.ModuleDepartments) {
		return authz.Denied(http.MethodPost, "/departments/bulk-delete",
			authz.Permission{Module: authz.ModuleDepartments, Action: authz.ActionDelete})
	}
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			return err
		}
	}
	return nil
}

// BulkToggle applies one activity state to the whole selection after a single
// authorization check.
func (s *Service) BulkToggle(ctx context.Context, actor *authz.Actor, ids []string, active bool) error {
	if !s.eval.CanToggleActivity(actor, authz.ModuleDepartments) {
		return authz.Denied(http.MethodPost, "/departments/bulk-toggle",
			authz.Permission{Module: authz.ModuleDepartments, Action: authz.ActionToggleActivity})
	}
	for _, id := range ids {
		if _, err := s.ToggleActivity(ctx, actor, id, active); err != nil {
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
