package jobtitles

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/revision"
)

type RepositoryPort interface {
	List(ctx context.Context) ([]JobTitle, error)
	Get(ctx context.Context, id string) (JobTitle, error)
	Create(ctx context.Context, j JobTitle) (JobTitle, error)
	Update(ctx context.Context, j JobTitle) (JobTitle, error)
	SetActive(ctx context.Context, id string, active bool) (JobTitle, error)
	Delete(ctx context.Context, id string) error
}

type RevisionLog interface {
	RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error)
}

type Input struct {
	NameEn        string `json:"nameEn" validate:"required"`
	NameAr        string `json:"nameAr" validate:"required"`
	DescriptionEn string `json:"descriptionEn"`
	DescriptionAr string `json:"descriptionAr"`
}

type Service struct {
	repo      RepositoryPort
	revisions RevisionLog
	eval      *authz.Evaluator
}

func NewService(repo RepositoryPort, revisions RevisionLog, eval *authz.Evaluator) *Service {
	return &Service{repo: repo, revisions: revisions, eval: eval}
}

func (s *Service) List(ctx context.Context) ([]JobTitle, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (JobTitle, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor *authz.Actor, input Input) (JobTitle, error) {
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameAr = strings.TrimSpace(input.NameAr)
	if input.NameEn == "" || input.NameAr == "" {
		return JobTitle{}, httpx.ErrValidation
	}
	created, err := s.repo.Create(ctx, JobTitle{
		ID:            uuid.NewString(),
		NameEn:        input.NameEn,
		NameAr:        input.NameAr,
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionAr: strings.TrimSpace(input.DescriptionAr),
		IsActive:      true,
	})
	if err != nil {
		return JobTitle{}, err
	}
	if _, err := s.revisions.RecordCreate(ctx, EntityType, created.ID, actorID(actor)); err != nil {
		return JobTitle{}, err
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor *authz.Actor, id string, input Input) (JobTitle, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobTitle{}, err
	}
	updated, err := s.repo.Update(ctx, JobTitle{
		ID:            id,
		NameEn:        strings.TrimSpace(input.NameEn),
		NameAr:        strings.TrimSpace(input.NameAr),
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionAr: strings.TrimSpace(input.DescriptionAr),
		IsActive:      before.IsActive,
	})
	if err != nil {
		return JobTitle{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return JobTitle{}, err
	}
	return updated, nil
}

func (s *Service) ToggleActivity(ctx context.Context, actor *authz.Actor, id string, active bool) (JobTitle, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobTitle{}, err
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return JobTitle{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return JobTitle{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_, err := s.revisions.RecordDelete(ctx, EntityType, id, actorID(actor))
	return err
}

func (s *Service) BulkDelete(ctx context.Context, actor *authz.Actor, ids []string) error {
	if !s.eval.CanDelete(actor, authz.ModuleJobTitles) {
		return authz.Denied(http.MethodPost, "/job-titles/bulk-delete",
			authz.Permission{Module: authz.ModuleJobTitles, Action: authz.ActionDelete})
	}
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) BulkToggle(ctx context.Context, actor *authz.Actor, ids []string, active bool) error {
	if !s.eval.CanToggleActivity(actor, authz.ModuleJobTitles) {
		return authz.Denied(http.MethodPost, "/job-titles/bulk-toggle",
			authz.Permission{Module: authz.ModuleJobTitles, Action: authz.ActionToggleActivity})
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
