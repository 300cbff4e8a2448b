package permits

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
	"github.com/keystone-admin/keystone/internal/revision"
)

// ErrExpiryBeforeIssue indicates the expiry date precedes the issue date.
var ErrExpiryBeforeIssue = errors.New("permits: expiry date precedes issue date")

type RepositoryPort interface {
	List(ctx context.Context) ([]Permit, error)
	Get(ctx context.Context, id string) (Permit, error)
	Create(ctx context.Context, p Permit) (Permit, error)
	Update(ctx context.Context, p Permit) (Permit, error)
	SetActive(ctx context.Context, id string, active bool) (Permit, error)
	Delete(ctx context.Context, id string) error
}

type RevisionLog interface {
	RecordCreate(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordDelete(ctx context.Context, entityType, entityID, actorID string) (revision.Revision, error)
	RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]revision.Revision, error)
}

type Input struct {
	NameEn     string    `json:"nameEn" validate:"required"`
	NameAr     string    `json:"nameAr" validate:"required"`
	Number     string    `json:"number"`
	IssueDate  time.Time `json:"issueDate" validate:"required"`
	ExpiryDate time.Time `json:"expiryDate" validate:"required"`
}

type Service struct {
	repo      RepositoryPort
	revisions RevisionLog
	eval      *authz.Evaluator
}

func NewService(repo RepositoryPort, revisions RevisionLog, eval *authz.Evaluator) *Service {
	return &Service{repo: repo, revisions: revisions, eval: eval}
}

func (s *Service) List(ctx context.Context) ([]Permit, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Permit, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor *authz.Actor, input Input) (Permit, error) {
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameAr = strings.TrimSpace(input.NameAr)
	if input.NameEn == "" || input.NameAr == "" {
		return Permit{}, httpx.ErrValidation
	}
	if input.ExpiryDate.Before(input.IssueDate) {
		return Permit{}, ErrExpiryBeforeIssue
	}
	created, err := s.repo.Create(ctx, Permit{
		ID:         uuid.NewString(),
		NameEn:     input.NameEn,
		NameAr:     input.NameAr,
		Number:     strings.TrimSpace(input.Number),
		IssueDate:  input.IssueDate,
		ExpiryDate: input.ExpiryDate,
		IsActive:   true,
	})
	if err != nil {
		return Permit{}, err
	}
	if _, err := s.revisions.RecordCreate(ctx, EntityType, created.ID, actorID(actor)); err != nil {
		return Permit{}, err
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor *authz.Actor, id string, input Input) (Permit, error) {
	if input.ExpiryDate.Before(input.IssueDate) {
		return Permit{}, ErrExpiryBeforeIssue
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Permit{}, err
	}
	updated, err := s.repo.Update(ctx, Permit{
		ID:         id,
		NameEn:     strings.TrimSpace(input.NameEn),
		NameAr:     strings.TrimSpace(input.NameAr),
		Number:     strings.TrimSpace(input.Number),
		IssueDate:  input.IssueDate,
		ExpiryDate: input.ExpiryDate,
		IsActive:   before.IsActive,
	})
	if err != nil {
		return Permit{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return Permit{}, err
	}
	return updated, nil
}

func (s *Service) ToggleActivity(ctx context.Context, actor *authz.Actor, id string, active bool) (Permit, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Permit{}, err
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Permit{}, err
	}
	if _, err := s.revisions.RecordEdits(ctx, EntityType, id, actorID(actor), before.auditFields(), updated.auditFields()); err != nil {
		return Permit{}, err
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
	if !s.eval.CanDelete(actor, authz.ModulePermits) {
		return authz.Denied(http.MethodPost, "/permits/bulk-delete",
			authz.Permission{Module: authz.ModulePermits, Action: authz.ActionDelete})
	}
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) BulkToggle(ctx context.Context, actor *authz.Actor, ids []string, active bool) error {
	if !s.eval.CanToggleActivity(actor, authz.ModulePermits) {
		return authz.Denied(http.MethodPost, "/permits/bulk-toggle",
			authz.Permission{Module: authz.ModulePermits, Action: authz.ActionToggleActivity})
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
