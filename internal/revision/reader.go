package revision

import (
	"context"
	"fmt"
)

// PagingInfo carries pagination metadata for timeline pages.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// TimelineResult is one page of the filtered timeline.
type TimelineResult struct {
	Rows   []Revision
	Paging PagingInfo
}

// Reader exposes the ordered revision history. Results are always ordered
// oldest to newest; consumers must not re-sort, since they format previous
// versus current per row. Reads are idempotent and side-effect free.
type Reader struct {
	repo Repository
}

// NewReader constructs a Reader.
func NewReader(repo Repository) *Reader {
	return &Reader{repo: repo}
}

// EntityHistory returns the full history for one entity, oldest first. A
// missing history is an empty list, not an error; a failed fetch surfaces
// ErrHistoryUnavailable so the caller can degrade to an empty view.
func (r *Reader) EntityHistory(ctx context.Context, entityType, entityID string) ([]Revision, error) {
	if r.repo == nil {
		return nil, fmt.Errorf("%w: repository not configured", ErrHistoryUnavailable)
	}
	revisions, err := r.repo.EntityHistory(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	if revisions == nil {
		revisions = []Revision{}
	}
	return revisions, nil
}

// Timeline returns one page of the filtered whole-entity-type history.
func (r *Reader) Timeline(ctx context.Context, filters TimelineFilters) (TimelineResult, error) {
	if r.repo == nil {
		return TimelineResult{}, fmt.Errorf("%w: repository not configured", ErrHistoryUnavailable)
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := r.repo.TimelineWindow(ctx, filters, offset, pageSize+1)
	if err != nil {
		return TimelineResult{}, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return TimelineResult{Rows: rows, Paging: paging}, nil
}
