package revision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	history    []Revision
	window     []Revision
	err        error
	lastOffset int
	lastLimit  int
}

func (s *stubRepository) EntityHistory(ctx context.Context, entityType, entityID string) ([]Revision, error) {
	return s.history, s.err
}

func (s *stubRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Revision, error) {
	s.lastOffset = offset
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if len(s.window) > limit {
		return s.window[:limit], nil
	}
	return s.window, nil
}

func rev(id string, op Op, field string, at time.Time) Revision {
	return Revision{ID: id, EntityType: "Department", EntityID: "42", Op: op, FieldName: field, ModificationDate: at}
}

func TestEntityHistoryOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubRepository{history: []Revision{
		rev("01A", OpCreate, "", base),
		rev("01B", OpEdit, "nameEn", base.Add(time.Minute)),
	}}
	reader := NewReader(repo)

	history, err := reader.EntityHistory(context.Background(), "Department", "42")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, OpCreate, history[0].Op)
	assert.Equal(t, OpEdit, history[1].Op)
	assert.True(t, history[0].ModificationDate.Before(history[1].ModificationDate))
}

func TestEntityHistoryEmptyIsNotAnError(t *testing.T) {
	reader := NewReader(&stubRepository{})
	history, err := reader.EntityHistory(context.Background(), "Department", "missing")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestEntityHistoryFailureDegrades(t *testing.T) {
	reader := NewReader(&stubRepository{err: errors.New("connection refused")})
	_, err := reader.EntityHistory(context.Background(), "Department", "42")
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}

func TestTimelinePaging(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubRepository{window: []Revision{
		rev("01A", OpCreate, "", base),
		rev("01B", OpEdit, "nameEn", base.Add(time.Minute)),
		rev("01C", OpEdit, "isActive", base.Add(2*time.Minute)),
	}}
	reader := NewReader(repo)

	result, err := reader.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Equal(t, 0, result.Paging.PrevPage)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
}

func TestTimelineCapsPageSize(t *testing.T) {
	repo := &stubRepository{}
	reader := NewReader(repo)

	_, err := reader.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 51, repo.lastLimit)
	assert.Equal(t, 100, repo.lastOffset)
}

func TestTimelineFailureDegrades(t *testing.T) {
	reader := NewReader(&stubRepository{err: errors.New("boom")})
	_, err := reader.Timeline(context.Background(), TimelineFilters{})
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}
