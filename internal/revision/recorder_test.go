package revision

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecer struct {
	inserts [][]any
}

func (s *stubExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.inserts = append(s.inserts, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func newTestRecorder(db *stubExecer) *Recorder {
	r := NewRecorder(db)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	calls := 0
	r.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	return r
}

func TestDiff(t *testing.T) {
	before := map[string]any{"nameEn": "Ops", "nameAr": "العمليات", "isActive": true}
	after := map[string]any{"nameEn": "Operations", "nameAr": "العمليات", "isActive": false}

	changes := Diff(before, after)
	require.Len(t, changes, 2)
	assert.Equal(t, "isActive", changes[0].Field)
	assert.Equal(t, true, changes[0].Previous)
	assert.Equal(t, false, changes[0].Current)
	assert.Equal(t, "nameEn", changes[1].Field)
	assert.Equal(t, "Ops", changes[1].Previous)
	assert.Equal(t, "Operations", changes[1].Current)
}

func TestDiffHandlesMissingFields(t *testing.T) {
	changes := Diff(map[string]any{"old": 1}, map[string]any{"new": 2})
	require.Len(t, changes, 2)
	assert.Nil(t, changes[1].Previous)
	assert.Nil(t, changes[0].Current)
}

func TestDiffNoChanges(t *testing.T) {
	state := map[string]any{"nameEn": "Ops"}
	assert.Empty(t, Diff(state, map[string]any{"nameEn": "Ops"}))
}

func TestRecordCreateThenEdit(t *testing.T) {
	db := &stubExecer{}
	rec := newTestRecorder(db)
	ctx := context.Background()

	created, err := rec.RecordCreate(ctx, "Department", "42", "u1")
	require.NoError(t, err)
	assert.Equal(t, OpCreate, created.Op)
	assert.Empty(t, created.FieldName)
	assert.Nil(t, created.PreviousValue)

	edits, err := rec.RecordEdits(ctx, "Department", "42", "u1",
		map[string]any{"nameEn": "Ops"},
		map[string]any{"nameEn": "Operations"})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, OpEdit, edits[0].Op)
	assert.Equal(t, "nameEn", edits[0].FieldName)
	assert.Equal(t, "Ops", edits[0].PreviousValue)
	assert.Equal(t, "Operations", edits[0].CurrentValue)

	// Two distinct records, no in-place mutation of the first.
	require.Len(t, db.inserts, 2)
	assert.NotEqual(t, created.ID, edits[0].ID)
	assert.True(t, created.ModificationDate.Before(edits[0].ModificationDate))
}

func TestRecordEditsSkipsNoop(t *testing.T) {
	db := &stubExecer{}
	rec := newTestRecorder(db)

	edits, err := rec.RecordEdits(context.Background(), "Role", "r1", "u1",
		map[string]any{"isActive": true}, map[string]any{"isActive": true})
	require.NoError(t, err)
	assert.Nil(t, edits)
	assert.Empty(t, db.inserts)
}

func TestRecordDelete(t *testing.T) {
	db := &stubExecer{}
	rec := newTestRecorder(db)

	deleted, err := rec.RecordDelete(context.Background(), "User", "u7", "u1")
	require.NoError(t, err)
	assert.Equal(t, OpDelete, deleted.Op)
	assert.Nil(t, deleted.CurrentValue)
	require.Len(t, db.inserts, 1)
}

func TestRecorderRequiresEntity(t *testing.T) {
	rec := newTestRecorder(&stubExecer{})
	_, err := rec.RecordCreate(context.Background(), "", "42", "u1")
	assert.Error(t, err)
}

func TestRevisionIDsSortWithTime(t *testing.T) {
	early := newRevisionID(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := newRevisionID(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, early, late)
}
