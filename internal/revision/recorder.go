package revision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by pgxpool.Pool and pgx.Tx, so revisions can be written
// inside the same transaction as the mutation they describe.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FieldChange is one changed field between two states of an entity.
type FieldChange struct {
	Field    string
	Previous any
	Current  any
}

// Diff compares two field maps and returns the changes sorted by field name.
// Fields present in only one map appear with a nil counterpart.
func Diff(before, after map[string]any) []FieldChange {
	fields := make(map[string]struct{}, len(before)+len(after))
	for f := range before {
		fields[f] = struct{}{}
	}
	for f := range after {
		fields[f] = struct{}{}
	}
	var changes []FieldChange
	for f := range fields {
		prev, curr := before[f], after[f]
		if reflect.DeepEqual(prev, curr) {
			continue
		}
		changes = append(changes, FieldChange{Field: f, Previous: prev, Current: curr})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// Recorder appends revisions. Records are created exactly once per committed
// mutation and never updated or deleted by the application layer.
type Recorder struct {
	db       Execer
	now      func() time.Time
	observer func(entityType, operation string)
}

// NewRecorder constructs a Recorder over the given executor.
func NewRecorder(db Execer) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// WithObserver registers a callback invoked after each written revision.
func (r *Recorder) WithObserver(observer func(entityType, operation string)) *Recorder {
	return &Recorder{db: r.db, now: r.now, observer: observer}
}

// WithTx returns a Recorder bound to the transaction.
func (r *Recorder) WithTx(tx pgx.Tx) *Recorder {
	return &Recorder{db: tx, now: r.now, observer: r.observer}
}

const insertRevision = `INSERT INTO revisions
	(id, entity_type, entity_id, op, field_name, previous_value, current_value, modified_by, modified_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// RecordCreate appends a whole-record create revision.
func (r *Recorder) RecordCreate(ctx context.Context, entityType, entityID, actorID string) (Revision, error) {
	rev := Revision{
		ID:               newRevisionID(r.now()),
		EntityType:       entityType,
		EntityID:         entityID,
		Op:               OpCreate,
		ModifiedBy:       actorID,
		ModificationDate: r.now().UTC(),
	}
	if err := r.insert(ctx, rev); err != nil {
		return Revision{}, err
	}
	return rev, nil
}

// RecordDelete appends a whole-record delete revision.
func (r *Recorder) RecordDelete(ctx context.Context, entityType, entityID, actorID string) (Revision, error) {
	rev := Revision{
		ID:               newRevisionID(r.now()),
		EntityType:       entityType,
		EntityID:         entityID,
		Op:               OpDelete,
		ModifiedBy:       actorID,
		ModificationDate: r.now().UTC(),
	}
	if err := r.insert(ctx, rev); err != nil {
		return Revision{}, err
	}
	return rev, nil
}

// RecordEdits diffs the two states and appends one edit revision per changed
// field. No revisions are written when nothing changed.
func (r *Recorder) RecordEdits(ctx context.Context, entityType, entityID, actorID string, before, after map[string]any) ([]Revision, error) {
	changes := Diff(before, after)
	if len(changes) == 0 {
		return nil, nil
	}
	at := r.now().UTC()
	revisions := make([]Revision, 0, len(changes))
	for _, change := range changes {
		rev := Revision{
			ID:               newRevisionID(at),
			EntityType:       entityType,
			EntityID:         entityID,
			Op:               OpEdit,
			FieldName:        change.Field,
			PreviousValue:    change.Previous,
			CurrentValue:     change.Current,
			ModifiedBy:       actorID,
			ModificationDate: at,
		}
		if err := r.insert(ctx, rev); err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, nil
}

func (r *Recorder) insert(ctx context.Context, rev Revision) error {
	if rev.EntityType == "" || rev.EntityID == "" {
		return errors.New("revision: entity type and id required")
	}
	prev, err := marshalValue(rev.PreviousValue)
	if err != nil {
		return fmt.Errorf("revision: marshal previous value: %w", err)
	}
	curr, err := marshalValue(rev.CurrentValue)
	if err != nil {
		return fmt.Errorf("revision: marshal current value: %w", err)
	}
	var fieldName *string
	if rev.FieldName != "" {
		fieldName = &rev.FieldName
	}
	var modifiedBy *string
	if rev.ModifiedBy != "" {
		modifiedBy = &rev.ModifiedBy
	}
	_, err = r.db.Exec(ctx, insertRevision,
		rev.ID, rev.EntityType, rev.EntityID, string(rev.Op), fieldName, prev, curr, modifiedBy, rev.ModificationDate)
	if err != nil {
		return fmt.Errorf("revision: insert: %w", err)
	}
	if r.observer != nil {
		r.observer(rev.EntityType, string(rev.Op))
	}
	return nil
}

func marshalValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
