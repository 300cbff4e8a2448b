package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineFilters narrows a whole-entity-type history query.
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	Actor      string
	EntityType string
	Op         Op
	Page       int
	PageSize   int
}

// Repository provides read access to stored revisions.
type Repository interface {
	EntityHistory(ctx context.Context, entityType, entityID string) ([]Revision, error)
	TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Revision, error)
}

// PGRepository is the PostgreSQL revision store.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository over the pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectColumns = `id, entity_type, entity_id, op, field_name, previous_value, current_value, modified_by, modified_at`

// EntityHistory returns all revisions for one entity ordered oldest first.
func (r *PGRepository) EntityHistory(ctx context.Context, entityType, entityID string) ([]Revision, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+`
		FROM revisions WHERE entity_type = $1 AND entity_id = $2
		ORDER BY modified_at ASC, id ASC`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("revision: query entity history: %w", err)
	}
	defer rows.Close()
	return scanRevisions(rows)
}

// TimelineWindow returns one page of the filtered timeline, oldest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, f TimelineFilters, offset, limit int) ([]Revision, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+`
		FROM revisions
		WHERE ($1::timestamptz IS NULL OR modified_at >= $1)
		  AND ($2::timestamptz IS NULL OR modified_at <= $2)
		  AND ($3::text IS NULL OR modified_by = $3)
		  AND ($4::text IS NULL OR entity_type = $4)
		  AND ($5::text IS NULL OR op = $5)
		ORDER BY modified_at ASC, id ASC
		OFFSET $6 LIMIT $7`,
		nullableTime(f.From), nullableTime(f.To), nullableString(f.Actor),
		nullableString(f.EntityType), nullableString(string(f.Op)), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("revision: query timeline: %w", err)
	}
	defer rows.Close()
	return scanRevisions(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRevisions(rows rowScanner) ([]Revision, error) {
	revisions := make([]Revision, 0)
	for rows.Next() {
		var (
			rev        Revision
			op         string
			fieldName  *string
			prev, curr []byte
			modifiedBy *string
		)
		if err := rows.Scan(&rev.ID, &rev.EntityType, &rev.EntityID, &op, &fieldName, &prev, &curr, &modifiedBy, &rev.ModificationDate); err != nil {
			return nil, fmt.Errorf("revision: scan: %w", err)
		}
		rev.Op = Op(op)
		if fieldName != nil {
			rev.FieldName = *fieldName
		}
		if modifiedBy != nil {
			rev.ModifiedBy = *modifiedBy
		}
		if err := unmarshalValue(prev, &rev.PreviousValue); err != nil {
			return nil, err
		}
		if err := unmarshalValue(curr, &rev.CurrentValue); err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("revision: rows: %w", err)
	}
	return revisions, nil
}

func unmarshalValue(raw []byte, target *any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("revision: unmarshal value: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
