package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-admin/keystone/internal/shared"
)

// ErrDuplicateName indicates the department name is already in use.
var ErrDuplicateName = errors.New("departments: name already in use")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name_en, name_ar, COALESCE(description_en, ''), COALESCE(description_ar, ''), is_active, created_at, updated_at`

// List returns all departments ordered by English name.
func (r *Repository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM departments ORDER BY name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.NameEn, &d.NameAr, &d.DescriptionEn, &d.DescriptionAr, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// Get fetches one department by id.
func (r *Repository) Get(ctx context.Context, id string) (Department, error) {
	var d Department
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.NameEn, &d.NameAr, &d.DescriptionEn, &d.DescriptionAr, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return d, nil
}

// Create inserts a new department.
func (r *Repository) Create(ctx context.Context, d Department) (Department, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO departments
			(id, name_en, name_ar, description_en, description_ar, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		d.ID, d.NameEn, d.NameAr, d.DescriptionEn, d.DescriptionAr, d.IsActive).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Department{}, mapPGError(err)
	}
	return d, nil
}

// Update rewrites the mutable fields of a department.
func (r *Repository) Update(ctx context.Context, d Department) (Department, error) {
	err := r.pool.QueryRow(ctx, `UPDATE departments SET
			name_en = $2, name_ar = $3, description_en = $4, description_ar = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.NameEn, d.NameAr, d.DescriptionEn, d.DescriptionAr).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, mapPGError(err)
	}
	return d, nil
}

// SetActive toggles the activity flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) (Department, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return Department{}, err
	}
	if tag.RowsAffected() == 0 {
		return Department{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a department. Returns shared.ErrNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateName, pgErr.ConstraintName)
	}
	return err
}
