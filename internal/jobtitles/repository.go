package jobtitles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-admin/keystone/internal/shared"
)

var ErrDuplicateName = errors.New("jobtitles: name already in use")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name_en, name_ar, COALESCE(description_en, ''), COALESCE(description_ar, ''), is_active, created_at, updated_at`

func (r *Repository) List(ctx context.Context) ([]JobTitle, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM job_titles ORDER BY name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var titles []JobTitle
	for rows.Next() {
		var j JobTitle
		if err := rows.Scan(&j.ID, &j.NameEn, &j.NameAr, &j.DescriptionEn, &j.DescriptionAr, &j.IsActive, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		titles = append(titles, j)
	}
	return titles, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (JobTitle, error) {
	var j JobTitle
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM job_titles WHERE id = $1`, id).
		Scan(&j.ID, &j.NameEn, &j.NameAr, &j.DescriptionEn, &j.DescriptionAr, &j.IsActive, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobTitle{}, shared.ErrNotFound
		}
		return JobTitle{}, err
	}
	return j, nil
}

func (r *Repository) Create(ctx context.Context, j JobTitle) (JobTitle, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO job_titles
			(id, name_en, name_ar, description_en, description_ar, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		j.ID, j.NameEn, j.NameAr, j.DescriptionEn, j.DescriptionAr, j.IsActive).
		Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return JobTitle{}, mapPGError(err)
	}
	return j, nil
}

func (r *Repository) Update(ctx context.Context, j JobTitle) (JobTitle, error) {
	err := r.pool.QueryRow(ctx, `UPDATE job_titles SET
			name_en = $2, name_ar = $3, description_en = $4, description_ar = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		j.ID, j.NameEn, j.NameAr, j.DescriptionEn, j.DescriptionAr).
		Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobTitle{}, shared.ErrNotFound
		}
		return JobTitle{}, mapPGError(err)
	}
	return j, nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) (JobTitle, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE job_titles SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return JobTitle{}, err
	}
	if tag.RowsAffected() == 0 {
		return JobTitle{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_titles WHERE id = $1`, id)
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
