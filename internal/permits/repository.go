package permits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-admin/keystone/internal/shared"
)

var ErrDuplicateNumber = errors.New("permits: permit number already in use")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name_en, name_ar, COALESCE(number, ''), issue_date, expiry_date, is_active, created_at, updated_at`

func (r *Repository) List(ctx context.Context) ([]Permit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM permits ORDER BY expiry_date, name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var permits []Permit
	for rows.Next() {
		var p Permit
		if err := rows.Scan(&p.ID, &p.NameEn, &p.NameAr, &p.Number, &p.IssueDate, &p.ExpiryDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (Permit, error) {
	var p Permit
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM permits WHERE id = $1`, id).
		Scan(&p.ID, &p.NameEn, &p.NameAr, &p.Number, &p.IssueDate, &p.ExpiryDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permit{}, shared.ErrNotFound
		}
		return Permit{}, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p Permit) (Permit, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO permits
			(id, name_en, name_ar, number, issue_date, expiry_date, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.NameEn, p.NameAr, p.Number, p.IssueDate, p.ExpiryDate, p.IsActive).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Permit{}, mapPGError(err)
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, p Permit) (Permit, error) {
	err := r.pool.QueryRow(ctx, `UPDATE permits SET
			name_en = $2, name_ar = $3, number = NULLIF($4, ''), issue_date = $5, expiry_date = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.NameEn, p.NameAr, p.Number, p.IssueDate, p.ExpiryDate).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permit{}, shared.ErrNotFound
		}
		return Permit{}, mapPGError(err)
	}
	return p, nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) (Permit, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE permits SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return Permit{}, err
	}
	if tag.RowsAffected() == 0 {
		return Permit{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListExpiring returns active permits whose expiry date is within the window.
// The retention worker uses it to flag permits approaching renewal.
func (r *Repository) ListExpiring(ctx context.Context, within string) ([]Permit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM permits
		WHERE is_active AND expiry_date <= NOW() + $1::interval
		ORDER BY expiry_date`, within)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var permits []Permit
	for rows.Next() {
		var p Permit
		if err := rows.Scan(&p.ID, &p.NameEn, &p.NameAr, &p.Number, &p.IssueDate, &p.ExpiryDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, pgErr.ConstraintName)
	}
	return err
}
