package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-admin/keystone/internal/shared"
)

var (
	ErrDuplicateName = errors.New("roles: name already in use")
	// ErrRoleInUse indicates users still reference the role.
	ErrRoleInUse = errors.New("roles: role is assigned to users")
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name_en, name_ar, COALESCE(description_en, ''), COALESCE(description_ar, ''), is_active, is_super_admin, permissions, created_at, updated_at`

func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM roles ORDER BY name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO roles
			(id, name_en, name_ar, description_en, description_ar, is_active, is_super_admin, permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		role.ID, role.NameEn, role.NameAr, role.DescriptionEn, role.DescriptionAr,
		role.IsActive, role.IsSuperAdmin, role.Permissions).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, mapPGError(err)
	}
	return role, nil
}

func (r *Repository) Update(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx, `UPDATE roles SET
			name_en = $2, name_ar = $3, description_en = $4, description_ar = $5,
			is_super_admin = $6, permissions = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		role.ID, role.NameEn, role.NameAr, role.DescriptionEn, role.DescriptionAr,
		role.IsSuperAdmin, role.Permissions).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, mapPGError(err)
	}
	return role, nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) (Role, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return Role{}, err
	}
	if tag.RowsAffected() == 0 {
		return Role{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MemberIDs returns the ids of users assigned to the role. The auth service
// uses it to invalidate cached actor snapshots after a role edit.
func (r *Repository) MemberIDs(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.NameEn, &role.NameAr, &role.DescriptionEn, &role.DescriptionAr,
		&role.IsActive, &role.IsSuperAdmin, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicateName, pgErr.ConstraintName)
		case "23503":
			return ErrRoleInUse
		}
	}
	return err
}
