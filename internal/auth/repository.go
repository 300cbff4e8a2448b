package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/shared"
)

// Repository provides PostgreSQL backed persistence for authentication.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, name_en, name_ar, is_active,
	COALESCE(role_id, ''), COALESCE(permissions, '{}'), has_full_access, COALESCE(locale, 'en'),
	created_at, updated_at`

// FindByEmail returns the user account for the given email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID returns the user account by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.NameEn, &user.NameAr,
		&user.IsActive, &user.RoleID, &user.Grants, &user.HasFullAccess, &user.Locale,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindRole loads the role referenced by a user, already normalized for the
// evaluator.
func (r *Repository) FindRole(ctx context.Context, id string) (*authz.Role, error) {
	var (
		role  authz.Role
		perms []string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, name_en, name_ar,
			COALESCE(description_en, ''), COALESCE(description_ar, ''),
			is_active, is_super_admin, COALESCE(permissions, '{}')
		FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.NameEn, &role.NameAr, &role.DescriptionEn, &role.DescriptionAr,
			&role.IsActive, &role.IsSuperAdmin, &perms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	role.Permissions = authz.NewPermissionSet(perms...)
	return &role, nil
}

// CreateSession persists session metadata.
func (r *Repository) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		id, userID, expiresAt, ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
