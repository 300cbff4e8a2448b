package users

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
	ErrDuplicateEmail = errors.New("users: email already in use")
	// ErrUnknownRole indicates the referenced role does not exist.
	ErrUnknownRole = errors.New("users: unknown role")
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `u.id, u.email, u.password_hash, u.name_en, u.name_ar, u.is_active,
	COALESCE(u.role_id, ''), COALESCE(r.name_en, ''), COALESCE(r.name_ar, ''),
	COALESCE(u.permissions, '{}'), u.has_full_access, COALESCE(u.locale, 'en'),
	u.created_at, u.updated_at`

const fromUsers = ` FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+fromUsers+` ORDER BY u.name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+fromUsers+` WHERE u.id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users
			(id, email, password_hash, name_en, name_ar, is_active, role_id, permissions, has_full_access, locale)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.NameEn, u.NameAr, u.IsActive,
		u.RoleID, u.Grants, u.HasFullAccess, u.Locale).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, mapPGError(err)
	}
	return u, nil
}

func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	err := r.pool.QueryRow(ctx, `UPDATE users SET
			email = $2, name_en = $3, name_ar = $4, role_id = NULLIF($5, ''),
			permissions = $6, has_full_access = $7, locale = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.NameEn, u.NameAr, u.RoleID, u.Grants, u.HasFullAccess, u.Locale).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, mapPGError(err)
	}
	return u, nil
}

// SetPassword updates only the password hash.
func (r *Repository) SetPassword(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.NameEn, &u.NameAr, &u.IsActive,
		&u.RoleID, &u.RoleNameEn, &u.RoleNameAr, &u.Grants, &u.HasFullAccess, &u.Locale,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, pgErr.ConstraintName)
		case "23503":
			return ErrUnknownRole
		}
	}
	return err
}
