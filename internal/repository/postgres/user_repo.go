package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, display_name, user_name, pwd_hash, pwd_salt, global_permissions, is_banned, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.UserName, &u.PwdHash, &u.PwdSalt,
		&u.GlobalPermissions, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, display_name, user_name, pwd_hash, pwd_salt, global_permissions, is_banned)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.DisplayName, u.UserName, u.PwdHash, u.PwdSalt,
		u.GlobalPermissions, u.IsBanned)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUserName selects a user by unique user name.
func (r *UserRepo) GetByUserName(ctx context.Context, userName string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE user_name=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, userName))
}

// List returns all users ordered by user name.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY user_name ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateDisplayName sets the display name.
func (r *UserRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	const q = `UPDATE users SET display_name=$2, updated_at=now() WHERE id=$1`
	return r.execExpectingRow(ctx, q, id, displayName)
}

// UpdatePassword replaces the stored hash and salt.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, pwd_salt=$3, updated_at=now() WHERE id=$1`
	return r.execExpectingRow(ctx, q, id, hash, salt)
}

// SetGlobalPermissions replaces the global permission map.
func (r *UserRepo) SetGlobalPermissions(ctx context.Context, id uuid.UUID, perms map[string]bool) error {
	const q = `UPDATE users SET global_permissions=$2, updated_at=now() WHERE id=$1`
	return r.execExpectingRow(ctx, q, id, perms)
}

// SetBanningStatus flips the ban flag.
func (r *UserRepo) SetBanningStatus(ctx context.Context, id uuid.UUID, isBanned bool) error {
	const q = `UPDATE users SET is_banned=$2, updated_at=now() WHERE id=$1`
	return r.execExpectingRow(ctx, q, id, isBanned)
}

func (r *UserRepo) execExpectingRow(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
