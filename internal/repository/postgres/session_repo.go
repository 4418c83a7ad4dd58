package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, user_id, api_key, has_expired, expire_reason, expired_at, created_at, updated_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	var reason *string
	err := row.Scan(&s.ID, &s.UserID, &s.APIKey, &s.HasExpired, &reason, &s.ExpiredAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if reason != nil {
		s.ExpireReason = *reason
	}
	return &s, nil
}

// Create inserts a new active session.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, api_key, has_expired)
VALUES ($1, $2, $3, false)`
	_, err := r.db.Pool.Exec(ctx, q, s.ID, s.UserID, s.APIKey)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByAPIKey selects a session by API key.
func (r *SessionRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE api_key=$1`
	return scanSession(r.db.Pool.QueryRow(ctx, q, apiKey))
}

// GetByID selects a session by ID.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1`
	return scanSession(r.db.Pool.QueryRow(ctx, q, id))
}

// ListByUser returns the user's most recent sessions, newest first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ExpireByID marks one session expired. Already-expired sessions are left
// untouched; the transition is one-way.
func (r *SessionRepo) ExpireByID(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `
UPDATE sessions SET has_expired=true, expire_reason=$2, expired_at=now(), updated_at=now()
WHERE id=$1 AND has_expired=false`
	_, err := r.db.Pool.Exec(ctx, q, id, reason)
	return err
}

// ExpireAllByUser marks every active session of the user expired.
func (r *SessionRepo) ExpireAllByUser(ctx context.Context, userID uuid.UUID, reason string) error {
	const q = `
UPDATE sessions SET has_expired=true, expire_reason=$2, expired_at=now(), updated_at=now()
WHERE user_id=$1 AND has_expired=false`
	_, err := r.db.Pool.Exec(ctx, q, userID, reason)
	return err
}
