package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/cryptbucket/internal/errs"
	"github.com/avolkov/cryptbucket/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestSessionRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()
	s := &model.Session{
		ID:     uuid.Must(uuid.NewV4()),
		UserID: uuid.Must(uuid.NewV4()),
		APIKey: "k",
	}

	mock.ExpectExec(`INSERT INTO sessions \(id, user_id, api_key, has_expired\)`).
		WithArgs(s.ID, s.UserID, s.APIKey).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, s))
}

func TestSessionRepo_GetByAPIKey(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	userID := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, api_key, has_expired, expire_reason, expired_at, created_at, updated_at FROM sessions WHERE api_key=\$1`).
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "api_key", "has_expired", "expire_reason", "expired_at", "created_at", "updated_at"}).
			AddRow(id, userID, "k", false, (*string)(nil), (*time.Time)(nil), now, now))
	s, err := r.GetByAPIKey(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, id, s.ID)
	require.False(t, s.HasExpired)
	require.Empty(t, s.ExpireReason)

	mock.ExpectQuery(`SELECT id, user_id, api_key, has_expired, expire_reason, expired_at, created_at, updated_at FROM sessions WHERE api_key=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByAPIKey(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSessionRepo_ListByUser(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())
	now := time.Now()
	reason := "Logout: done for the day"
	expiredAt := now.Add(-time.Hour)

	mock.ExpectQuery(`SELECT id, user_id, api_key, has_expired, expire_reason, expired_at, created_at, updated_at FROM sessions WHERE user_id=\$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(userID, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "api_key", "has_expired", "expire_reason", "expired_at", "created_at", "updated_at"}).
			AddRow(uuid.Must(uuid.NewV4()), userID, "k1", false, (*string)(nil), (*time.Time)(nil), now, now).
			AddRow(uuid.Must(uuid.NewV4()), userID, "k2", true, &reason, &expiredAt, now, now))
	out, err := r.ListByUser(ctx, userID, 20)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, reason, out[1].ExpireReason)
	require.NotNil(t, out[1].ExpiredAt)
}

func TestSessionRepo_ExpireByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE sessions SET has_expired=true, expire_reason=\$2, expired_at=now\(\), updated_at=now\(\)`).
		WithArgs(id, "Logout: user requested").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.ExpireByID(ctx, id, "Logout: user requested"))

	// already expired session is a no-op, not an error
	mock.ExpectExec(`UPDATE sessions SET has_expired=true, expire_reason=\$2, expired_at=now\(\), updated_at=now\(\)`).
		WithArgs(id, "Logout: user requested").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.NoError(t, r.ExpireByID(ctx, id, "Logout: user requested"))
}

func TestSessionRepo_ExpireAllByUser(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE sessions SET has_expired=true, expire_reason=\$2, expired_at=now\(\), updated_at=now\(\)`).
		WithArgs(userID, "ForceLogout: password changed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	require.NoError(t, r.ExpireAllByUser(ctx, userID, "ForceLogout: password changed"))
}
