package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
)

// SessionRepository stores API-key sessions. Expiry is a one-way transition.
type SessionRepository interface {
	// Create inserts a new active session.
	Create(ctx context.Context, s *model.Session) error
	// GetByAPIKey loads a session by its API key.
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Session, error)
	// GetByID loads a session by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// ListByUser returns the user's most recent sessions, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Session, error)
	// ExpireByID marks one session expired with the given reason.
	ExpireByID(ctx context.Context, id uuid.UUID, reason string) error
	// ExpireAllByUser marks every active session of the user expired.
	ExpireAllByUser(ctx context.Context, userID uuid.UUID, reason string) error
}
