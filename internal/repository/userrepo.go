// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov/cryptbucket/internal/model"
)

// UserRepository provides CRUD access to accounts. Users are never
// hard-deleted; banning is the removal mechanism.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUserName loads a user by unique user name.
	GetByUserName(ctx context.Context, userName string) (*model.User, error)
	// List returns all users.
	List(ctx context.Context) ([]model.User, error)
	// UpdateDisplayName sets the user's display name.
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
	// UpdatePassword replaces the stored hash and salt.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error
	// SetGlobalPermissions replaces the global permission map.
	SetGlobalPermissions(ctx context.Context, id uuid.UUID, perms map[string]bool) error
	// SetBanningStatus flips the ban flag.
	SetBanningStatus(ctx context.Context, id uuid.UUID, isBanned bool) error
}
